package models

// User is the signed-in account persisted under the authenticated-user key.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
