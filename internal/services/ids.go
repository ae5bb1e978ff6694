package services

import "github.com/google/uuid"

// newID returns a time-ordered UUIDv7 string. uuid.NewV7 only fails when the
// system random source does, in which case a random v4 id is used instead.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
