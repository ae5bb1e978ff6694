package models

import "time"

// StatusUpdate is one community report about a venue's queue. It is immutable once recorded.
type StatusUpdate struct {
	ID          string    `json:"id"`
	VenueID     string    `json:"clubId"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	QueueLength int       `json:"queueLength"`
	WaitTime    int       `json:"waitTime"`
	Comment     string    `json:"comment"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusUpdateInput is a submission before the log assigns its id and timestamp.
type StatusUpdateInput struct {
	VenueID     string `json:"clubId"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	QueueLength int    `json:"queueLength"`
	WaitTime    int    `json:"waitTime"`
	Comment     string `json:"comment"`
}

// Validate checks the fields every submission must carry.
func (in StatusUpdateInput) Validate() error {
	switch {
	case in.VenueID == "":
		return NewValidationError("clubId", "Club is required")
	case in.UserID == "":
		return NewValidationError("userId", "You must be signed in to post an update")
	case in.QueueLength < 0:
		return NewValidationError("queueLength", "Queue length cannot be negative")
	case in.WaitTime < 0:
		return NewValidationError("waitTime", "Wait time cannot be negative")
	}
	return nil
}
