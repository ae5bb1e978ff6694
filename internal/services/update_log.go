package services

import (
	"sort"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/models"
)

// UpdateLog is the append-only log of status reports.
type UpdateLog struct {
	now   func() time.Time
	newID func() string

	mu      sync.RWMutex
	records []models.StatusUpdate // Insertion order, oldest first
}

// NewUpdateLog returns an empty log.
func NewUpdateLog() *UpdateLog {
	return &UpdateLog{now: time.Now, newID: newID}
}

// Record appends a new update built from in and returns it.
func (l *UpdateLog) Record(in models.StatusUpdateInput) models.StatusUpdate {
	u := models.StatusUpdate{
		ID:          l.newID(),
		VenueID:     in.VenueID,
		UserID:      in.UserID,
		UserName:    in.UserName,
		QueueLength: in.QueueLength,
		WaitTime:    in.WaitTime,
		Comment:     in.Comment,
		Timestamp:   l.now(),
	}

	l.mu.Lock()
	l.records = append(l.records, u)
	l.mu.Unlock()
	return u
}

// Seed loads historical updates, keeping their ids and timestamps.
func (l *UpdateLog) Seed(updates []models.StatusUpdate) {
	sorted := append([]models.StatusUpdate(nil), updates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	l.mu.Lock()
	l.records = append(l.records, sorted...)
	l.mu.Unlock()
}

// ForVenue returns the venue's updates, newest first. Updates with equal
// timestamps are ordered by most recent insertion.
func (l *UpdateLog) ForVenue(venueID string) []models.StatusUpdate {
	return l.collect(func(u models.StatusUpdate) bool { return u.VenueID == venueID })
}

// All returns every update, newest first.
func (l *UpdateLog) All() []models.StatusUpdate {
	return l.collect(func(models.StatusUpdate) bool { return true })
}

// Len returns the number of recorded updates.
func (l *UpdateLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *UpdateLog) collect(keep func(models.StatusUpdate) bool) []models.StatusUpdate {
	l.mu.RLock()
	out := make([]models.StatusUpdate, 0)
	for i := len(l.records) - 1; i >= 0; i-- {
		if keep(l.records[i]) {
			out = append(out, l.records[i])
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
