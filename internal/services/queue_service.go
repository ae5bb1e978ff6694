package services

import (
	"sync"

	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/rs/zerolog"
)

// QueueService records status updates and applies them to their venue as one step.
type QueueService struct {
	venues    *VenueStore
	updates   *UpdateLog
	publisher events.Publisher
	logger    zerolog.Logger

	mu sync.Mutex
}

// NewQueueService creates a QueueService over the given store and log.
func NewQueueService(venues *VenueStore, updates *UpdateLog, publisher events.Publisher, logger zerolog.Logger) *QueueService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &QueueService{
		venues:    venues,
		updates:   updates,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit validates in, records it and recomputes the venue's status.
// When the venue does not exist the record is kept and returned together
// with models.ErrVenueNotFound.
func (q *QueueService) Submit(in models.StatusUpdateInput) (models.StatusUpdate, error) {
	if err := in.Validate(); err != nil {
		return models.StatusUpdate{}, err
	}

	q.mu.Lock()
	rec := q.updates.Record(in)
	err := q.venues.ApplyStatusUpdate(rec)
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn().
			Err(err).
			Str("update_id", rec.ID).
			Str("venue_id", rec.VenueID).
			Msg("Recorded update for unknown venue")
		return rec, err
	}

	q.logger.Info().
		Str("update_id", rec.ID).
		Str("venue_id", rec.VenueID).
		Int("queue_length", rec.QueueLength).
		Int("wait_time", rec.WaitTime).
		Msg("Status update recorded")
	q.publisher.Publish(events.Event{Kind: events.UpdateRecorded, VenueID: rec.VenueID, Payload: rec})
	return rec, nil
}
