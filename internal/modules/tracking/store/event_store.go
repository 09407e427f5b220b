// Package store holds the gorm-backed persistence for the view tracking
// subsystem. The record, rollup and stats services consume these types
// through their own narrow interfaces.
package store

import (
	"context"
	"time"

	"github.com/pixelspace/views-core/internal/models"
	"gorm.io/gorm"
)

// EventStore reads and writes raw view_events rows.
type EventStore struct {
	db *gorm.DB
}

func NewEventStore(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// InsertBatch appends a batch of events in one statement.
func (s *EventStore) InsertBatch(ctx context.Context, events []*models.ViewEventModel) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&events).Error
}

// HasEventsBefore reports whether any event predates the cutoff.
func (s *EventStore) HasEventsBefore(ctx context.Context, cutoff time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ViewEventModel{}).
		Where("created_at < ?", cutoff).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// FetchBatchBefore returns up to limit events older than the cutoff in
// stable (created_at, id) order, so repeated scans walk the same rows.
func (s *EventStore) FetchBatchBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ViewEventModel, error) {
	var events []models.ViewEventModel
	err := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at, id").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// FetchSince returns all raw events for one content id from `since` onward.
func (s *EventStore) FetchSince(ctx context.Context, contentID string, since time.Time) ([]models.ViewEventModel, error) {
	var events []models.ViewEventModel
	err := s.db.WithContext(ctx).
		Where("content_id = ? AND created_at >= ?", contentID, since).
		Find(&events).Error
	return events, err
}

// FetchSinceMany returns all raw events for a set of content ids from
// `since` onward. An empty id set short-circuits to no rows.
func (s *EventStore) FetchSinceMany(ctx context.Context, contentIDs []string, since time.Time) ([]models.ViewEventModel, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}
	var events []models.ViewEventModel
	err := s.db.WithContext(ctx).
		Where("content_id IN ? AND created_at >= ?", contentIDs, since).
		Find(&events).Error
	return events, err
}
