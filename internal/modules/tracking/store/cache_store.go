package store

import (
	"context"
	"errors"
	"time"

	"github.com/pixelspace/views-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheStore is the durable fallback tier of the stats cache.
type CacheStore struct {
	db *gorm.DB
}

func NewCacheStore(db *gorm.DB) *CacheStore {
	return &CacheStore{db: db}
}

// Get returns the cached row for (scope, subject), or nil when absent.
// Expiry is the caller's concern: a stale row is still useful as a fallback
// when recomputation fails.
func (s *CacheStore) Get(ctx context.Context, scope, subjectID string) (*models.ContentStatsCacheModel, error) {
	var row models.ContentStatsCacheModel
	err := s.db.WithContext(ctx).
		Where("scope = ? AND subject_id = ?", scope, subjectID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Put writes or replaces the cached row for (scope, subject). Cache writes
// are last-write-wins; there is no merge.
func (s *CacheStore) Put(ctx context.Context, row *models.ContentStatsCacheModel) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "subject_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "computed_at", "expires_at", "updated_at",
			}),
		}).
		Create(row).Error
}

// Delete removes the cached row for (scope, subject), if any.
func (s *CacheStore) Delete(ctx context.Context, scope, subjectID string) error {
	return s.db.WithContext(ctx).
		Where("scope = ? AND subject_id = ?", scope, subjectID).
		Delete(&models.ContentStatsCacheModel{}).Error
}

// DeleteExpired removes every row whose expires_at has passed, returning the
// number of rows removed. Safe to run any number of times.
func (s *CacheStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.ContentStatsCacheModel{})
	return result.RowsAffected, result.Error
}
