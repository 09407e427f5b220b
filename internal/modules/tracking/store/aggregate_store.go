package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pixelspace/views-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mysqlErrDuplicateEntry = 1062

// AggregateStore reads and merges content_stats_daily rows.
type AggregateStore struct {
	db *gorm.DB
}

func NewAggregateStore(db *gorm.DB) *AggregateStore {
	return &AggregateStore{db: db}
}

// CommitBatch durably applies one rollup batch: every daily aggregate is
// merged additively into its (content_id, date) row, and the batch's raw
// events are deleted, all inside a single transaction. A crash can only
// lose the whole batch, never aggregate it twice.
func (s *AggregateStore) CommitBatch(ctx context.Context, aggregates []*models.ContentStatsDailyModel, eventIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, agg := range aggregates {
			if err := mergeDaily(tx, agg); err != nil {
				return fmt.Errorf("merge daily (%s, %s): %w", agg.ContentID, agg.Date.Format("2006-01-02"), err)
			}
		}
		if len(eventIDs) > 0 {
			if err := tx.Where("id IN ?", eventIDs).Delete(&models.ViewEventModel{}).Error; err != nil {
				return fmt.Errorf("delete raw events: %w", err)
			}
		}
		return nil
	})
}

// mergeDaily upserts one daily row: counts are added, category maps are
// merged (summing matching keys, taking new keys). UniqueViewers addition
// across merges is the documented approximation.
func mergeDaily(tx *gorm.DB, agg *models.ContentStatsDailyModel) error {
	var existing models.ContentStatsDailyModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("content_id = ? AND date = ?", agg.ContentID, agg.Date).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		createErr := tx.Create(agg).Error
		if isDuplicateKey(createErr) {
			// Lost the insert race on idx_content_date. The rollup lock has
			// a TTL, so an expired lock can admit a second writer; fall back
			// to merging into the row that beat us.
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("content_id = ? AND date = ?", agg.ContentID, agg.Date).
				First(&existing).Error
			if err != nil {
				return err
			}
		} else {
			return createErr
		}
	} else if err != nil {
		return err
	}

	existing.TotalViews += agg.TotalViews
	existing.UniqueViewers += agg.UniqueViewers
	existing.ViewsByCountry = existing.ViewsByCountry.Merge(agg.ViewsByCountry)
	existing.ViewsByDevice = existing.ViewsByDevice.Merge(agg.ViewsByDevice)
	existing.ViewsByType = existing.ViewsByType.Merge(agg.ViewsByType)
	return tx.Save(&existing).Error
}

// isDuplicateKey reports whether err is a MySQL unique-key violation.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

// FetchRange returns daily rows for one content id with from <= date < to.
func (s *AggregateStore) FetchRange(ctx context.Context, contentID string, from, to time.Time) ([]models.ContentStatsDailyModel, error) {
	var rows []models.ContentStatsDailyModel
	err := s.db.WithContext(ctx).
		Where("content_id = ? AND date >= ? AND date < ?", contentID, from, to).
		Order("date").
		Find(&rows).Error
	return rows, err
}

// FetchRangeMany returns daily rows for a set of content ids with
// from <= date < to.
func (s *AggregateStore) FetchRangeMany(ctx context.Context, contentIDs []string, from, to time.Time) ([]models.ContentStatsDailyModel, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}
	var rows []models.ContentStatsDailyModel
	err := s.db.WithContext(ctx).
		Where("content_id IN ? AND date >= ? AND date < ?", contentIDs, from, to).
		Order("date").
		Find(&rows).Error
	return rows, err
}
