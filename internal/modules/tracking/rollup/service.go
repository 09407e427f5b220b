// Package rollup converts raw view events older than the retention cutoff
// into durable daily aggregates, then removes them from the event store.
// Invoked once per day by the scheduler; safe to re-run at any time.
package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelspace/views-core/internal/config"
	"github.com/pixelspace/views-core/internal/models"
	"go.uber.org/zap"
)

// EventSource scans the raw event store.
type EventSource interface {
	HasEventsBefore(ctx context.Context, cutoff time.Time) (bool, error)
	FetchBatchBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ViewEventModel, error)
}

// AggregateSink transactionally merges one batch of daily aggregates and
// deletes the raw rows they were derived from.
type AggregateSink interface {
	CommitBatch(ctx context.Context, aggregates []*models.ContentStatsDailyModel, eventIDs []string) error
}

// Locker serializes rollup runs across instances. The redis client
// satisfies this directly.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

const lockKey = "vt:lock:rollup"

// Report summarizes one rollup run.
type Report struct {
	Skipped         bool  `json:"skipped"`
	Batches         int   `json:"batches"`
	EventsProcessed int64 `json:"events_processed"`
	RowsMerged      int64 `json:"rows_merged"`
}

// Service is the rollup aggregator. A single instance runs at a time,
// enforced by a redis lock; concurrent triggers exit with a skipped report.
type Service struct {
	events EventSource
	aggs   AggregateSink
	locker Locker
	cfg    config.TrackingConfig
	logger *zap.Logger
	now    func() time.Time
}

// Option customizes the service.
type Option func(*Service)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(events EventSource, aggs AggregateSink, locker Locker, cfg config.TrackingConfig, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		events: events,
		aggs:   aggs,
		locker: locker,
		cfg:    cfg,
		logger: logger.Named("RollupService"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one rollup pass: events with created_at < now-retention are
// folded into content_stats_daily in batches, each batch committing its
// aggregate merges and raw deletions in one transaction. A run cut short by
// cancellation or failure leaves the remaining rows for the next trigger;
// nothing is ever aggregated twice.
func (s *Service) Run(ctx context.Context) (Report, error) {
	var report Report

	acquired, err := s.locker.SetNX(ctx, lockKey, 1, s.cfg.RollupLockTTL())
	if err != nil {
		return report, fmt.Errorf("acquire rollup lock: %w", err)
	}
	if !acquired {
		s.logger.Info("rollup already running elsewhere, skipping")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := s.locker.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("release rollup lock failed", zap.Error(err))
		}
	}()

	cutoff := s.now().Add(-s.cfg.RawRetention())

	pending, err := s.events.HasEventsBefore(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("scan for eligible events: %w", err)
	}
	if !pending {
		return report, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		batch, err := s.events.FetchBatchBefore(ctx, cutoff, s.cfg.RollupBatchSize)
		if err != nil {
			return report, fmt.Errorf("fetch batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		aggregates, eventIDs := accumulate(batch)
		if err := s.aggs.CommitBatch(ctx, aggregates, eventIDs); err != nil {
			return report, fmt.Errorf("commit batch: %w", err)
		}

		report.Batches++
		report.EventsProcessed += int64(len(batch))
		report.RowsMerged += int64(len(aggregates))

		// Committed rows are gone from the store, so the next fetch starts
		// at the new oldest row. A short batch means the scan is done.
		if len(batch) < s.cfg.RollupBatchSize {
			break
		}
	}

	s.logger.Info("rollup complete",
		zap.Int("batches", report.Batches),
		zap.Int64("events", report.EventsProcessed),
		zap.Int64("rows", report.RowsMerged),
	)
	return report, nil
}

// dayBucket accumulates one (content_id, date) key for the current batch.
// Buckets live only for the batch; the ip set is released with it.
type dayBucket struct {
	total   int64
	ips     map[string]struct{}
	country models.CounterMap
	device  models.CounterMap
	view    models.CounterMap
}

type dayKey struct {
	contentID string
	day       time.Time
}

// accumulate folds a batch of events into per-(content, day) aggregates.
func accumulate(batch []models.ViewEventModel) ([]*models.ContentStatsDailyModel, []string) {
	buckets := make(map[dayKey]*dayBucket)
	order := make([]dayKey, 0)
	eventIDs := make([]string, 0, len(batch))

	for _, event := range batch {
		eventIDs = append(eventIDs, event.ID)

		key := dayKey{contentID: event.ContentID, day: event.Day()}
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{
				ips:     make(map[string]struct{}),
				country: models.CounterMap{},
				device:  models.CounterMap{},
				view:    models.CounterMap{},
			}
			buckets[key] = b
			order = append(order, key)
		}

		b.total++
		if event.ViewerIPHash != "" {
			b.ips[event.ViewerIPHash] = struct{}{}
		}
		b.country.Increment(event.CountryCode)
		b.device.Increment(event.DeviceType)
		b.view.Increment(event.ViewType)
	}

	aggregates := make([]*models.ContentStatsDailyModel, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		aggregates = append(aggregates, &models.ContentStatsDailyModel{
			ContentID:      key.contentID,
			Date:           key.day,
			TotalViews:     b.total,
			UniqueViewers:  int64(len(b.ips)),
			ViewsByCountry: b.country,
			ViewsByDevice:  b.device,
			ViewsByType:    b.view,
		})
	}
	return aggregates, eventIDs
}
