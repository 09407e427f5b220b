// Package stats computes and serves view statistics. Reads go through a
// two-tier cache; a full miss merges recent raw events with historical daily
// aggregates into one statistics object.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pixelspace/views-core/internal/config"
	"github.com/pixelspace/views-core/internal/models"
	"go.uber.org/zap"
)

// EventSource reads recent raw events.
type EventSource interface {
	FetchSince(ctx context.Context, contentID string, since time.Time) ([]models.ViewEventModel, error)
	FetchSinceMany(ctx context.Context, contentIDs []string, since time.Time) ([]models.ViewEventModel, error)
}

// AggregateSource reads historical daily rollups.
type AggregateSource interface {
	FetchRange(ctx context.Context, contentID string, from, to time.Time) ([]models.ContentStatsDailyModel, error)
	FetchRangeMany(ctx context.Context, contentIDs []string, from, to time.Time) ([]models.ContentStatsDailyModel, error)
}

// ArtworkSource resolves an author's content ids for the artist rollup.
type ArtworkSource interface {
	ContentIDsByAuthor(ctx context.Context, authorID string) ([]string, error)
}

// Service computes statistics on cache miss and populates both cache tiers.
// Statistics are eventually consistent: a concurrent recorder write may or
// may not be visible, and cached objects can lag by up to the cache TTL.
type Service struct {
	events   EventSource
	aggs     AggregateSource
	artworks ArtworkSource
	cache    *Cache
	cfg      config.TrackingConfig
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes the service.
type Option func(*Service)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(events EventSource, aggs AggregateSource, artworks ArtworkSource, cache *Cache, cfg config.TrackingConfig, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		events:   events,
		aggs:     aggs,
		artworks: artworks,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.Named("StatsService"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPostStats returns the statistics object for one artwork, serving from
// cache when possible. When the full compute path fails and an expired
// durable entry exists, the stale object is returned instead of an error;
// its computed_at tells the consumer how old it is.
func (s *Service) GetPostStats(ctx context.Context, contentID string) (*PostStats, error) {
	var out PostStats
	err := s.getCached(ctx, models.StatsScopePost, contentID, &out, func(cctx context.Context) (interface{}, error) {
		return s.computePost(cctx, contentID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetArtistStats returns statistics summed across every artwork the author
// owns, with the same cache and fallback behavior as GetPostStats.
func (s *Service) GetArtistStats(ctx context.Context, artistID string) (*ArtistStats, error) {
	var out ArtistStats
	err := s.getCached(ctx, models.StatsScopeArtist, artistID, &out, func(cctx context.Context) (interface{}, error) {
		return s.computeArtist(cctx, artistID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InvalidatePost drops both cache tiers' entries for one artwork.
func (s *Service) InvalidatePost(ctx context.Context, contentID string) error {
	return s.cache.Invalidate(ctx, models.StatsScopePost, contentID)
}

// InvalidateArtist drops both cache tiers' entries for one author.
func (s *Service) InvalidateArtist(ctx context.Context, artistID string) error {
	return s.cache.Invalidate(ctx, models.StatsScopeArtist, artistID)
}

// CleanupExpiredCache prunes expired durable cache rows (the hourly job).
func (s *Service) CleanupExpiredCache(ctx context.Context) (int64, error) {
	return s.cache.CleanupExpired(ctx)
}

// getCached implements the read-through path shared by both stats shapes.
func (s *Service) getCached(ctx context.Context, scope, subjectID string, out interface{}, compute func(context.Context) (interface{}, error)) error {
	payload, stale, err := s.cache.Lookup(ctx, scope, subjectID)
	if err != nil {
		// Cache-tier unavailability degrades to a full compute.
		s.logger.Warn("cache lookup failed", zap.String("scope", scope), zap.Error(err))
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), out); err == nil {
			return nil
		}
		s.logger.Warn("cached stats payload unreadable, recomputing", zap.String("scope", scope))
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.ComputeTimeout())
	defer cancel()

	computed, computeErr := compute(cctx)
	if computeErr != nil {
		if stale != nil {
			if err := json.Unmarshal([]byte(stale.Payload), out); err == nil {
				s.logger.Warn("stats compute failed, serving stale cache",
					zap.String("scope", scope), zap.Error(computeErr))
				return nil
			}
		}
		return fmt.Errorf("compute %s stats: %w", scope, computeErr)
	}

	raw, err := json.Marshal(computed)
	if err != nil {
		return fmt.Errorf("encode %s stats: %w", scope, err)
	}
	if err := s.cache.Store(ctx, scope, subjectID, string(raw), s.now()); err != nil {
		// The object is already computed; a cache write failure only costs
		// the next reader a recompute.
		s.logger.Warn("cache store failed", zap.String("scope", scope), zap.Error(err))
	}
	return json.Unmarshal(raw, out)
}

func (s *Service) computePost(ctx context.Context, contentID string) (*PostStats, error) {
	now := s.now()
	rawSince := now.Add(-s.cfg.RawRetention())
	trendStart, trendEnd := s.trendRange(now)

	events, err := s.events.FetchSince(ctx, contentID, rawSince)
	if err != nil {
		return nil, fmt.Errorf("fetch raw events: %w", err)
	}
	rows, err := s.aggs.FetchRange(ctx, contentID, trendStart, trendEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch daily aggregates: %w", err)
	}

	acc := accumulate(events, rows, trendStart, s.cfg.TrendWindowDays)
	return &PostStats{
		ContentID:     contentID,
		Breakdown:     acc.all,
		Authenticated: acc.auth,
		DailyTrend:    acc.trend,
		ComputedAt:    now,
	}, nil
}

func (s *Service) computeArtist(ctx context.Context, artistID string) (*ArtistStats, error) {
	now := s.now()
	rawSince := now.Add(-s.cfg.RawRetention())
	trendStart, trendEnd := s.trendRange(now)

	contentIDs, err := s.artworks.ContentIDsByAuthor(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("resolve artworks: %w", err)
	}

	events, err := s.events.FetchSinceMany(ctx, contentIDs, rawSince)
	if err != nil {
		return nil, fmt.Errorf("fetch raw events: %w", err)
	}
	rows, err := s.aggs.FetchRangeMany(ctx, contentIDs, trendStart, trendEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch daily aggregates: %w", err)
	}

	acc := accumulate(events, rows, trendStart, s.cfg.TrendWindowDays)

	byArtwork := make([]ArtworkTotal, 0, len(contentIDs))
	for _, id := range contentIDs {
		byArtwork = append(byArtwork, ArtworkTotal{ContentID: id, TotalViews: acc.perContent[id]})
	}

	return &ArtistStats{
		ArtistID:      artistID,
		ArtworkCount:  len(contentIDs),
		Breakdown:     acc.all,
		Authenticated: acc.auth,
		DailyTrend:    acc.trend,
		ByArtwork:     byArtwork,
		ComputedAt:    now,
	}, nil
}

// trendRange returns [start, end) of the trend window in whole UTC days,
// with end exclusive just past today so raw and aggregated days line up.
func (s *Service) trendRange(now time.Time) (time.Time, time.Time) {
	today := models.DayOf(now)
	start := today.AddDate(0, 0, -(s.cfg.TrendWindowDays - 1))
	return start, today.AddDate(0, 0, 1)
}

type accumulated struct {
	all        Breakdown
	auth       Breakdown
	trend      []TrendPoint
	perContent map[string]int64
}

// accumulate merges raw events and daily aggregate rows field by field. The
// two sources never overlap for a given event: a raw row is deleted in the
// same transaction that folds it into an aggregate, so summing both is
// exact. Unique viewers remain approximate across the raw/aggregated
// boundary and across merged aggregate batches.
func accumulate(events []models.ViewEventModel, rows []models.ContentStatsDailyModel, trendStart time.Time, trendDays int) accumulated {
	acc := accumulated{
		all:        emptyBreakdown(),
		auth:       emptyBreakdown(),
		perContent: make(map[string]int64),
	}
	byDay := make(map[string]int64)

	for _, row := range rows {
		acc.all.TotalViews += row.TotalViews
		acc.all.UniqueViewers += row.UniqueViewers
		acc.all.ViewsByCountry.Merge(row.ViewsByCountry)
		acc.all.ViewsByDevice.Merge(row.ViewsByDevice)
		acc.all.ViewsByType.Merge(row.ViewsByType)
		byDay[models.DayOf(row.Date).Format("2006-01-02")] += row.TotalViews
		acc.perContent[row.ContentID] += row.TotalViews
	}

	rawIPs := make(map[string]struct{})
	authViewers := make(map[string]struct{})
	for _, event := range events {
		acc.all.TotalViews++
		if event.ViewerIPHash != "" {
			rawIPs[event.ViewerIPHash] = struct{}{}
		}
		acc.all.ViewsByCountry.Increment(event.CountryCode)
		acc.all.ViewsByDevice.Increment(event.DeviceType)
		acc.all.ViewsByType.Increment(event.ViewType)
		byDay[event.Day().Format("2006-01-02")]++
		acc.perContent[event.ContentID]++

		if event.Authenticated() {
			acc.auth.TotalViews++
			authViewers[*event.ViewerUserID] = struct{}{}
			acc.auth.ViewsByCountry.Increment(event.CountryCode)
			acc.auth.ViewsByDevice.Increment(event.DeviceType)
			acc.auth.ViewsByType.Increment(event.ViewType)
		}
	}
	acc.all.UniqueViewers += int64(len(rawIPs))
	acc.auth.UniqueViewers = int64(len(authViewers))

	acc.trend = make([]TrendPoint, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := trendStart.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		acc.trend = append(acc.trend, TrendPoint{Date: key, Views: byDay[key]})
	}
	return acc
}
