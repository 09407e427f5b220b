package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelspace/views-core/internal/models"
	"go.uber.org/zap"
)

// FastCache is the low-latency tier. The redis client satisfies this
// directly; every operation degrades gracefully when it is down.
type FastCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// DurableCache is the persisted fallback tier.
type DurableCache interface {
	Get(ctx context.Context, scope, subjectID string) (*models.ContentStatsCacheModel, error)
	Put(ctx context.Context, row *models.ContentStatsCacheModel) error
	Delete(ctx context.Context, scope, subjectID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cache is the two-tier read-through stats cache: redis with a short TTL in
// front, a persisted table behind it to survive fast-tier restarts. Entries
// are whole serialized stats objects; writes are last-write-wins.
type Cache struct {
	fast    FastCache
	durable DurableCache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewCache(fast FastCache, durable DurableCache, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		fast:    fast,
		durable: durable,
		ttl:     ttl,
		logger:  logger.Named("StatsCache"),
		now:     time.Now,
	}
}

func cacheKey(scope, subjectID string) string {
	return fmt.Sprintf("vt:stats:%s:%s", scope, subjectID)
}

// Lookup walks the tiers: fast hit returns immediately; a live durable row
// backfills the fast tier and returns; otherwise payload is "" and stale
// carries the expired durable row, if one exists, for failure fallback.
func (c *Cache) Lookup(ctx context.Context, scope, subjectID string) (payload string, stale *models.ContentStatsCacheModel, err error) {
	key := cacheKey(scope, subjectID)

	if val, err := c.fast.Get(ctx, key); err != nil {
		c.logger.Warn("fast tier read failed", zap.Error(err))
	} else if val != "" {
		return val, nil, nil
	}

	row, err := c.durable.Get(ctx, scope, subjectID)
	if err != nil {
		return "", nil, fmt.Errorf("durable tier read: %w", err)
	}
	if row == nil {
		return "", nil, nil
	}
	if row.Expired(c.now()) {
		return "", row, nil
	}

	if err := c.fast.Set(ctx, key, row.Payload, time.Until(row.ExpiresAt)); err != nil {
		c.logger.Warn("fast tier backfill failed", zap.Error(err))
	}
	return row.Payload, nil, nil
}

// Store writes the computed payload into both tiers before it is returned
// to the caller. A durable-tier failure is surfaced; a fast-tier failure is
// not, since the durable row alone still serves later lookups.
func (c *Cache) Store(ctx context.Context, scope, subjectID, payload string, computedAt time.Time) error {
	expiresAt := computedAt.Add(c.ttl)

	if err := c.durable.Put(ctx, &models.ContentStatsCacheModel{
		Scope:      scope,
		SubjectID:  subjectID,
		Payload:    payload,
		ComputedAt: computedAt,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return fmt.Errorf("durable tier write: %w", err)
	}

	if err := c.fast.Set(ctx, cacheKey(scope, subjectID), payload, c.ttl); err != nil {
		c.logger.Warn("fast tier write failed", zap.Error(err))
	}
	return nil
}

// Invalidate removes both tiers' entries. Collaborators call this whenever
// an external event changes the ground truth for a subject; the cache never
// snoops writes.
func (c *Cache) Invalidate(ctx context.Context, scope, subjectID string) error {
	if err := c.fast.Del(ctx, cacheKey(scope, subjectID)); err != nil {
		c.logger.Warn("fast tier delete failed", zap.Error(err))
	}
	if err := c.durable.Delete(ctx, scope, subjectID); err != nil {
		return fmt.Errorf("durable tier delete: %w", err)
	}
	return nil
}

// CleanupExpired prunes expired durable rows. Runs hourly from the
// scheduler; rows lingering until the next sweep are acceptable because
// expiry is also checked per read.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := c.durable.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("prune expired cache rows: %w", err)
	}
	return deleted, nil
}
