package record

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelspace/views-core/internal/config"
	"github.com/pixelspace/views-core/internal/models"
	"github.com/pixelspace/views-core/internal/pkg/privacy"
	"go.uber.org/zap"
)

// EventSink persists batches of view events.
type EventSink interface {
	InsertBatch(ctx context.Context, events []*models.ViewEventModel) error
}

// CounterSink bumps denormalized per-artwork view counters.
type CounterSink interface {
	IncrementViewCounts(ctx context.Context, counts map[string]int64) error
}

// DedupGuard claims a (content, identity) slot for the dedup window. The
// redis client satisfies this directly.
type DedupGuard interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

const flushTimeout = 10 * time.Second

// Service is the event recorder: it hashes viewer identity, suppresses
// rapid-fire duplicates, and hands the write to a background flusher so the
// triggering request never waits on storage. Failures are logged and the
// view is dropped; tracking must never fail a request.
type Service struct {
	events   EventSink
	counters CounterSink
	guard    DedupGuard
	hasher   *privacy.Hasher
	cfg      config.TrackingConfig
	logger   *zap.Logger

	queue chan *models.ViewEventModel
	done  chan struct{}
}

func NewService(events EventSink, counters CounterSink, guard DedupGuard, hasher *privacy.Hasher, cfg config.TrackingConfig, logger *zap.Logger) *Service {
	return &Service{
		events:   events,
		counters: counters,
		guard:    guard,
		hasher:   hasher,
		cfg:      cfg,
		logger:   logger.Named("RecordService"),
		queue:    make(chan *models.ViewEventModel, cfg.RecordQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the background flusher. Cancel the context to stop it; the
// flusher drains whatever is still queued before exiting.
func (s *Service) Start(ctx context.Context) {
	go s.flushLoop(ctx)
}

// Wait blocks until the flusher has drained and exited.
func (s *Service) Wait() {
	<-s.done
}

// Record validates and enqueues one view. The only errors surfaced are
// payload validation errors; everything downstream is fire-and-forget.
func (s *Service) Record(ctx context.Context, in RecordViewInput) error {
	if err := in.normalize(); err != nil {
		return err
	}

	ipHash := s.hasher.HashIP(in.IP)
	event := &models.ViewEventModel{
		ContentID:      in.ContentID,
		ViewerUserID:   in.ViewerUserID,
		ViewerIPHash:   ipHash,
		CountryCode:    in.CountryCode,
		DeviceType:     in.DeviceType,
		ViewSource:     in.ViewSource,
		ViewType:       in.ViewType,
		UserAgentHash:  s.hasher.HashUserAgent(in.UserAgent),
		ReferrerDomain: referrerDomain(in.Referrer),
		PlayerID:       in.PlayerID,
		LocalDatetime:  in.LocalDatetime,
		LocalTimezone:  in.LocalTimezone,
		PlayOrder:      in.PlayOrder,
		Channel:        in.Channel,
		ChannelContext: in.ChannelContext,
		CreatedAt:      time.Now(),
	}

	if s.isDuplicate(ctx, event, ipHash) {
		return nil
	}

	select {
	case s.queue <- event:
	default:
		// Backpressure: the store is behind. The view is lost, the request
		// is not.
		s.logger.Warn("record queue full, dropping view", zap.String("content_id", in.ContentID))
	}
	return nil
}

// isDuplicate claims the dedup slot for this view's originating identity.
// Redis unavailability fails open: better an occasional double count than
// dropped views.
func (s *Service) isDuplicate(ctx context.Context, event *models.ViewEventModel, ipHash string) bool {
	window := s.cfg.DedupWindow()
	if window <= 0 {
		return false
	}

	identity := ipHash
	if event.Authenticated() {
		identity = *event.ViewerUserID
	}
	if identity == "" {
		return false
	}

	key := fmt.Sprintf("vt:seen:%s:%s", event.ContentID, identity)
	claimed, err := s.guard.SetNX(ctx, key, 1, window)
	if err != nil {
		s.logger.Warn("dedup check failed, recording anyway", zap.Error(err))
		return false
	}
	return !claimed
}

func (s *Service) flushLoop(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.RecordFlushInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]*models.ViewEventModel, 0, s.cfg.RecordFlushBatch)
	for {
		select {
		case event := <-s.queue:
			batch = append(batch, event)
			if len(batch) >= s.cfg.RecordFlushBatch {
				batch = s.flush(batch)
			}
		case <-ticker.C:
			batch = s.flush(batch)
		case <-ctx.Done():
			batch = s.drain(batch)
			s.flush(batch)
			return
		}
	}
}

// drain empties whatever is left in the queue after shutdown began.
func (s *Service) drain(batch []*models.ViewEventModel) []*models.ViewEventModel {
	for {
		select {
		case event := <-s.queue:
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

// flush writes one batch; on failure the events are dropped with a log line.
// Always returns an empty slice reusing the batch's backing array.
func (s *Service) flush(batch []*models.ViewEventModel) []*models.ViewEventModel {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := s.events.InsertBatch(ctx, batch); err != nil {
		s.logger.Warn("flush failed, dropping views", zap.Int("count", len(batch)), zap.Error(err))
		return batch[:0]
	}

	counts := make(map[string]int64, len(batch))
	for _, event := range batch {
		counts[event.ContentID]++
	}
	if err := s.counters.IncrementViewCounts(ctx, counts); err != nil {
		s.logger.Warn("view counter bump failed", zap.Error(err))
	}

	return batch[:0]
}
