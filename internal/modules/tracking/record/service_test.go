package record

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pixelspace/views-core/internal/config"
	"github.com/pixelspace/views-core/internal/models"
	"github.com/pixelspace/views-core/internal/pkg/privacy"
)

type memorySink struct {
	mu        sync.Mutex
	events    []*models.ViewEventModel
	counts    map[string]int64
	insertErr error
}

func newMemorySink() *memorySink {
	return &memorySink{counts: map[string]int64{}}
}

func (m *memorySink) InsertBatch(_ context.Context, events []*models.ViewEventModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *memorySink) IncrementViewCounts(_ context.Context, counts map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range counts {
		m.counts[id] += n
	}
	return nil
}

func (m *memorySink) stored() []*models.ViewEventModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ViewEventModel, len(m.events))
	copy(out, m.events)
	return out
}

func (m *memorySink) countFor(contentID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[contentID]
}

type memoryGuard struct {
	mu     sync.Mutex
	seen   map[string]bool
	err    error
	called int
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.called++
	if g.err != nil {
		return false, g.err
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func testTrackingConfig() config.TrackingConfig {
	return config.TrackingConfig{
		HashSalt:              "test-salt",
		RawRetentionDays:      7,
		TrendWindowDays:       30,
		StatsCacheTTLSeconds:  300,
		DedupWindowSeconds:    5,
		ComputeTimeoutSeconds: 10,
		RollupBatchSize:       100,
		RecordQueueSize:       64,
		RecordFlushBatch:      4,
		RecordFlushIntervalMS: 20,
	}
}

func startedService(t *testing.T, sink *memorySink, guard *memoryGuard, cfg config.TrackingConfig) *Service {
	t.Helper()
	svc := NewService(sink, sink, guard, privacy.NewHasher(cfg.HashSalt), cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		svc.Wait()
	})
	return svc
}

func TestService_Record_NeverStoresRawIdentity(t *testing.T) {
	sink := newMemorySink()
	svc := startedService(t, sink, newMemoryGuard(), testTrackingConfig())

	in := RecordViewInput{
		ContentID: "art-1",
		IP:        "203.0.113.9",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64)",
	}
	require.NoError(t, svc.Record(context.Background(), in))

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	event := sink.stored()[0]
	assert.NotEmpty(t, event.ViewerIPHash)
	assert.NotEmpty(t, event.UserAgentHash)
	assert.NotContains(t, event.ViewerIPHash, "203.0.113.9")
	assert.NotContains(t, event.UserAgentHash, "Mozilla")
	assert.NotEqual(t, in.IP, event.ViewerIPHash)
	assert.NotEqual(t, in.UserAgent, event.UserAgentHash)
	for _, field := range []string{event.CountryCode, event.ReferrerDomain, event.Channel} {
		assert.False(t, strings.Contains(field, "203.0.113.9"))
	}
}

func TestService_Record_SuppressesRapidDuplicates(t *testing.T) {
	sink := newMemorySink()
	svc := startedService(t, sink, newMemoryGuard(), testTrackingConfig())

	in := RecordViewInput{ContentID: "art-1", IP: "203.0.113.9"}
	require.NoError(t, svc.Record(context.Background(), in))
	require.NoError(t, svc.Record(context.Background(), in))
	require.NoError(t, svc.Record(context.Background(), in))

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Give the flusher a tick to surface any stragglers.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.stored(), 1)
	assert.Equal(t, int64(1), sink.countFor("art-1"))
}

func TestService_Record_DistinctViewersAreNotDeduped(t *testing.T) {
	sink := newMemorySink()
	svc := startedService(t, sink, newMemoryGuard(), testTrackingConfig())

	require.NoError(t, svc.Record(context.Background(), RecordViewInput{ContentID: "art-1", IP: "203.0.113.9"}))
	require.NoError(t, svc.Record(context.Background(), RecordViewInput{ContentID: "art-1", IP: "203.0.113.10"}))

	userID := "viewer-1"
	require.NoError(t, svc.Record(context.Background(), RecordViewInput{
		ContentID:    "art-1",
		IP:           "203.0.113.9",
		ViewerUserID: &userID,
	}))

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_Record_DedupIdentityPrefersUserID(t *testing.T) {
	sink := newMemorySink()
	guard := newMemoryGuard()
	svc := startedService(t, sink, guard, testTrackingConfig())

	userID := "viewer-1"
	// Same user from two addresses still counts once inside the window.
	require.NoError(t, svc.Record(context.Background(), RecordViewInput{
		ContentID: "art-1", IP: "203.0.113.9", ViewerUserID: &userID,
	}))
	require.NoError(t, svc.Record(context.Background(), RecordViewInput{
		ContentID: "art-1", IP: "203.0.113.10", ViewerUserID: &userID,
	}))

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_Record_FailsOpenWhenGuardUnavailable(t *testing.T) {
	sink := newMemorySink()
	guard := newMemoryGuard()
	guard.err = errors.New("redis down")
	svc := startedService(t, sink, guard, testTrackingConfig())

	in := RecordViewInput{ContentID: "art-1", IP: "203.0.113.9"}
	require.NoError(t, svc.Record(context.Background(), in))
	require.NoError(t, svc.Record(context.Background(), in))

	require.Eventually(t, func() bool {
		return len(sink.stored()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_Record_RejectsInvalidPayload(t *testing.T) {
	sink := newMemorySink()
	svc := startedService(t, sink, newMemoryGuard(), testTrackingConfig())

	err := svc.Record(context.Background(), RecordViewInput{
		ContentID: "art-1",
		PlayerID:  "p-1",
	})
	assert.Error(t, err)
	assert.Empty(t, sink.stored())
}

func TestService_FlushesFullBatchBeforeTicker(t *testing.T) {
	cfg := testTrackingConfig()
	cfg.RecordFlushIntervalMS = 60_000 // ticker must not be what triggers
	cfg.DedupWindowSeconds = 0
	sink := newMemorySink()
	svc := startedService(t, sink, newMemoryGuard(), cfg)

	for i := 0; i < cfg.RecordFlushBatch; i++ {
		require.NoError(t, svc.Record(context.Background(), RecordViewInput{
			ContentID: "art-1",
			IP:        "203.0.113.9",
		}))
	}

	require.Eventually(t, func() bool {
		return len(sink.stored()) == cfg.RecordFlushBatch
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(cfg.RecordFlushBatch), sink.countFor("art-1"))
}

func TestService_DrainsQueueOnShutdown(t *testing.T) {
	cfg := testTrackingConfig()
	cfg.RecordFlushIntervalMS = 60_000
	cfg.RecordFlushBatch = 1000
	cfg.DedupWindowSeconds = 0

	sink := newMemorySink()
	svc := NewService(sink, sink, newMemoryGuard(), privacy.NewHasher(cfg.HashSalt), cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Record(context.Background(), RecordViewInput{
			ContentID: "art-1",
			IP:        "203.0.113.9",
		}))
	}

	cancel()
	svc.Wait()

	assert.Len(t, sink.stored(), 10)
}

func TestService_DropsWhenQueueFull(t *testing.T) {
	cfg := testTrackingConfig()
	cfg.RecordQueueSize = 2
	cfg.DedupWindowSeconds = 0

	sink := newMemorySink()
	// Never started: the queue fills and overflow is dropped, not blocked on.
	svc := NewService(sink, sink, newMemoryGuard(), privacy.NewHasher(cfg.HashSalt), cfg, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = svc.Record(context.Background(), RecordViewInput{ContentID: "art-1", IP: "203.0.113.9"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}
