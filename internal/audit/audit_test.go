package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingAppender holds every append until release is closed.
type blockingAppender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	recs []*models.AIDecisionLog
}

func newBlockingAppender() *blockingAppender {
	return &blockingAppender{started: make(chan struct{}), release: make(chan struct{})}
}

func (a *blockingAppender) AppendDecision(_ context.Context, d *models.AIDecisionLog) error {
	a.once.Do(func() { close(a.started) })
	<-a.release
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, d)
	return nil
}

func (a *blockingAppender) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.recs)
}

type failingAppender struct{}

func (failingAppender) AppendDecision(context.Context, *models.AIDecisionLog) error {
	return errors.New("disk full")
}

// panickyAppender panics on the first append and stores the rest.
type panickyAppender struct {
	mu    sync.Mutex
	calls int
	recs  []*models.AIDecisionLog
}

func (a *panickyAppender) AppendDecision(_ context.Context, d *models.AIDecisionLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.calls == 1 {
		panic("store exploded")
	}
	a.recs = append(a.recs, d)
	return nil
}

func record(tenantID uuid.UUID) *models.AIDecisionLog {
	return &models.AIDecisionLog{ID: uuid.New(), TenantID: tenantID, Type: models.DecisionDelay}
}

func TestWriter_DrainsOnClose(t *testing.T) {
	s := store.NewMemoryStore()
	w := NewWriter(s, 16, zerolog.Nop(), nil)

	tenant := uuid.New()
	for i := 0; i < 10; i++ {
		assert.True(t, w.Enqueue(record(tenant)))
	}
	require.NoError(t, w.Close(context.Background()))

	logs, err := s.ListDecisions(context.Background(), store.DecisionFilter{TenantID: tenant})
	require.NoError(t, err)
	assert.Len(t, logs, 10)
}

func TestWriter_DropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewEngineMetrics(reg)
	dst := newBlockingAppender()
	w := NewWriter(dst, 1, zerolog.Nop(), m)

	tenant := uuid.New()
	require.True(t, w.Enqueue(record(tenant)))
	<-dst.started // worker holds the first record

	assert.True(t, w.Enqueue(record(tenant)), "second record fits the queue")
	assert.False(t, w.Enqueue(record(tenant)), "third record overflows")

	close(dst.release)
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, 2, dst.count())
	mfs, err := reg.Gather()
	require.NoError(t, err)
	dropped := 0.0
	for _, mf := range mfs {
		if mf.GetName() == "dispatchiq_audit_dropped_total" {
			dropped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, dropped)
}

func TestWriter_EnqueueAfterCloseDrops(t *testing.T) {
	w := NewWriter(store.NewMemoryStore(), 4, zerolog.Nop(), nil)
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))

	assert.False(t, w.Enqueue(record(uuid.New())))
}

func TestWriter_AppendFailureIsNotFatal(t *testing.T) {
	w := NewWriter(failingAppender{}, 4, zerolog.Nop(), nil)
	assert.True(t, w.Enqueue(record(uuid.New())))
	assert.True(t, w.Enqueue(record(uuid.New())))
	require.NoError(t, w.Close(context.Background()))
}

func TestWriter_RecoversFromAppenderPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewEngineMetrics(reg)
	dst := &panickyAppender{}
	w := NewWriter(dst, 4, zerolog.Nop(), m)

	tenant := uuid.New()
	first, second := record(tenant), record(tenant)
	require.True(t, w.Enqueue(first))
	require.True(t, w.Enqueue(second))
	require.NoError(t, w.Close(context.Background()))

	require.Len(t, dst.recs, 1, "worker keeps draining after a panic")
	assert.Equal(t, second.ID, dst.recs[0].ID)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	failed := 0.0
	for _, mf := range mfs {
		if mf.GetName() == "dispatchiq_audit_append_failures_total" {
			failed = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, failed)
}

func TestWriter_ConcurrentEnqueueKeepsEveryRecord(t *testing.T) {
	const n = 200
	s := store.NewMemoryStore()
	w := NewWriter(s, n, zerolog.Nop(), nil)
	l := NewLog(s, w)
	tenant := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Append(Entry{TenantID: tenant, Type: models.DecisionDelay, Confidence: 0.5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close(context.Background()))

	logs, err := l.Query(context.Background(), tenant, Filter{Limit: store.MaxLimit})
	require.NoError(t, err)
	assert.Len(t, logs, n)

	seen := make(map[uuid.UUID]struct{}, n)
	for _, d := range logs {
		seen[d.ID] = struct{}{}
	}
	assert.Len(t, seen, n, "no record overwritten")
}

func TestWriter_CloseHonoursContext(t *testing.T) {
	dst := newBlockingAppender()
	w := NewWriter(dst, 4, zerolog.Nop(), nil)
	w.Enqueue(record(uuid.New()))
	<-dst.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Close(ctx), context.DeadlineExceeded)

	close(dst.release)
	require.NoError(t, w.Close(context.Background()))
}

// newTestLog returns a Log with a fixed clock and a drain function that
// flushes the writer.
func newTestLog(t *testing.T, now time.Time) (*Log, *store.MemoryStore, func()) {
	t.Helper()
	s := store.NewMemoryStore()
	w := NewWriter(s, 64, zerolog.Nop(), nil)
	l := NewLog(s, w)
	l.now = func() time.Time { return now }
	return l, s, func() { require.NoError(t, w.Close(context.Background())) }
}

func TestLog_AppendSnapshotsEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l, s, drain := newTestLog(t, now)
	tenant := uuid.New()

	rec, err := l.Append(Entry{
		TenantID:     tenant,
		OrderID:      "ord-1",
		Type:         models.DecisionDelay,
		Input:        map[string]string{"order_id": "ord-1"},
		Output:       nil,
		Confidence:   0.55,
		FallbackUsed: true,
	})
	require.NoError(t, err)
	drain()

	assert.Equal(t, now, rec.CreatedAt)
	require.NotNil(t, rec.OrderID)
	assert.Equal(t, "ord-1", *rec.OrderID)
	assert.JSONEq(t, `{"order_id":"ord-1"}`, string(rec.Input))
	assert.JSONEq(t, `{}`, string(rec.Output))

	logs, err := s.ListDecisions(context.Background(), store.DecisionFilter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, rec.ID, logs[0].ID)
	assert.True(t, logs[0].FallbackUsed)
}

func TestLog_AppendRejectsInvalidEntries(t *testing.T) {
	l, _, drain := newTestLog(t, time.Now())
	defer drain()

	_, err := l.Append(Entry{TenantID: uuid.New(), Type: "guess"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = l.Append(Entry{TenantID: uuid.New(), Type: models.DecisionRoute, Input: json.RawMessage(`{broken`)})
	assert.Error(t, err)

	_, err = l.Append(Entry{TenantID: uuid.New(), Type: models.DecisionRoute, Output: func() {}})
	assert.Error(t, err)
}

func TestLog_QueryAndStats(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	l, s, drain := newTestLog(t, now)
	drain()
	ctx := context.Background()
	tenant := uuid.New()

	seed := []models.AIDecisionLog{
		{ID: uuid.New(), TenantID: tenant, Type: models.DecisionDelay, ConfidenceScore: 0.8, CreatedAt: now.Add(-time.Hour), Input: json.RawMessage(`{}`), Output: json.RawMessage(`{}`)},
		{ID: uuid.New(), TenantID: tenant, Type: models.DecisionRoute, ConfidenceScore: 0.4, FallbackUsed: true, CreatedAt: now.Add(-2 * time.Hour), Input: json.RawMessage(`{}`), Output: json.RawMessage(`{}`)},
		{ID: uuid.New(), TenantID: tenant, Type: models.DecisionDelay, ConfidenceScore: 0.5, CreatedAt: now.AddDate(0, 0, -40), Input: json.RawMessage(`{}`), Output: json.RawMessage(`{}`)},
		{ID: uuid.New(), TenantID: uuid.New(), Type: models.DecisionDelay, ConfidenceScore: 0.9, CreatedAt: now, Input: json.RawMessage(`{}`), Output: json.RawMessage(`{}`)},
	}
	for i := range seed {
		require.NoError(t, s.AppendDecision(ctx, &seed[i]))
	}

	all, err := l.Query(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, seed[0].ID, all[0].ID, "newest first")

	delays, err := l.Query(ctx, tenant, Filter{Type: models.DecisionDelay, Limit: 1})
	require.NoError(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, seed[0].ID, delays[0].ID)

	_, err = l.Query(ctx, tenant, Filter{Type: "nope"})
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = l.Query(ctx, tenant, Filter{From: now, To: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	stats, err := l.Stats(ctx, tenant, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDecisions)
	assert.Equal(t, 1, stats.CountsByType[models.DecisionDelay])
	assert.Equal(t, 1, stats.CountsByType[models.DecisionRoute])
	assert.InDelta(t, 0.6, stats.AverageConfidence, 1e-9)
	assert.InDelta(t, 0.5, stats.FallbackRate, 1e-9)

	stats, err = l.Stats(ctx, tenant, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDecisions, "default window is 30 days")
}

func TestLog_PruneOlderThan(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	l, s, drain := newTestLog(t, now)
	drain()
	ctx := context.Background()
	tenant := uuid.New()

	for _, age := range []int{1, 10, 100, 200} {
		require.NoError(t, s.AppendDecision(ctx, &models.AIDecisionLog{
			ID: uuid.New(), TenantID: tenant, Type: models.DecisionAlert, CreatedAt: now.AddDate(0, 0, -age),
		}))
	}

	n, err := l.PruneOlderThan(ctx, tenant, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := l.Query(ctx, tenant, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)

	_, err = l.PruneOlderThan(ctx, tenant, 0)
	assert.ErrorIs(t, err, ErrInvalidRetention)
}
