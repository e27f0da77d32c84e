package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/alerts"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/settings"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeGate struct {
	delay, route, alerts bool
}

func (g *fakeGate) CanUseDelayPrediction(context.Context, uuid.UUID) bool   { return g.delay }
func (g *fakeGate) CanUseRouteOptimization(context.Context, uuid.UUID) bool { return g.route }
func (g *fakeGate) CanUseAutoAlerts(context.Context, uuid.UUID) bool        { return g.alerts }

type fakeHistory struct {
	records []models.DeliveryHistoryRecord
	err     error
	calls   atomic.Int32
}

func (f *fakeHistory) GetDeliveryHistory(context.Context, uuid.UUID, models.HistoryFilter) ([]models.DeliveryHistoryRecord, error) {
	f.calls.Add(1)
	return f.records, f.err
}

type fakeConditions struct {
	cond  models.CurrentConditions
	err   error
	calls atomic.Int32
}

func (f *fakeConditions) GetCurrentConditions(_ context.Context, _ uuid.UUID, orderID string) (models.CurrentConditions, error) {
	f.calls.Add(1)
	c := f.cond
	c.OrderID = orderID
	return c, f.err
}

type fakeDataset struct {
	sufficient bool
	err        error
}

func (f *fakeDataset) IsDatasetSufficient(context.Context, uuid.UUID) (bool, error) {
	return f.sufficient, f.err
}

type fakeRoutes struct {
	route *models.CurrentRoute
	err   error
}

func (f *fakeRoutes) GetCurrentRoute(context.Context, uuid.UUID, string) (*models.CurrentRoute, error) {
	if f.route == nil {
		return nil, f.err
	}
	r := *f.route
	return &r, f.err
}

type fakeDriverStats struct {
	stats *models.DriverStats
	err   error
}

func (f *fakeDriverStats) GetDriverStats(context.Context, uuid.UUID, string) (*models.DriverStats, error) {
	return f.stats, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []models.AIAlert
}

func (s *recordingSink) Publish(_ context.Context, a models.AIAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// --- harness ---

var fixedNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	eng         *Engine
	store       *store.MemoryStore
	writer      *audit.Writer
	gate        *fakeGate
	history     *fakeHistory
	conditions  *fakeConditions
	dataset     *fakeDataset
	routes      *fakeRoutes
	driverStats *fakeDriverStats
	sink        *recordingSink
	tenant      uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:       store.NewMemoryStore(),
		gate:        &fakeGate{delay: true, route: true, alerts: true},
		history:     &fakeHistory{records: completedHistory(40)},
		conditions:  &fakeConditions{cond: models.CurrentConditions{DriverID: "drv-1", Region: "north", ETAOriginal: fixedNow.Add(time.Hour)}},
		dataset:     &fakeDataset{sufficient: true},
		routes:      &fakeRoutes{},
		driverStats: &fakeDriverStats{},
		sink:        &recordingSink{},
		tenant:      uuid.New(),
	}
	h.writer = audit.NewWriter(h.store, 64, zerolog.Nop(), nil)
	t.Cleanup(func() { _ = h.writer.Close(context.Background()) })

	settingsSvc := settings.NewService(h.store)
	h.eng = New(Dependencies{
		Store:       h.store,
		Settings:    settingsSvc,
		Alerts:      alerts.NewService(h.store, h.sink, zerolog.Nop()),
		Audit:       audit.NewLog(h.store, h.writer),
		Gate:        h.gate,
		History:     h.history,
		Conditions:  h.conditions,
		Dataset:     h.dataset,
		Routes:      h.routes,
		DriverStats: h.driverStats,
		Executor:    deadline.NewExecutor(zerolog.Nop(), nil),
		Logger:      zerolog.Nop(),
		Deadline:    deadline.DefaultBudget,
	})
	h.eng.now = func() time.Time { return fixedNow }
	return h
}

// flush waits until every queued audit record is stored.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	require.NoError(t, h.writer.Close(context.Background()))
}

func (h *harness) decisions(t *testing.T, typ models.DecisionType) []*models.AIDecisionLog {
	t.Helper()
	logs, err := h.store.ListDecisions(context.Background(), store.DecisionFilter{TenantID: h.tenant, Type: typ})
	require.NoError(t, err)
	return logs
}

func (h *harness) alerts(t *testing.T) []*models.AIAlert {
	t.Helper()
	list, err := h.store.ListAlerts(context.Background(), store.AlertFilter{TenantID: h.tenant})
	require.NoError(t, err)
	return list
}

func (h *harness) disableSetting(t *testing.T, patch models.SettingsPatch) {
	t.Helper()
	_, err := h.eng.UpdateSettings(context.Background(), h.tenant, patch)
	require.NoError(t, err)
}

func completedHistory(n int) []models.DeliveryHistoryRecord {
	out := make([]models.DeliveryHistoryRecord, n)
	for i := range out {
		out[i] = models.DeliveryHistoryRecord{
			OrderID:   uuid.NewString(),
			DriverID:  "drv-1",
			Status:    models.DeliveryCompleted,
			HourOfDay: 14,
			Region:    "north",
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

var errBoom = errors.New("boom")
