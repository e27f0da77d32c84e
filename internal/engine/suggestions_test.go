package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zigzagRoute doubles back on itself and has one congested leg, so it
// yields both a reorder and an alternative route suggestion.
func zigzagRoute() *models.CurrentRoute {
	return &models.CurrentRoute{
		DriverID: "drv-1",
		Points: []models.RoutePoint{
			stop("a", 0, models.PriorityMedium),
			stop("c", 2, models.PriorityMedium),
			stop("b", 1, models.PriorityMedium),
		},
		LegTraffic: []models.TrafficLevel{models.TrafficHigh, models.TrafficLow},
	}
}

func TestGenerateRouteSuggestions(t *testing.T) {
	h := newHarness(t)
	h.routes.route = zigzagRoute()
	h.driverStats.stats = &models.DriverStats{DriverID: "drv-1", AverageDelayMinutes: 35, OnTimeRate: 0.4, Percentile: 10}

	got, err := h.eng.GenerateRouteSuggestions(context.Background(), h.tenant, "drv-1")
	require.NoError(t, err)
	require.Len(t, got, 3, "default max suggestions is 3")
	assert.Equal(t, models.SuggestionReorderStops, got[0].Type)
	assert.Equal(t, models.SuggestionAlternativeRoute, got[1].Type)
	assert.Equal(t, models.SuggestionChangeDriver, got[2].Type)
	for _, s := range got {
		assert.Equal(t, models.SuggestionPending, s.Status)
		assert.Equal(t, h.tenant, s.TenantID)
	}

	stored, err := h.store.ListSuggestions(context.Background(), store.SuggestionFilter{TenantID: h.tenant})
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	h.flush(t)
	logs := h.decisions(t, models.DecisionRoute)
	require.Len(t, logs, 1)
	var in suggestionInput
	decode(t, logs[0].Input, &in)
	assert.True(t, in.HighTrafficLeg)
	assert.Equal(t, 3, in.PointCount)

	alerts := h.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeRouteSuggestions, alerts[0].Type)
	assert.Equal(t, models.SeverityInfo, alerts[0].Severity)
}

func TestGenerateRouteSuggestions_TruncatesToSetting(t *testing.T) {
	h := newHarness(t)
	h.routes.route = zigzagRoute()
	h.disableSetting(t, models.SettingsPatch{MaxSuggestionsPerDriver: ptr(1)})

	got, err := h.eng.GenerateRouteSuggestions(context.Background(), h.tenant, "drv-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.SuggestionReorderStops, got[0].Type)
}

func TestGenerateRouteSuggestions_Empty(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, h *harness)
	}{
		{"single point route", func(_ *testing.T, h *harness) {
			h.routes.route = &models.CurrentRoute{Points: []models.RoutePoint{stop("a", 0, models.PriorityHigh)}}
		}},
		{"no route", func(_ *testing.T, h *harness) { h.routes.route = nil }},
		{"route provider failure", func(_ *testing.T, h *harness) { h.routes.route = nil; h.routes.err = errBoom }},
		{"plan disabled", func(_ *testing.T, h *harness) { h.gate.route = false }},
		{"settings disabled", func(t *testing.T, h *harness) {
			h.disableSetting(t, models.SettingsPatch{RouteOptimizationEnabled: ptr(false)})
		}},
		{"insufficient data", func(_ *testing.T, h *harness) { h.dataset.sufficient = false }},
		{"dataset failure", func(_ *testing.T, h *harness) { h.dataset.err = errBoom }},
		{"zero max suggestions", func(t *testing.T, h *harness) {
			h.disableSetting(t, models.SettingsPatch{MaxSuggestionsPerDriver: ptr(0)})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.routes.route = zigzagRoute()
			tt.mutate(t, h)

			got, err := h.eng.GenerateRouteSuggestions(context.Background(), h.tenant, "drv-1")
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)

			h.flush(t)
			assert.Empty(t, h.alerts(t))
		})
	}
}

func TestGenerateRouteSuggestions_DriverStatsFailureIsTolerated(t *testing.T) {
	h := newHarness(t)
	h.routes.route = zigzagRoute()
	h.driverStats.err = errBoom

	got, err := h.eng.GenerateRouteSuggestions(context.Background(), h.tenant, "drv-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGenerateRouteSuggestions_InvalidRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.eng.GenerateRouteSuggestions(context.Background(), h.tenant, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func saveSuggestion(t *testing.T, h *harness, expiresAt time.Time) models.RouteSuggestion {
	t.Helper()
	s := models.RouteSuggestion{
		ID:        uuid.New(),
		TenantID:  h.tenant,
		DriverID:  "drv-1",
		Type:      models.SuggestionReorderStops,
		Priority:  models.PriorityMedium,
		Title:     "Reorder remaining stops",
		Status:    models.SuggestionPending,
		CreatedAt: fixedNow.Add(-time.Minute),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, h.store.SaveSuggestions(context.Background(), []models.RouteSuggestion{s}))
	return s
}

func TestApproveAndRejectSuggestion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	approved := saveSuggestion(t, h, fixedNow.Add(time.Hour))
	got, err := h.eng.ApproveSuggestion(ctx, h.tenant, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, got.Status)

	_, err = h.eng.RejectSuggestion(ctx, h.tenant, approved.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	rejected := saveSuggestion(t, h, fixedNow.Add(time.Hour))
	got, err = h.eng.RejectSuggestion(ctx, h.tenant, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionRejected, got.Status)

	stored, err := h.store.GetSuggestion(ctx, approved.ID, h.tenant)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionApproved, stored.Status)

	_, err = h.eng.ApproveSuggestion(ctx, h.tenant, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.eng.ApproveSuggestion(ctx, uuid.New(), rejected.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApproveSuggestion_Expired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := saveSuggestion(t, h, fixedNow)

	_, err := h.eng.ApproveSuggestion(ctx, h.tenant, s.ID)
	assert.ErrorIs(t, err, models.ErrSuggestionExpired)

	stored, err := h.store.GetSuggestion(ctx, s.ID, h.tenant)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionExpired, stored.Status)

	_, err = h.eng.RejectSuggestion(ctx, h.tenant, s.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestListSuggestions_ReportsLapsedAsExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	live := saveSuggestion(t, h, fixedNow.Add(time.Hour))
	lapsed := saveSuggestion(t, h, fixedNow.Add(-time.Second))

	all, err := h.eng.ListSuggestions(ctx, h.tenant, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := h.eng.ListSuggestions(ctx, h.tenant, "drv-1", models.SuggestionPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ID)

	expired, err := h.eng.ListSuggestions(ctx, h.tenant, "", models.SuggestionExpired, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, lapsed.ID, expired[0].ID)

	none, err := h.eng.ListSuggestions(ctx, h.tenant, "drv-2", "", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListSuggestions_LimitAppliesAfterExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	live := saveSuggestion(t, h, fixedNow.Add(time.Hour))

	// newer but lapsed rows sort ahead of the live one
	for i := 0; i < 3; i++ {
		lapsed := models.RouteSuggestion{
			ID:        uuid.New(),
			TenantID:  h.tenant,
			DriverID:  "drv-1",
			Type:      models.SuggestionAlternativeRoute,
			Priority:  models.PriorityLow,
			Title:     "Avoid congested leg",
			Status:    models.SuggestionPending,
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Second),
			ExpiresAt: fixedNow.Add(-time.Second),
		}
		require.NoError(t, h.store.SaveSuggestions(ctx, []models.RouteSuggestion{lapsed}))
	}

	pending, err := h.eng.ListSuggestions(ctx, h.tenant, "", models.SuggestionPending, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ID)
	assert.Equal(t, models.SuggestionPending, pending[0].Status)

	expired, err := h.eng.ListSuggestions(ctx, h.tenant, "", models.SuggestionExpired, 2)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	for _, s := range expired {
		assert.Equal(t, models.SuggestionExpired, s.Status)
	}
}
