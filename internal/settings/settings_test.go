package settings

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

func ptr[T any](v T) *T { return &v }

func newTestService(now time.Time) *Service {
	s := NewService(store.NewMemoryStore())
	s.now = func() time.Time { return now }
	return s
}

func TestService_GetCreatesDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := newTestService(now)
	tenant := uuid.New()

	st, err := svc.Get(context.Background(), tenant)
	require.NoError(t, err)

	assert.Equal(t, tenant, st.TenantID)
	assert.True(t, st.DelayPredictionEnabled)
	assert.True(t, st.RouteOptimizationEnabled)
	assert.True(t, st.AutoAlertsEnabled)
	assert.Equal(t, 0.7, st.ConfidenceThreshold)
	assert.Equal(t, 120, st.PredictionHorizonMinutes)
	assert.Equal(t, 3, st.MaxSuggestionsPerDriver)
	assert.False(t, st.WorkingHoursEnabled)
	assert.Equal(t, now, st.CreatedAt)
}

func TestService_UpdateAppliesPatch(t *testing.T) {
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	svc := newTestService(created)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := svc.Get(ctx, tenant)
	require.NoError(t, err)

	later := created.Add(time.Hour)
	svc.now = func() time.Time { return later }

	st, err := svc.Update(ctx, tenant, models.SettingsPatch{
		AutoAlertsEnabled:       ptr(false),
		MaxSuggestionsPerDriver: ptr(5),
	})
	require.NoError(t, err)
	assert.False(t, st.AutoAlertsEnabled)
	assert.Equal(t, 5, st.MaxSuggestionsPerDriver)
	assert.True(t, st.DelayPredictionEnabled, "untouched fields keep their value")
	assert.Equal(t, created, st.CreatedAt)
	assert.Equal(t, later, st.UpdatedAt)

	reread, err := svc.Get(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, *st, *reread)
}

func TestService_UpdateRejectsInvalidPatch(t *testing.T) {
	svc := newTestService(time.Now())
	tests := []struct {
		name  string
		patch models.SettingsPatch
	}{
		{"confidence above one", models.SettingsPatch{ConfidenceThreshold: ptr(1.5)}},
		{"negative confidence", models.SettingsPatch{ConfidenceThreshold: ptr(-0.1)}},
		{"zero horizon", models.SettingsPatch{PredictionHorizonMinutes: ptr(0)}},
		{"too many suggestions", models.SettingsPatch{MaxSuggestionsPerDriver: ptr(21)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), uuid.New(), tt.patch)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}
