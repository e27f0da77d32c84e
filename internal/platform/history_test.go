package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHistory struct {
	records []models.DeliveryHistoryRecord
	err     error
}

func (h staticHistory) GetDeliveryHistory(context.Context, uuid.UUID, models.HistoryFilter) ([]models.DeliveryHistoryRecord, error) {
	return h.records, h.err
}

func orders(n int, status models.DeliveryStatus, createdAt time.Time) []models.DeliveryHistoryRecord {
	out := make([]models.DeliveryHistoryRecord, n)
	for i := range out {
		out[i] = models.DeliveryHistoryRecord{OrderID: fmt.Sprintf("o-%d", i), Status: status, CreatedAt: createdAt}
	}
	return out
}

func TestHistoryDatasetValidator(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	old := now.AddDate(0, 0, -30)

	tests := []struct {
		name    string
		records []models.DeliveryHistoryRecord
		want    bool
	}{
		{"empty", nil, false},
		{"ten recent orders", orders(10, models.DeliveryCompleted, recent), false},
		{"thirty recent completed", orders(30, models.DeliveryCompleted, recent), true},
		{
			"thirty recent, too few completed",
			append(orders(19, models.DeliveryCompleted, recent), orders(11, models.DeliveryCancelled, recent)...),
			false,
		},
		{
			"completed lifetime, recent from cancellations",
			append(orders(20, models.DeliveryCompleted, old), orders(30, models.DeliveryCancelled, recent)...),
			true,
		},
		{"exactly at window edge counts", orders(30, models.DeliveryCompleted, now.Add(-RecentWindow)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewHistoryDatasetValidator(staticHistory{records: tt.records})
			v.now = func() time.Time { return now }

			ok, err := v.IsDatasetSufficient(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHistoryDatasetValidator_Error(t *testing.T) {
	v := NewHistoryDatasetValidator(staticHistory{err: errors.New("boom")})
	_, err := v.IsDatasetSufficient(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestHistoryDriverStats(t *testing.T) {
	rec := func(driver string, delay float64) models.DeliveryHistoryRecord {
		status := models.DeliveryCompleted
		if delay > 0 {
			status = models.DeliveryDelayed
		}
		return models.DeliveryHistoryRecord{DriverID: driver, DelayMinutes: delay, Status: status}
	}
	history := staticHistory{records: []models.DeliveryHistoryRecord{
		rec("a", 0), rec("a", 30), rec("a", 0), rec("a", 10), // avg 10, on-time 0.5
		rec("b", 40), rec("b", 20), // avg 30
		rec("c", 0), rec("c", 0), // avg 0
		rec("d", 10), // avg 10, tie with a
	}}
	s := NewHistoryDriverStats(history)

	stats, err := s.GetDriverStats(context.Background(), uuid.New(), "a")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 4, stats.Deliveries)
	assert.InDelta(t, 10.0, stats.AverageDelayMinutes, 1e-9)
	assert.InDelta(t, 0.5, stats.OnTimeRate, 1e-9)
	assert.InDelta(t, 100.0/3, stats.Percentile, 1e-9, "only b is worse")

	stats, err = s.GetDriverStats(context.Background(), uuid.New(), "b")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.Percentile)

	stats, err = s.GetDriverStats(context.Background(), uuid.New(), "c")
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.Percentile)
	assert.Equal(t, 1.0, stats.OnTimeRate)

	stats, err = s.GetDriverStats(context.Background(), uuid.New(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestHistoryDriverStats_SoleDriver(t *testing.T) {
	s := NewHistoryDriverStats(staticHistory{records: []models.DeliveryHistoryRecord{{DriverID: "x", DelayMinutes: 50}}})
	stats, err := s.GetDriverStats(context.Background(), uuid.New(), "x")
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.Percentile)
	assert.Equal(t, 0.0, stats.OnTimeRate)
}
