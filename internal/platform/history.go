package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// Dataset sufficiency thresholds.
const (
	MinRecentOrders    = 30
	MinCompletedOrders = 20
	RecentWindow       = 7 * 24 * time.Hour
)

// HistoryDatasetValidator decides dataset sufficiency from raw history: a
// tenant needs MinRecentOrders within RecentWindow and MinCompletedOrders
// completed over its lifetime.
type HistoryDatasetValidator struct {
	history models.HistoryProvider
	now     func() time.Time
}

func NewHistoryDatasetValidator(history models.HistoryProvider) *HistoryDatasetValidator {
	return &HistoryDatasetValidator{history: history, now: time.Now}
}

func (v *HistoryDatasetValidator) IsDatasetSufficient(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	records, err := v.history.GetDeliveryHistory(ctx, tenantID, models.HistoryFilter{})
	if err != nil {
		return false, fmt.Errorf("loading history: %w", err)
	}

	cutoff := v.now().Add(-RecentWindow)
	recent, completed := 0, 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			recent++
		}
		if r.Status == models.DeliveryCompleted {
			completed++
		}
	}
	return recent >= MinRecentOrders && completed >= MinCompletedOrders, nil
}

// HistoryDriverStats derives driver statistics from delivery history.
// Percentile is the share of other drivers with a strictly higher average
// delay, in [0,100]; a tenant's only driver is at 100.
type HistoryDriverStats struct {
	history models.HistoryProvider
}

func NewHistoryDriverStats(history models.HistoryProvider) *HistoryDriverStats {
	return &HistoryDriverStats{history: history}
}

// GetDriverStats returns nil when the driver has no recorded deliveries.
func (s *HistoryDriverStats) GetDriverStats(ctx context.Context, tenantID uuid.UUID, driverID string) (*models.DriverStats, error) {
	records, err := s.history.GetDeliveryHistory(ctx, tenantID, models.HistoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	type tally struct {
		n, onTime int
		delay     float64
	}
	byDriver := map[string]*tally{}
	for _, r := range records {
		if r.DriverID == "" {
			continue
		}
		t, ok := byDriver[r.DriverID]
		if !ok {
			t = &tally{}
			byDriver[r.DriverID] = t
		}
		t.n++
		t.delay += r.DelayMinutes
		if !r.IsDelayed() {
			t.onTime++
		}
	}

	mine, ok := byDriver[driverID]
	if !ok {
		return nil, nil
	}
	avg := mine.delay / float64(mine.n)

	others, worse := 0, 0
	for id, t := range byDriver {
		if id == driverID {
			continue
		}
		others++
		if t.delay/float64(t.n) > avg {
			worse++
		}
	}
	percentile := 100.0
	if others > 0 {
		percentile = 100 * float64(worse) / float64(others)
	}

	return &models.DriverStats{
		DriverID:            driverID,
		Deliveries:          mine.n,
		AverageDelayMinutes: avg,
		OnTimeRate:          float64(mine.onTime) / float64(mine.n),
		Percentile:          percentile,
	}, nil
}

var (
	_ models.DatasetValidator    = (*HistoryDatasetValidator)(nil)
	_ models.DriverStatsProvider = (*HistoryDriverStats)(nil)
)
