package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// FallbackConfidence is the confidence of every fallback result.
const FallbackConfidence = 0.1

// FallbackPrediction is the deterministic prediction used when scoring
// cannot complete: no risk, no delay, low confidence.
func FallbackPrediction(tenantID uuid.UUID, cond models.CurrentConditions, now time.Time) models.DelayPrediction {
	return models.DelayPrediction{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		OrderID:              cond.OrderID,
		DriverID:             cond.DriverID,
		PredictedDelay:       models.RiskNone,
		DelayMinutesEstimate: 0,
		ConfidenceScore:      FallbackConfidence,
		ETAOriginal:          cond.ETAOriginal,
		ETAPredicted:         cond.ETAOriginal,
		Factors:              []models.DelayFactor{},
		FallbackUsed:         true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// FallbackRoute is the deterministic route used when optimization cannot
// complete: no points and no risk.
func FallbackRoute(tenantID uuid.UUID, driverID string, now time.Time) models.OptimizedRoute {
	if driverID == "" {
		driverID = models.UnassignedDriver
	}
	return models.OptimizedRoute{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		DriverID:           driverID,
		Points:             []models.RoutePoint{},
		EstimatedDelayRisk: models.RiskNone,
		FallbackUsed:       true,
		CreatedAt:          now,
	}
}
