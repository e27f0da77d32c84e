package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskTier is the discretized delay-risk output.
type RiskTier string

const (
	RiskNone   RiskTier = "none"
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// FactorType names a contributor to delay risk.
type FactorType string

const (
	FactorTraffic           FactorType = "traffic"
	FactorWeather           FactorType = "weather"
	FactorHistorical        FactorType = "historical"
	FactorDriverPerformance FactorType = "driver_performance"
	FactorTimeOfDay         FactorType = "time_of_day"
	FactorRegion            FactorType = "region"
)

// DelayFactor is a weighted, explainable contributor to a prediction.
type DelayFactor struct {
	Type        FactorType `json:"type"`
	Weight      float64    `json:"weight"`
	Description string     `json:"description"`
}

// DelayPrediction is the result of scoring a single order.
type DelayPrediction struct {
	ID                   uuid.UUID     `json:"id"`
	TenantID             uuid.UUID     `json:"tenant_id"`
	OrderID              string        `json:"order_id"`
	DriverID             string        `json:"driver_id"`
	PredictedDelay       RiskTier      `json:"predicted_delay"`
	DelayMinutesEstimate int           `json:"delay_minutes_estimate"`
	ConfidenceScore      float64       `json:"confidence_score"`
	ETAOriginal          time.Time     `json:"eta_original"`
	ETAPredicted         time.Time     `json:"eta_predicted"`
	Factors              []DelayFactor `json:"factors"`
	FallbackUsed         bool          `json:"fallback_used"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}
