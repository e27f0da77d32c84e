package models

import (
	"time"

	"github.com/google/uuid"
)

// LogisticsAISettings are the per-tenant toggles for the decision engine.
// ConfidenceThreshold and PredictionHorizonMinutes are stored and patched
// here but read by the surrounding platform, not by the engine.
type LogisticsAISettings struct {
	TenantID                 uuid.UUID `db:"tenant_id"                  json:"tenant_id"`
	DelayPredictionEnabled   bool      `db:"delay_prediction_enabled"   json:"delay_prediction_enabled"`
	RouteOptimizationEnabled bool      `db:"route_optimization_enabled" json:"route_optimization_enabled"`
	AutoAlertsEnabled        bool      `db:"auto_alerts_enabled"        json:"auto_alerts_enabled"`
	ConfidenceThreshold      float64   `db:"confidence_threshold"       json:"confidence_threshold"`
	PredictionHorizonMinutes int       `db:"prediction_horizon_minutes" json:"prediction_horizon_minutes"`
	MaxSuggestionsPerDriver  int       `db:"max_suggestions_per_driver" json:"max_suggestions_per_driver"`
	WorkingHoursEnabled      bool      `db:"working_hours_enabled"      json:"working_hours_enabled"`
	CreatedAt                time.Time `db:"created_at"                 json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at"                 json:"updated_at"`
}

// DefaultSettings returns the settings a tenant gets on first access.
func DefaultSettings(tenantID uuid.UUID, now time.Time) LogisticsAISettings {
	return LogisticsAISettings{
		TenantID:                 tenantID,
		DelayPredictionEnabled:   true,
		RouteOptimizationEnabled: true,
		AutoAlertsEnabled:        true,
		ConfidenceThreshold:      0.7,
		PredictionHorizonMinutes: 120,
		MaxSuggestionsPerDriver:  3,
		WorkingHoursEnabled:      false,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

// SettingsPatch is a partial update; nil fields are left unchanged.
type SettingsPatch struct {
	DelayPredictionEnabled   *bool    `json:"delay_prediction_enabled,omitempty"`
	RouteOptimizationEnabled *bool    `json:"route_optimization_enabled,omitempty"`
	AutoAlertsEnabled        *bool    `json:"auto_alerts_enabled,omitempty"`
	ConfidenceThreshold      *float64 `json:"confidence_threshold,omitempty"       validate:"omitempty,gte=0,lte=1"`
	PredictionHorizonMinutes *int     `json:"prediction_horizon_minutes,omitempty" validate:"omitempty,gt=0,lte=1440"`
	MaxSuggestionsPerDriver  *int     `json:"max_suggestions_per_driver,omitempty" validate:"omitempty,gte=0,lte=20"`
	WorkingHoursEnabled      *bool    `json:"working_hours_enabled,omitempty"`
}

// Apply returns a copy of s with the patch fields written over it.
func (p SettingsPatch) Apply(s LogisticsAISettings, now time.Time) LogisticsAISettings {
	if p.DelayPredictionEnabled != nil {
		s.DelayPredictionEnabled = *p.DelayPredictionEnabled
	}
	if p.RouteOptimizationEnabled != nil {
		s.RouteOptimizationEnabled = *p.RouteOptimizationEnabled
	}
	if p.AutoAlertsEnabled != nil {
		s.AutoAlertsEnabled = *p.AutoAlertsEnabled
	}
	if p.ConfidenceThreshold != nil {
		s.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.PredictionHorizonMinutes != nil {
		s.PredictionHorizonMinutes = *p.PredictionHorizonMinutes
	}
	if p.MaxSuggestionsPerDriver != nil {
		s.MaxSuggestionsPerDriver = *p.MaxSuggestionsPerDriver
	}
	if p.WorkingHoursEnabled != nil {
		s.WorkingHoursEnabled = *p.WorkingHoursEnabled
	}
	s.UpdatedAt = now
	return s
}
