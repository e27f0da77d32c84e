package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity ranks how urgently an alert needs attention.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert types emitted by the engine.
const (
	AlertTypeDelayRisk        = "delay_risk"
	AlertTypeRouteSuggestions = "route_suggestions"
)

// SeverityForTier maps a risk tier to the alert severity used for it.
func SeverityForTier(tier RiskTier) AlertSeverity {
	switch tier {
	case RiskHigh:
		return SeverityCritical
	case RiskMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// AIAlert is a notification raised for a tenant. IsRead is the only field
// changed after creation.
type AIAlert struct {
	ID             uuid.UUID     `db:"id"              json:"id"`
	TenantID       uuid.UUID     `db:"tenant_id"       json:"tenant_id"`
	Type           string        `db:"type"            json:"type"`
	Severity       AlertSeverity `db:"severity"        json:"severity"`
	Title          string        `db:"title"           json:"title"`
	Message        string        `db:"message"         json:"message"`
	EntityID       *string       `db:"entity_id"       json:"entity_id,omitempty"`
	EntityType     *string       `db:"entity_type"     json:"entity_type,omitempty"`
	ActionRequired bool          `db:"action_required" json:"action_required"`
	ActionURL      *string       `db:"action_url"      json:"action_url,omitempty"`
	IsRead         bool          `db:"is_read"         json:"is_read"`
	CreatedAt      time.Time     `db:"created_at"      json:"created_at"`
	ExpiresAt      *time.Time    `db:"expires_at"      json:"expires_at,omitempty"`
}
