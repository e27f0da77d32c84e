package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DecisionType classifies an audit log entry.
type DecisionType string

const (
	DecisionDelay DecisionType = "delay"
	DecisionRoute DecisionType = "route"
	DecisionAlert DecisionType = "alert"
)

// Valid reports whether t is a known decision type.
func (t DecisionType) Valid() bool {
	return t == DecisionDelay || t == DecisionRoute || t == DecisionAlert
}

// AIDecisionLog is an immutable audit record of one engine decision.
type AIDecisionLog struct {
	ID              uuid.UUID       `db:"id"               json:"id"`
	TenantID        uuid.UUID       `db:"tenant_id"        json:"tenant_id"`
	OrderID         *string         `db:"order_id"         json:"order_id,omitempty"`
	Type            DecisionType    `db:"type"             json:"type"`
	Input           json.RawMessage `db:"input"            json:"input"`
	Output          json.RawMessage `db:"output"           json:"output"`
	ConfidenceScore float64         `db:"confidence_score" json:"confidence_score"`
	FallbackUsed    bool            `db:"fallback_used"    json:"fallback_used"`
	CreatedAt       time.Time       `db:"created_at"       json:"created_at"`
}

// DecisionStats aggregates the audit log over a window.
type DecisionStats struct {
	TotalDecisions    int                  `json:"total_decisions"`
	CountsByType      map[DecisionType]int `json:"counts_by_type"`
	AverageConfidence float64              `json:"average_confidence"`
	FallbackRate      float64              `json:"fallback_rate"`
}
