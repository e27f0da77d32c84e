package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SuggestionType is the kind of improvement a suggestion proposes.
type SuggestionType string

const (
	SuggestionReorderStops     SuggestionType = "reorder_stops"
	SuggestionChangeDriver     SuggestionType = "change_driver"
	SuggestionAlternativeRoute SuggestionType = "alternative_route"
)

// SuggestionStatus is the lifecycle state of a RouteSuggestion.
//
//	pending ──┬──> approved
//	          ├──> rejected
//	          └──> expired (once ExpiresAt passes)
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionExpired  SuggestionStatus = "expired"
)

// Terminal reports whether no further transitions are allowed.
func (s SuggestionStatus) Terminal() bool {
	return s == SuggestionApproved || s == SuggestionRejected || s == SuggestionExpired
}

// Improvement is the estimated gain of applying a suggestion.
type Improvement struct {
	TimeReductionMinutes int     `json:"time_reduction_minutes"`
	DistanceReductionKm  float64 `json:"distance_reduction_km"`
	DelayRiskReduction   float64 `json:"delay_risk_reduction"`
}

// RouteSuggestion is a proposed change to a driver's current route.
type RouteSuggestion struct {
	ID                   uuid.UUID        `json:"id"`
	TenantID             uuid.UUID        `json:"tenant_id"`
	DriverID             string           `json:"driver_id"`
	Type                 SuggestionType   `json:"type"`
	Priority             Priority         `json:"priority"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	EstimatedImprovement Improvement      `json:"estimated_improvement"`
	Confidence           float64          `json:"confidence"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	Status               SuggestionStatus `json:"status"`
	CreatedAt            time.Time        `json:"created_at"`
	ExpiresAt            time.Time        `json:"expires_at"`
}

// EffectiveStatus returns the status as of now. A pending suggestion whose
// ExpiresAt has passed is expired regardless of what is stored.
func (s RouteSuggestion) EffectiveStatus(now time.Time) SuggestionStatus {
	if s.Status == SuggestionPending && !now.Before(s.ExpiresAt) {
		return SuggestionExpired
	}
	return s.Status
}

// Transition moves the suggestion to the requested status as of now.
// Only approved and rejected may be requested by callers. If the suggestion
// lapsed before the call, its status becomes expired and ErrSuggestionExpired
// is returned so the caller can persist the expiry.
func (s *RouteSuggestion) Transition(to SuggestionStatus, now time.Time) error {
	if to != SuggestionApproved && to != SuggestionRejected {
		return fmt.Errorf("%w: %s is not a caller transition", ErrInvalidTransition, to)
	}

	current := s.EffectiveStatus(now)
	if current == SuggestionExpired && s.Status == SuggestionPending {
		s.Status = SuggestionExpired
		return ErrSuggestionExpired
	}
	if current.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
	}

	s.Status = to
	return nil
}

// Expire marks a lapsed pending suggestion as expired. It reports whether the
// status changed.
func (s *RouteSuggestion) Expire(now time.Time) bool {
	if s.Status != SuggestionPending || now.Before(s.ExpiresAt) {
		return false
	}
	s.Status = SuggestionExpired
	return true
}
