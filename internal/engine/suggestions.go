package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/routing"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

type suggestionInput struct {
	DriverID       string              `json:"driver_id"`
	PointCount     int                 `json:"point_count"`
	HighTrafficLeg bool                `json:"high_traffic_leg"`
	DriverStats    *models.DriverStats `json:"driver_stats,omitempty"`
}

// GenerateRouteSuggestions proposes improvements to a driver's current
// route and stores them as pending. Ineligible tenants, drivers without a
// route and every failure produce an empty list.
func (e *Engine) GenerateRouteSuggestions(ctx context.Context, tenantID uuid.UUID, driverID string) ([]models.RouteSuggestion, error) {
	if tenantID == uuid.Nil || driverID == "" {
		return nil, fmt.Errorf("%w: tenant and driver id are required", ErrInvalidRequest)
	}

	ctx, span := e.tracer.Start(ctx, "engine.GenerateRouteSuggestions")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("driver.id", driverID),
	)

	log := e.logger.With().Str("tenant_id", tenantID.String()).Str("driver_id", driverID).Logger()
	none := []models.RouteSuggestion{}

	st, err := e.settings.Get(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings, skipping suggestions")
		return none, nil
	}
	if !st.RouteOptimizationEnabled || !e.gate.CanUseRouteOptimization(ctx, tenantID) {
		return none, nil
	}

	sufficient, err := e.dataset.IsDatasetSufficient(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("dataset check failed, skipping suggestions")
		return none, nil
	}
	if !sufficient {
		return none, nil
	}

	route, err := e.routes.GetCurrentRoute(ctx, tenantID, driverID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch current route")
		return none, nil
	}
	if route == nil || len(route.Points) < 2 {
		return none, nil
	}
	if route.DriverID == "" {
		route.DriverID = driverID
	}

	var stats *models.DriverStats
	if e.driverStats != nil {
		stats, err = e.driverStats.GetDriverStats(ctx, tenantID, driverID)
		if err != nil {
			log.Warn().Err(err).Msg("driver stats unavailable, continuing without them")
			stats = nil
		}
	}

	now := e.now().UTC()
	suggestions, err := deadline.Run(ctx, e.exec, e.budget, tenantID, "generate_suggestions",
		func(context.Context) ([]models.RouteSuggestion, error) {
			return routing.GenerateSuggestions(routing.SuggestionInput{
				TenantID:    tenantID,
				Route:       *route,
				DriverStats: stats,
				Now:         now,
			}), nil
		})
	if err != nil {
		log.Warn().Err(err).Msg("suggestion generation failed")
		return none, nil
	}

	if limit := st.MaxSuggestionsPerDriver; len(suggestions) > limit {
		suggestions = suggestions[:max(limit, 0)]
	}
	if len(suggestions) == 0 {
		return none, nil
	}

	if err := e.store.SaveSuggestions(ctx, suggestions); err != nil {
		log.Error().Err(err).Msg("failed to save suggestions")
	}
	span.SetAttributes(attribute.Int("suggestions", len(suggestions)))

	e.record(audit.Entry{
		TenantID: tenantID,
		Type:     models.DecisionRoute,
		Input: suggestionInput{
			DriverID:       driverID,
			PointCount:     len(route.Points),
			HighTrafficLeg: hasHighTraffic(route.LegTraffic),
			DriverStats:    stats,
		},
		Output:     suggestions,
		Confidence: meanConfidence(suggestions),
	})

	if e.autoAlerts(ctx, tenantID, st) {
		e.emitAlert(ctx, suggestionsAlert(tenantID, driverID, suggestions))
	}
	return suggestions, nil
}

// ApproveSuggestion accepts a pending suggestion.
func (e *Engine) ApproveSuggestion(ctx context.Context, tenantID, id uuid.UUID) (*models.RouteSuggestion, error) {
	return e.transitionSuggestion(ctx, tenantID, id, models.SuggestionApproved)
}

// RejectSuggestion declines a pending suggestion.
func (e *Engine) RejectSuggestion(ctx context.Context, tenantID, id uuid.UUID) (*models.RouteSuggestion, error) {
	return e.transitionSuggestion(ctx, tenantID, id, models.SuggestionRejected)
}

func (e *Engine) transitionSuggestion(ctx context.Context, tenantID, id uuid.UUID, to models.SuggestionStatus) (*models.RouteSuggestion, error) {
	s, err := e.store.GetSuggestion(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.Transition(to, e.now().UTC()); err != nil {
		if errors.Is(err, models.ErrSuggestionExpired) {
			if perr := e.store.TransitionSuggestion(ctx, id, tenantID, models.SuggestionExpired); perr != nil && !errors.Is(perr, store.ErrStatusConflict) {
				e.logger.Error().Err(perr).Str("suggestion_id", id.String()).Msg("failed to persist suggestion expiry")
			}
		}
		return nil, err
	}

	if err := e.store.TransitionSuggestion(ctx, id, tenantID, to); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: suggestion is no longer pending", models.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}
	return s, nil
}

// ListSuggestions returns stored suggestions with lapsed pending ones
// reported as expired.
func (e *Engine) ListSuggestions(ctx context.Context, tenantID uuid.UUID, driverID string, status models.SuggestionStatus, limit int) ([]*models.RouteSuggestion, error) {
	now := e.now().UTC()
	list, err := e.store.ListSuggestions(ctx, store.SuggestionFilter{
		TenantID: tenantID,
		DriverID: driverID,
		Status:   status,
		AsOf:     now,
		Limit:    store.NormalizeLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}

	for _, s := range list {
		s.Status = s.EffectiveStatus(now)
	}
	return list, nil
}

func hasHighTraffic(legs []models.TrafficLevel) bool {
	for _, l := range legs {
		if l == models.TrafficHigh {
			return true
		}
	}
	return false
}

func meanConfidence(suggestions []models.RouteSuggestion) float64 {
	if len(suggestions) == 0 {
		return 0
	}
	var sum float64
	for _, s := range suggestions {
		sum += s.Confidence
	}
	return sum / float64(len(suggestions))
}

func suggestionsAlert(tenantID uuid.UUID, driverID string, suggestions []models.RouteSuggestion) models.AIAlert {
	return models.AIAlert{
		TenantID:       tenantID,
		Type:           models.AlertTypeRouteSuggestions,
		Severity:       models.SeverityInfo,
		Title:          fmt.Sprintf("%d route suggestion(s) for driver %s", len(suggestions), driverID),
		Message:        suggestions[0].Title,
		EntityID:       strPtr(driverID),
		EntityType:     strPtr("driver"),
		ActionRequired: true,
	}
}
