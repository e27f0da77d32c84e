package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/routing"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// OptimizeRouteRequest asks for an ordering of delivery stops.
type OptimizeRouteRequest struct {
	DriverID    string                  `json:"driver_id"`
	Points      []models.RoutePoint     `json:"points"      validate:"required,min=1,dive"`
	Constraints models.RouteConstraints `json:"constraints" validate:"required"`
}

type routeInput struct {
	DriverID           string                  `json:"driver_id"`
	PointCount         int                     `json:"point_count"`
	Constraints        models.RouteConstraints `json:"constraints"`
	WithinWorkingHours *bool                   `json:"within_working_hours,omitempty"`
}

// OptimizeRoute orders the requested stops. Unlike predictions it returns
// ErrFeatureDisabled or ErrInsufficientData for ineligible tenants. A
// deadline overrun yields a fallback route.
func (e *Engine) OptimizeRoute(ctx context.Context, tenantID uuid.UUID, req OptimizeRouteRequest) (*models.OptimizedRoute, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("%w: tenant id is required", ErrInvalidRequest)
	}
	if err := e.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	ctx, span := e.tracer.Start(ctx, "engine.OptimizeRoute")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.Int("route.points", len(req.Points)),
	)

	st, err := e.settings.Get(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !st.RouteOptimizationEnabled || !e.gate.CanUseRouteOptimization(ctx, tenantID) {
		return nil, ErrFeatureDisabled
	}

	sufficient, err := e.dataset.IsDatasetSufficient(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("checking dataset: %w", err)
	}
	if !sufficient {
		return nil, ErrInsufficientData
	}

	start := e.now().UTC()
	input := routeInput{
		DriverID:    req.DriverID,
		PointCount:  len(req.Points),
		Constraints: req.Constraints,
	}
	if st.WorkingHoursEnabled {
		within := routing.WithinWorkingHours(req.Constraints, start)
		input.WithinWorkingHours = &within
	}

	route, err := deadline.Run(ctx, e.exec, e.budget, tenantID, "optimize_route",
		func(context.Context) (models.OptimizedRoute, error) {
			return e.optimize(tenantID, req.DriverID, req.Points, req.Constraints, start), nil
		})
	switch {
	case errors.Is(err, deadline.ErrDeadlineExceeded):
		route = FallbackRoute(tenantID, req.DriverID, e.now().UTC())
	case err != nil:
		span.RecordError(err)
		e.logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("route optimization failed")
		return nil, fmt.Errorf("optimizing route: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("fallback", route.FallbackUsed),
		attribute.Float64("route.distance_km", route.TotalDistanceKm),
	)

	e.record(audit.Entry{
		TenantID:     tenantID,
		Type:         models.DecisionRoute,
		Input:        input,
		Output:       route,
		Confidence:   routeConfidence(route),
		FallbackUsed: route.FallbackUsed,
	})
	return &route, nil
}

// ValidateRoute checks a route against the soft route limits.
func (e *Engine) ValidateRoute(route models.OptimizedRoute) models.RouteValidation {
	return routing.ValidateRoute(route)
}

// routeConfidence is the confidence recorded for an optimized route.
func routeConfidence(r models.OptimizedRoute) float64 {
	if r.FallbackUsed {
		return FallbackConfidence
	}
	switch r.EstimatedDelayRisk {
	case models.RiskHigh:
		return 0.5
	case models.RiskMedium:
		return 0.7
	default:
		return 0.9
	}
}
