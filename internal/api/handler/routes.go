package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/internal/engine"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// RouteService optimizes and checks delivery routes.
type RouteService interface {
	OptimizeRoute(ctx context.Context, tenantID uuid.UUID, req engine.OptimizeRouteRequest) (*models.OptimizedRoute, error)
	ValidateRoute(route models.OptimizedRoute) models.RouteValidation
}

// NewOptimizeRouteHandler returns an http.HandlerFunc for
// POST /api/v1/routes/optimize. Field validation happens in the engine.
func NewOptimizeRouteHandler(svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		var req engine.OptimizeRouteRequest
		if !decodeBody(w, r, &req) {
			return
		}

		route, err := svc.OptimizeRoute(r.Context(), tenantID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, route)
	}
}

type validateRouteRequest struct {
	Route *models.OptimizedRoute `json:"route" validate:"required"`
}

// NewValidateRouteHandler returns an http.HandlerFunc for
// POST /api/v1/routes/validate.
func NewValidateRouteHandler(svc RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenantFrom(w, r); !ok {
			return
		}
		var req validateRouteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		response.JSON(w, svc.ValidateRoute(*req.Route))
	}
}
