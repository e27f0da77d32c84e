package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// DecisionService reads the decision audit log.
type DecisionService interface {
	QueryDecisions(ctx context.Context, tenantID uuid.UUID, f audit.Filter) ([]*models.AIDecisionLog, error)
	DecisionStats(ctx context.Context, tenantID uuid.UUID, windowDays int) (*models.DecisionStats, error)
}

// NewQueryDecisionsHandler returns an http.HandlerFunc for
// GET /api/v1/decisions.
func NewQueryDecisionsHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		f := audit.Filter{
			Type:    models.DecisionType(q.Get("type")),
			OrderID: q.Get("order_id"),
		}
		var err error
		if f.From, err = queryTime(q.Get("from")); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "from must be a valid RFC3339 timestamp", nil)
			return
		}
		if f.To, err = queryTime(q.Get("to")); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "to must be a valid RFC3339 timestamp", nil)
			return
		}
		if f.Limit, err = queryInt(r, "limit"); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		list, err := svc.QueryDecisions(r.Context(), tenantID, f)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, list, f.Limit)
	}
}

// NewDecisionStatsHandler returns an http.HandlerFunc for
// GET /api/v1/decisions/stats.
func NewDecisionStatsHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		days, err := queryInt(r, "window_days")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		stats, err := svc.DecisionStats(r.Context(), tenantID, days)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, stats)
	}
}

func queryTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
