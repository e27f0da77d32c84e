package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// SuggestionService generates and moves route suggestions through their
// lifecycle.
type SuggestionService interface {
	GenerateRouteSuggestions(ctx context.Context, tenantID uuid.UUID, driverID string) ([]models.RouteSuggestion, error)
	ListSuggestions(ctx context.Context, tenantID uuid.UUID, driverID string, status models.SuggestionStatus, limit int) ([]*models.RouteSuggestion, error)
	ApproveSuggestion(ctx context.Context, tenantID, id uuid.UUID) (*models.RouteSuggestion, error)
	RejectSuggestion(ctx context.Context, tenantID, id uuid.UUID) (*models.RouteSuggestion, error)
}

// NewGenerateSuggestionsHandler returns an http.HandlerFunc for
// GET /api/v1/drivers/{driverID}/suggestions.
func NewGenerateSuggestionsHandler(svc SuggestionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		driverID := strings.TrimSpace(chi.URLParam(r, "driverID"))
		if driverID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "driverID is required", nil)
			return
		}

		list, err := svc.GenerateRouteSuggestions(r.Context(), tenantID, driverID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, list)
	}
}

// NewListSuggestionsHandler returns an http.HandlerFunc for
// GET /api/v1/suggestions.
func NewListSuggestionsHandler(svc SuggestionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		status := models.SuggestionStatus(q.Get("status"))
		switch status {
		case "", models.SuggestionPending, models.SuggestionApproved,
			models.SuggestionRejected, models.SuggestionExpired:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be one of pending, approved, rejected, expired", nil)
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		list, err := svc.ListSuggestions(r.Context(), tenantID, q.Get("driver_id"), status, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, list, limit)
	}
}

// NewApproveSuggestionHandler returns an http.HandlerFunc for
// POST /api/v1/suggestions/{suggestionID}/approve.
func NewApproveSuggestionHandler(svc SuggestionService) http.HandlerFunc {
	return transitionHandler(svc.ApproveSuggestion)
}

// NewRejectSuggestionHandler returns an http.HandlerFunc for
// POST /api/v1/suggestions/{suggestionID}/reject.
func NewRejectSuggestionHandler(svc SuggestionService) http.HandlerFunc {
	return transitionHandler(svc.RejectSuggestion)
}

func transitionHandler(move func(context.Context, uuid.UUID, uuid.UUID) (*models.RouteSuggestion, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, chi.URLParam(r, "suggestionID"), "suggestionID")
		if !ok {
			return
		}

		s, err := move(r.Context(), tenantID, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, s)
	}
}
