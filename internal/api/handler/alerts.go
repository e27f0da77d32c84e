package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// AlertService manages tenant alerts.
type AlertService interface {
	CreateAlert(ctx context.Context, alert models.AIAlert) (*models.AIAlert, error)
	ListAlerts(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]*models.AIAlert, error)
	MarkAlertRead(ctx context.Context, tenantID, alertID uuid.UUID) error
}

type createAlertRequest struct {
	Type           string               `json:"type"            validate:"required,max=64"`
	Severity       models.AlertSeverity `json:"severity"        validate:"required,oneof=info warning critical"`
	Title          string               `json:"title"           validate:"required,max=255"`
	Message        string               `json:"message"`
	EntityID       *string              `json:"entity_id"`
	EntityType     *string              `json:"entity_type"`
	ActionRequired bool                 `json:"action_required"`
	ActionURL      *string              `json:"action_url"      validate:"omitempty,url"`
	ExpiresAt      *time.Time           `json:"expires_at"`
}

// NewCreateAlertHandler returns an http.HandlerFunc for POST /api/v1/alerts.
func NewCreateAlertHandler(svc AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		var req createAlertRequest
		if !decodeBody(w, r, &req) {
			return
		}

		alert, err := svc.CreateAlert(r.Context(), models.AIAlert{
			TenantID:       tenantID,
			Type:           req.Type,
			Severity:       req.Severity,
			Title:          req.Title,
			Message:        req.Message,
			EntityID:       req.EntityID,
			EntityType:     req.EntityType,
			ActionRequired: req.ActionRequired,
			ActionURL:      req.ActionURL,
			ExpiresAt:      req.ExpiresAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Created(w, alert)
	}
}

// NewListAlertsHandler returns an http.HandlerFunc for GET /api/v1/alerts.
func NewListAlertsHandler(svc AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		unread := false
		if raw := r.URL.Query().Get("unread"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unread must be a boolean", nil)
				return
			}
			unread = v
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		list, err := svc.ListAlerts(r.Context(), tenantID, unread, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeList(w, list, limit)
	}
}

// NewMarkAlertReadHandler returns an http.HandlerFunc for
// POST /api/v1/alerts/{alertID}/read.
func NewMarkAlertReadHandler(svc AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, chi.URLParam(r, "alertID"), "alertID")
		if !ok {
			return
		}

		if err := svc.MarkAlertRead(r.Context(), tenantID, id); err != nil {
			writeServiceError(w, err)
			return
		}
		response.NoContent(w)
	}
}
