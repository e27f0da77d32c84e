package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// SettingsService reads and patches tenant settings.
type SettingsService interface {
	GetSettings(ctx context.Context, tenantID uuid.UUID) (*models.LogisticsAISettings, error)
	UpdateSettings(ctx context.Context, tenantID uuid.UUID, patch models.SettingsPatch) (*models.LogisticsAISettings, error)
}

func NewGetSettingsHandler(svc SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		st, err := svc.GetSettings(r.Context(), tenantID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, st)
	}
}

func NewUpdateSettingsHandler(svc SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		var patch models.SettingsPatch
		if !decodeBody(w, r, &patch) {
			return
		}

		st, err := svc.UpdateSettings(r.Context(), tenantID, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, st)
	}
}
