// Package handler holds the HTTP handlers of the decision engine API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/alerts"
	mw "github.com/kiranshivaraju/dispatchiq/internal/api/middleware"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/engine"
	"github.com/kiranshivaraju/dispatchiq/internal/settings"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// tenantFrom writes an error response and reports false when the tenant
// middleware did not run.
func tenantFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := mw.GetTenantID(r)
	if !ok {
		response.Error(w, http.StatusBadRequest, "MISSING_TENANT", "Missing tenant", nil)
	}
	return id, ok
}

// decodeBody reads a JSON body into v and runs struct validation on it.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", fieldErrors(err))
		return false
	}
	return true
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

func pathUUID(w http.ResponseWriter, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func writeList[T any](w http.ResponseWriter, items []T, requested int) {
	response.List(w, items, response.ListMeta{
		Count: len(items),
		Limit: store.NormalizeLimit(requested),
	})
}

// writeServiceError maps domain errors onto the API error envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, settings.ErrInvalidSettings),
		errors.Is(err, alerts.ErrInvalidAlert),
		errors.Is(err, audit.ErrInvalidType),
		errors.Is(err, audit.ErrInvalidRange),
		errors.Is(err, audit.ErrInvalidRetention):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, engine.ErrFeatureDisabled):
		response.Error(w, http.StatusForbidden, "FEATURE_DISABLED",
			"Feature is not enabled for this tenant", nil)
	case errors.Is(err, engine.ErrInsufficientData):
		response.Error(w, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA",
			"Not enough delivery history to make a decision", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, models.ErrSuggestionExpired):
		response.Error(w, http.StatusConflict, "SUGGESTION_EXPIRED", "Suggestion has expired", nil)
	case errors.Is(err, models.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
