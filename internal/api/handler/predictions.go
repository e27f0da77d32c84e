package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/api/response"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// Predictor scores the delay risk of an order.
type Predictor interface {
	PredictDelay(ctx context.Context, tenantID uuid.UUID, orderID string) (*models.DelayPrediction, error)
}

type predictRequest struct {
	OrderID string `json:"order_id" validate:"required,max=128"`
}

// NewPredictHandler returns an http.HandlerFunc for POST /api/v1/predictions.
// Ineligible tenants get 204 with no body.
func NewPredictHandler(p Predictor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFrom(w, r)
		if !ok {
			return
		}
		var req predictRequest
		if !decodeBody(w, r, &req) {
			return
		}

		pred, err := p.PredictDelay(r.Context(), tenantID, req.OrderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if pred == nil {
			response.NoContent(w)
			return
		}
		response.JSON(w, pred)
	}
}
