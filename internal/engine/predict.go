package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/scoring"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// predictionInput is the audit snapshot of what a prediction looked at.
type predictionInput struct {
	OrderID       string                   `json:"order_id"`
	HistoryCount  int                      `json:"history_count"`
	Conditions    models.CurrentConditions `json:"conditions"`
	FailureReason string                   `json:"failure_reason,omitempty"`
}

// PredictDelay scores the delay risk of an order. It returns nil without an
// error when the tenant is not eligible or lacks data. Provider failures and
// deadline overruns yield a fallback prediction. Only a missing tenant or
// order id is an error.
func (e *Engine) PredictDelay(ctx context.Context, tenantID uuid.UUID, orderID string) (*models.DelayPrediction, error) {
	if tenantID == uuid.Nil || orderID == "" {
		return nil, fmt.Errorf("%w: tenant and order id are required", ErrInvalidRequest)
	}

	ctx, span := e.tracer.Start(ctx, "engine.PredictDelay")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("order.id", orderID),
	)

	log := e.logger.With().Str("tenant_id", tenantID.String()).Str("order_id", orderID).Logger()

	st, err := e.settings.Get(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings, skipping prediction")
		span.RecordError(err)
		return nil, nil
	}
	if !st.DelayPredictionEnabled || !e.gate.CanUseDelayPrediction(ctx, tenantID) {
		span.SetAttributes(attribute.Bool("eligible", false))
		return nil, nil
	}

	sufficient, err := e.dataset.IsDatasetSufficient(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("dataset check failed, using fallback prediction")
		return e.finishPrediction(ctx, st, fallbackOutcome(tenantID, models.CurrentConditions{OrderID: orderID}, 0, err, e.now().UTC())), nil
	}
	if !sufficient {
		span.SetAttributes(attribute.Bool("sufficient_data", false))
		return nil, nil
	}

	history, cond, err := e.fetchScoringInputs(ctx, tenantID, orderID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch scoring inputs, using fallback prediction")
		span.RecordError(err)
		return e.finishPrediction(ctx, st, fallbackOutcome(tenantID, models.CurrentConditions{OrderID: orderID}, 0, err, e.now().UTC())), nil
	}
	if cond.OrderID == "" {
		cond.OrderID = orderID
	}

	assessment, err := deadline.Run(ctx, e.exec, e.budget, tenantID, "predict_delay",
		func(context.Context) (scoring.Assessment, error) {
			return e.score(history, cond), nil
		})
	now := e.now().UTC()
	if err != nil {
		log.Warn().Err(err).Msg("scoring failed, using fallback prediction")
		span.SetStatus(codes.Error, "scoring failed")
		return e.finishPrediction(ctx, st, fallbackOutcome(tenantID, cond, len(history), err, now)), nil
	}

	pred := models.DelayPrediction{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		OrderID:              cond.OrderID,
		DriverID:             cond.DriverID,
		PredictedDelay:       assessment.Tier,
		DelayMinutesEstimate: assessment.DelayMinutesEstimate,
		ConfidenceScore:      assessment.Confidence,
		ETAOriginal:          cond.ETAOriginal,
		ETAPredicted:         cond.ETAOriginal.Add(time.Duration(assessment.DelayMinutesEstimate) * time.Minute),
		Factors:              assessment.Factors,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	span.SetAttributes(
		attribute.String("risk.tier", string(pred.PredictedDelay)),
		attribute.Float64("confidence", pred.ConfidenceScore),
	)

	return e.finishPrediction(ctx, st, predictionOutcome{
		prediction: pred,
		input:      predictionInput{OrderID: orderID, HistoryCount: len(history), Conditions: cond},
	}), nil
}

type predictionOutcome struct {
	prediction models.DelayPrediction
	input      predictionInput
}

func fallbackOutcome(tenantID uuid.UUID, cond models.CurrentConditions, historyCount int, cause error, now time.Time) predictionOutcome {
	return predictionOutcome{
		prediction: FallbackPrediction(tenantID, cond, now),
		input: predictionInput{
			OrderID:       cond.OrderID,
			HistoryCount:  historyCount,
			Conditions:    cond,
			FailureReason: cause.Error(),
		},
	}
}

// finishPrediction records the decision and raises an alert for risky
// orders. The audit append happens before the alert.
func (e *Engine) finishPrediction(ctx context.Context, st *models.LogisticsAISettings, out predictionOutcome) *models.DelayPrediction {
	pred := out.prediction

	e.record(audit.Entry{
		TenantID:     pred.TenantID,
		OrderID:      pred.OrderID,
		Type:         models.DecisionDelay,
		Input:        out.input,
		Output:       pred,
		Confidence:   pred.ConfidenceScore,
		FallbackUsed: pred.FallbackUsed,
	})

	if pred.PredictedDelay != models.RiskNone && e.autoAlerts(ctx, pred.TenantID, st) {
		e.emitAlert(ctx, delayAlert(pred))
	}
	return &pred
}

// fetchScoringInputs loads history and the order's conditions concurrently.
func (e *Engine) fetchScoringInputs(ctx context.Context, tenantID uuid.UUID, orderID string) ([]models.DeliveryHistoryRecord, models.CurrentConditions, error) {
	var (
		history []models.DeliveryHistoryRecord
		cond    models.CurrentConditions
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := e.history.GetDeliveryHistory(gctx, tenantID, models.HistoryFilter{})
		if err != nil {
			return fmt.Errorf("fetching history: %w", err)
		}
		history = records
		return nil
	})
	g.Go(func() error {
		c, err := e.conditions.GetCurrentConditions(gctx, tenantID, orderID)
		if err != nil {
			return fmt.Errorf("fetching conditions: %w", err)
		}
		cond = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, models.CurrentConditions{}, err
	}
	return history, cond, nil
}

func delayAlert(pred models.DelayPrediction) models.AIAlert {
	severity := models.SeverityForTier(pred.PredictedDelay)
	return models.AIAlert{
		TenantID: pred.TenantID,
		Type:     models.AlertTypeDelayRisk,
		Severity: severity,
		Title:    fmt.Sprintf("%s delay risk for order %s", capitalize(string(pred.PredictedDelay)), pred.OrderID),
		Message: fmt.Sprintf("Order %s is estimated to arrive %d minutes late (confidence %.0f%%).",
			pred.OrderID, pred.DelayMinutesEstimate, pred.ConfidenceScore*100),
		EntityID:       strPtr(pred.OrderID),
		EntityType:     strPtr("order"),
		ActionRequired: severity == models.SeverityCritical,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
