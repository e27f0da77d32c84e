// Package engine orchestrates delay prediction, route optimization and
// route suggestions for a tenant.
//
// Prediction and suggestion calls are best-effort enrichments: ineligible
// tenants get an empty result and failures degrade to a fallback. Route
// optimization is caller-initiated and reports ineligibility and failures
// as errors.
package engine

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/alerts"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/internal/deadline"
	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/kiranshivaraju/dispatchiq/internal/routing"
	"github.com/kiranshivaraju/dispatchiq/internal/scoring"
	"github.com/kiranshivaraju/dispatchiq/internal/settings"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kiranshivaraju/dispatchiq/internal/engine"

// Gate reports which features a tenant's plan allows.
type Gate interface {
	CanUseDelayPrediction(ctx context.Context, tenantID uuid.UUID) bool
	CanUseRouteOptimization(ctx context.Context, tenantID uuid.UUID) bool
	CanUseAutoAlerts(ctx context.Context, tenantID uuid.UUID) bool
}

// Dependencies wires an Engine. DriverStats and Tracer are optional.
type Dependencies struct {
	Store       store.Store
	Settings    *settings.Service
	Alerts      *alerts.Service
	Audit       *audit.Log
	Gate        Gate
	History     models.HistoryProvider
	Conditions  models.ConditionsProvider
	Dataset     models.DatasetValidator
	Routes      models.RouteProvider
	DriverStats models.DriverStatsProvider
	Executor    *deadline.Executor
	Metrics     *metrics.EngineMetrics
	Logger      zerolog.Logger
	Tracer      trace.Tracer
	// Deadline bounds scorer, optimizer and suggestion calls.
	Deadline time.Duration
}

// Engine is safe for concurrent use.
type Engine struct {
	store       store.Store
	settings    *settings.Service
	alerts      *alerts.Service
	audit       *audit.Log
	gate        Gate
	history     models.HistoryProvider
	conditions  models.ConditionsProvider
	dataset     models.DatasetValidator
	routes      models.RouteProvider
	driverStats models.DriverStatsProvider
	exec        *deadline.Executor
	metrics     *metrics.EngineMetrics
	logger      zerolog.Logger
	tracer      trace.Tracer
	budget      time.Duration
	validate    *validator.Validate
	now         func() time.Time

	score    func([]models.DeliveryHistoryRecord, models.CurrentConditions) scoring.Assessment
	optimize func(uuid.UUID, string, []models.RoutePoint, models.RouteConstraints, time.Time) models.OptimizedRoute
}

func New(deps Dependencies) *Engine {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	budget := deps.Deadline
	if budget <= 0 {
		budget = deadline.DefaultBudget
	}
	return &Engine{
		store:       deps.Store,
		settings:    deps.Settings,
		alerts:      deps.Alerts,
		audit:       deps.Audit,
		gate:        deps.Gate,
		history:     deps.History,
		conditions:  deps.Conditions,
		dataset:     deps.Dataset,
		routes:      deps.Routes,
		driverStats: deps.DriverStats,
		exec:        deps.Executor,
		metrics:     deps.Metrics,
		logger:      deps.Logger.With().Str("component", "engine").Logger(),
		tracer:      tracer,
		budget:      budget,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
		score:       scoring.Score,
		optimize:    routing.BuildRoute,
	}
}

// record appends a decision and counts it. Audit failures only reach the log.
func (e *Engine) record(entry audit.Entry) {
	if _, err := e.audit.Append(entry); err != nil {
		e.logger.Error().Err(err).
			Str("tenant_id", entry.TenantID.String()).
			Str("type", string(entry.Type)).
			Msg("failed to record decision")
	}
	e.metrics.IncDecision(string(entry.Type), entry.FallbackUsed)
}

// emitAlert stores an alert and records it as an alert decision. Failures
// are logged.
func (e *Engine) emitAlert(ctx context.Context, alert models.AIAlert) {
	created, err := e.alerts.Create(ctx, alert)
	if err != nil {
		e.logger.Error().Err(err).
			Str("tenant_id", alert.TenantID.String()).
			Str("alert_type", alert.Type).
			Msg("failed to emit alert")
		return
	}

	orderID := ""
	if created.EntityType != nil && *created.EntityType == "order" && created.EntityID != nil {
		orderID = *created.EntityID
	}
	e.record(audit.Entry{
		TenantID: created.TenantID,
		OrderID:  orderID,
		Type:     models.DecisionAlert,
		Input:    map[string]string{"type": created.Type, "severity": string(created.Severity)},
		Output:   created,
		// alerts carry no score of their own
		Confidence: 1,
	})
}

// autoAlerts reports whether both the tenant's settings and plan allow alerts.
func (e *Engine) autoAlerts(ctx context.Context, tenantID uuid.UUID, st *models.LogisticsAISettings) bool {
	return st.AutoAlertsEnabled && e.gate.CanUseAutoAlerts(ctx, tenantID)
}

func strPtr(s string) *string { return &s }
