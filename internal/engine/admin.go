package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/audit"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// The methods below expose the administrative services through the engine
// so callers need a single entry point.

func (e *Engine) CreateAlert(ctx context.Context, alert models.AIAlert) (*models.AIAlert, error) {
	return e.alerts.Create(ctx, alert)
}

func (e *Engine) ListAlerts(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]*models.AIAlert, error) {
	return e.alerts.List(ctx, tenantID, unreadOnly, limit)
}

func (e *Engine) MarkAlertRead(ctx context.Context, tenantID, alertID uuid.UUID) error {
	return e.alerts.MarkRead(ctx, tenantID, alertID)
}

func (e *Engine) GetSettings(ctx context.Context, tenantID uuid.UUID) (*models.LogisticsAISettings, error) {
	return e.settings.Get(ctx, tenantID)
}

func (e *Engine) UpdateSettings(ctx context.Context, tenantID uuid.UUID, patch models.SettingsPatch) (*models.LogisticsAISettings, error) {
	return e.settings.Update(ctx, tenantID, patch)
}

// LogDecision records a decision made outside the engine.
func (e *Engine) LogDecision(entry audit.Entry) (*models.AIDecisionLog, error) {
	rec, err := e.audit.Append(entry)
	if err != nil {
		return nil, err
	}
	e.metrics.IncDecision(string(entry.Type), entry.FallbackUsed)
	return rec, nil
}

func (e *Engine) QueryDecisions(ctx context.Context, tenantID uuid.UUID, f audit.Filter) ([]*models.AIDecisionLog, error) {
	return e.audit.Query(ctx, tenantID, f)
}

func (e *Engine) DecisionStats(ctx context.Context, tenantID uuid.UUID, windowDays int) (*models.DecisionStats, error) {
	return e.audit.Stats(ctx, tenantID, windowDays)
}

func (e *Engine) PruneDecisions(ctx context.Context, tenantID uuid.UUID, retentionDays int) (int64, error) {
	return e.audit.PruneOlderThan(ctx, tenantID, retentionDays)
}
