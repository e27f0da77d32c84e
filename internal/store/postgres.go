package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Settings ---

const settingsColumns = `tenant_id, delay_prediction_enabled, route_optimization_enabled, auto_alerts_enabled,
	confidence_threshold, prediction_horizon_minutes, max_suggestions_per_driver, working_hours_enabled,
	created_at, updated_at`

func scanSettings(row pgx.Row) (*models.LogisticsAISettings, error) {
	var st models.LogisticsAISettings
	err := row.Scan(&st.TenantID, &st.DelayPredictionEnabled, &st.RouteOptimizationEnabled, &st.AutoAlertsEnabled,
		&st.ConfidenceThreshold, &st.PredictionHorizonMinutes, &st.MaxSuggestionsPerDriver, &st.WorkingHoursEnabled,
		&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *PostgresStore) GetOrCreateSettings(ctx context.Context, defaults *models.LogisticsAISettings) (*models.LogisticsAISettings, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO logistics_ai_settings (`+settingsColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		 RETURNING `+settingsColumns,
		defaults.TenantID, defaults.DelayPredictionEnabled, defaults.RouteOptimizationEnabled, defaults.AutoAlertsEnabled,
		defaults.ConfidenceThreshold, defaults.PredictionHorizonMinutes, defaults.MaxSuggestionsPerDriver,
		defaults.WorkingHoursEnabled, defaults.CreatedAt, defaults.UpdatedAt)
	st, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("get or create settings: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) UpsertSettings(ctx context.Context, st *models.LogisticsAISettings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO logistics_ai_settings (`+settingsColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (tenant_id) DO UPDATE SET
		   delay_prediction_enabled = EXCLUDED.delay_prediction_enabled,
		   route_optimization_enabled = EXCLUDED.route_optimization_enabled,
		   auto_alerts_enabled = EXCLUDED.auto_alerts_enabled,
		   confidence_threshold = EXCLUDED.confidence_threshold,
		   prediction_horizon_minutes = EXCLUDED.prediction_horizon_minutes,
		   max_suggestions_per_driver = EXCLUDED.max_suggestions_per_driver,
		   working_hours_enabled = EXCLUDED.working_hours_enabled,
		   updated_at = EXCLUDED.updated_at`,
		st.TenantID, st.DelayPredictionEnabled, st.RouteOptimizationEnabled, st.AutoAlertsEnabled,
		st.ConfidenceThreshold, st.PredictionHorizonMinutes, st.MaxSuggestionsPerDriver,
		st.WorkingHoursEnabled, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// --- Decision logs ---

func (s *PostgresStore) AppendDecision(ctx context.Context, d *models.AIDecisionLog) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_decision_logs (id, tenant_id, order_id, type, input, output, confidence_score, fallback_used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.TenantID, d.OrderID, d.Type, []byte(d.Input), []byte(d.Output), d.ConfidenceScore, d.FallbackUsed, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context, filter DecisionFilter) ([]*models.AIDecisionLog, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, filter.Type)
		argIdx++
	}
	if filter.OrderID != "" {
		conditions = append(conditions, fmt.Sprintf("order_id = $%d", argIdx))
		args = append(args, filter.OrderID)
		argIdx++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.From)
		argIdx++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, filter.To)
		argIdx++
	}

	query := fmt.Sprintf(
		`SELECT id, tenant_id, order_id, type, input, output, confidence_score, fallback_used, created_at
		 FROM ai_decision_logs WHERE %s ORDER BY created_at DESC, id LIMIT $%d`,
		strings.Join(conditions, " AND "), argIdx)
	args = append(args, NormalizeLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	logs := []*models.AIDecisionLog{}
	for rows.Next() {
		var d models.AIDecisionLog
		var input, output []byte
		if err := rows.Scan(&d.ID, &d.TenantID, &d.OrderID, &d.Type, &input, &output,
			&d.ConfidenceScore, &d.FallbackUsed, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Input, d.Output = input, output
		logs = append(logs, &d)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) DecisionStats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*models.DecisionStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(confidence_score), 0), COUNT(*) FILTER (WHERE fallback_used)
		 FROM ai_decision_logs WHERE tenant_id = $1 AND created_at >= $2 GROUP BY type`,
		tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	defer rows.Close()

	counts := map[models.DecisionType]int{}
	var confidenceSum float64
	fallbacks := 0
	for rows.Next() {
		var t models.DecisionType
		var n, fb int
		var sum float64
		if err := rows.Scan(&t, &n, &sum, &fb); err != nil {
			return nil, fmt.Errorf("scan decision stats: %w", err)
		}
		counts[t] = n
		confidenceSum += sum
		fallbacks += fb
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	return newStats(counts, confidenceSum, fallbacks), nil
}

func (s *PostgresStore) DeleteDecisionsBefore(ctx context.Context, tenantID uuid.UUID, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM ai_decision_logs WHERE tenant_id = $1 AND created_at < $2`, tenantID, before)
	if err != nil {
		return 0, fmt.Errorf("delete decisions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListDecisionTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM ai_decision_logs ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("list decision tenants: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan decision tenants: %w", err)
	}
	return ids, nil
}

// --- Alerts ---

func (s *PostgresStore) CreateAlert(ctx context.Context, a *models.AIAlert) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ai_alerts (id, tenant_id, type, severity, title, message, entity_id, entity_type,
		   action_required, action_url, is_read, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.TenantID, a.Type, a.Severity, a.Title, a.Message, a.EntityID, a.EntityType,
		a.ActionRequired, a.ActionURL, a.IsRead, a.CreatedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.AIAlert, error) {
	query := `SELECT id, tenant_id, type, severity, title, message, entity_id, entity_type,
		   action_required, action_url, is_read, created_at, expires_at
		 FROM ai_alerts WHERE tenant_id = $1`
	if filter.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC, id LIMIT $2`

	rows, err := s.pool.Query(ctx, query, filter.TenantID, NormalizeLimit(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.AIAlert{}
	for rows.Next() {
		var a models.AIAlert
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.EntityID,
			&a.EntityType, &a.ActionRequired, &a.ActionURL, &a.IsRead, &a.CreatedAt, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) MarkAlertRead(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ai_alerts SET is_read = TRUE WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Suggestions ---

const suggestionColumns = `id, tenant_id, driver_id, type, priority, title, description,
	time_reduction_minutes, distance_reduction_km, delay_risk_reduction,
	confidence, requires_confirmation, status, created_at, expires_at`

func scanSuggestion(row pgx.Row) (*models.RouteSuggestion, error) {
	var sg models.RouteSuggestion
	err := row.Scan(&sg.ID, &sg.TenantID, &sg.DriverID, &sg.Type, &sg.Priority, &sg.Title, &sg.Description,
		&sg.EstimatedImprovement.TimeReductionMinutes, &sg.EstimatedImprovement.DistanceReductionKm,
		&sg.EstimatedImprovement.DelayRiskReduction, &sg.Confidence, &sg.RequiresConfirmation,
		&sg.Status, &sg.CreatedAt, &sg.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

func (s *PostgresStore) SaveSuggestions(ctx context.Context, suggestions []models.RouteSuggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sg := range suggestions {
		batch.Queue(
			`INSERT INTO route_suggestions (`+suggestionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			sg.ID, sg.TenantID, sg.DriverID, sg.Type, sg.Priority, sg.Title, sg.Description,
			sg.EstimatedImprovement.TimeReductionMinutes, sg.EstimatedImprovement.DistanceReductionKm,
			sg.EstimatedImprovement.DelayRiskReduction, sg.Confidence, sg.RequiresConfirmation,
			sg.Status, sg.CreatedAt, sg.ExpiresAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range suggestions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save suggestions: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetSuggestion(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.RouteSuggestion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+suggestionColumns+` FROM route_suggestions WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	sg, err := scanSuggestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return sg, nil
}

func (s *PostgresStore) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]*models.RouteSuggestion, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	argIdx := 2

	if filter.DriverID != "" {
		conditions = append(conditions, fmt.Sprintf("driver_id = $%d", argIdx))
		args = append(args, filter.DriverID)
		argIdx++
	}
	switch {
	case filter.Status == "":
	case filter.AsOf.IsZero():
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	case filter.Status == models.SuggestionPending:
		conditions = append(conditions, fmt.Sprintf("status = 'pending' AND expires_at > $%d", argIdx))
		args = append(args, filter.AsOf)
		argIdx++
	case filter.Status == models.SuggestionExpired:
		conditions = append(conditions, fmt.Sprintf("(status = 'expired' OR (status = 'pending' AND expires_at <= $%d))", argIdx))
		args = append(args, filter.AsOf)
		argIdx++
	default:
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM route_suggestions WHERE %s ORDER BY created_at DESC, id LIMIT $%d`,
		suggestionColumns, strings.Join(conditions, " AND "), argIdx)
	args = append(args, NormalizeLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	out := []*models.RouteSuggestion{}
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TransitionSuggestion(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, status models.SuggestionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE route_suggestions SET status = $3 WHERE id = $1 AND tenant_id = $2 AND status = 'pending'`,
		id, tenantID, status)
	if err != nil {
		return fmt.Errorf("transition suggestion: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM route_suggestions WHERE id = $1 AND tenant_id = $2)`, id, tenantID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("transition suggestion: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (s *PostgresStore) ExpireSuggestions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE route_suggestions SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire suggestions: %w", err)
	}
	return tag.RowsAffected(), nil
}
