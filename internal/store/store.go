package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// ErrStatusConflict is returned when a suggestion is no longer pending at
// the moment a transition is written.
var ErrStatusConflict = errors.New("suggestion status changed concurrently")

// Store is the data access interface. All database operations go through here.
// Implementations must be safe for concurrent use.
type Store interface {
	Ping(ctx context.Context) error

	// GetOrCreateSettings returns the tenant's settings, inserting defaults
	// if none exist. Concurrent first calls all observe the same row.
	GetOrCreateSettings(ctx context.Context, defaults *models.LogisticsAISettings) (*models.LogisticsAISettings, error)
	UpsertSettings(ctx context.Context, settings *models.LogisticsAISettings) error

	AppendDecision(ctx context.Context, d *models.AIDecisionLog) error
	ListDecisions(ctx context.Context, filter DecisionFilter) ([]*models.AIDecisionLog, error)
	DecisionStats(ctx context.Context, tenantID uuid.UUID, since time.Time) (*models.DecisionStats, error)
	DeleteDecisionsBefore(ctx context.Context, tenantID uuid.UUID, before time.Time) (int64, error)
	ListDecisionTenants(ctx context.Context) ([]uuid.UUID, error)

	CreateAlert(ctx context.Context, alert *models.AIAlert) error
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.AIAlert, error)
	MarkAlertRead(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error

	SaveSuggestions(ctx context.Context, suggestions []models.RouteSuggestion) error
	GetSuggestion(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.RouteSuggestion, error)
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]*models.RouteSuggestion, error)
	// TransitionSuggestion moves a pending suggestion to status. It returns
	// ErrNotFound for an unknown id and ErrStatusConflict if the row is no
	// longer pending.
	TransitionSuggestion(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, status models.SuggestionStatus) error
	// ExpireSuggestions marks every pending suggestion whose expiry is at or
	// before now as expired and returns how many changed.
	ExpireSuggestions(ctx context.Context, now time.Time) (int64, error)
}

// Query limits shared by every list operation.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// DecisionFilter narrows an audit log query. Zero values mean "any".
type DecisionFilter struct {
	TenantID uuid.UUID
	Type     models.DecisionType
	OrderID  string
	From     time.Time
	To       time.Time
	Limit    int
}

type AlertFilter struct {
	TenantID   uuid.UUID
	UnreadOnly bool
	Limit      int
}

type SuggestionFilter struct {
	TenantID uuid.UUID
	DriverID string
	Status   models.SuggestionStatus
	// AsOf, when set, makes the pending and expired filters clock-aware: a
	// pending row whose expires_at is at or before AsOf counts as expired.
	AsOf  time.Time
	Limit int
}

// NormalizeLimit clamps a requested page size to [1, MaxLimit].
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// newStats fills the derived rates of DecisionStats from raw sums.
func newStats(counts map[models.DecisionType]int, confidenceSum float64, fallbacks int) *models.DecisionStats {
	total := 0
	for _, n := range counts {
		total += n
	}
	stats := &models.DecisionStats{
		TotalDecisions: total,
		CountsByType:   counts,
	}
	if total > 0 {
		stats.AverageConfidence = confidenceSum / float64(total)
		stats.FallbackRate = float64(fallbacks) / float64(total)
	}
	return stats
}
