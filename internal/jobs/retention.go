package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TenantLister lists every tenant that has decision logs.
type TenantLister interface {
	ListDecisionTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Pruner removes decision logs older than a retention window.
type Pruner interface {
	PruneOlderThan(ctx context.Context, tenantID uuid.UUID, retentionDays int) (int64, error)
}

// RetentionJob prunes each tenant's decision logs past the retention window.
// A failure for one tenant does not stop the others.
type RetentionJob struct {
	tenants TenantLister
	pruner  Pruner
	days    int
}

func NewRetentionJob(tenants TenantLister, pruner Pruner, retentionDays int) *RetentionJob {
	return &RetentionJob{tenants: tenants, pruner: pruner, days: retentionDays}
}

func (j *RetentionJob) Name() string { return "decision_retention" }

func (j *RetentionJob) Run(ctx context.Context) (int64, error) {
	tenants, err := j.tenants.ListDecisionTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing tenants: %w", err)
	}

	var (
		total int64
		errs  []error
	)
	for _, t := range tenants {
		n, err := j.pruner.PruneOlderThan(ctx, t, j.days)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", t, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// Expirer marks lapsed pending suggestions as expired.
type Expirer interface {
	ExpireSuggestions(ctx context.Context, now time.Time) (int64, error)
}

// SuggestionExpiryJob persists the expiry of lapsed suggestions so stored
// statuses catch up with the clock.
type SuggestionExpiryJob struct {
	expirer Expirer
	now     func() time.Time
}

func NewSuggestionExpiryJob(expirer Expirer) *SuggestionExpiryJob {
	return &SuggestionExpiryJob{expirer: expirer, now: time.Now}
}

func (j *SuggestionExpiryJob) Name() string { return "suggestion_expiry" }

func (j *SuggestionExpiryJob) Run(ctx context.Context) (int64, error) {
	n, err := j.expirer.ExpireSuggestions(ctx, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expiring suggestions: %w", err)
	}
	return n, nil
}
