// Package gate decides which engine features a tenant may use, based on the
// tenant's subscription plan. Plans are cached for a short TTL.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/cache"
	"github.com/kiranshivaraju/dispatchiq/internal/metrics"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched plan is trusted.
const DefaultTTL = 5 * time.Minute

// Feature names used in logs and metrics.
const (
	FeatureDelayPrediction   = "delay_prediction"
	FeatureRouteOptimization = "route_optimization"
	FeatureAutoAlerts        = "auto_alerts"
)

// Gate answers feature eligibility questions. Any failure to determine the
// plan denies the feature.
type Gate struct {
	plans   models.PlanProvider
	cache   cache.Cache
	ttl     time.Duration
	group   singleflight.Group
	logger  zerolog.Logger
	metrics *metrics.EngineMetrics
}

// New creates a Gate. A non-positive ttl means DefaultTTL; m may be nil.
func New(plans models.PlanProvider, c cache.Cache, ttl time.Duration, logger zerolog.Logger, m *metrics.EngineMetrics) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{
		plans:   plans,
		cache:   c,
		ttl:     ttl,
		logger:  logger.With().Str("component", "gate").Logger(),
		metrics: m,
	}
}

func (g *Gate) CanUseDelayPrediction(ctx context.Context, tenantID uuid.UUID) bool {
	return g.check(ctx, tenantID, FeatureDelayPrediction, func(p models.TenantPlanInfo) bool {
		return p.DelayPrediction
	})
}

func (g *Gate) CanUseRouteOptimization(ctx context.Context, tenantID uuid.UUID) bool {
	return g.check(ctx, tenantID, FeatureRouteOptimization, func(p models.TenantPlanInfo) bool {
		return p.RouteOptimization
	})
}

func (g *Gate) CanUseAutoAlerts(ctx context.Context, tenantID uuid.UUID) bool {
	return g.check(ctx, tenantID, FeatureAutoAlerts, func(p models.TenantPlanInfo) bool {
		return p.AutoAlerts
	})
}

func (g *Gate) check(ctx context.Context, tenantID uuid.UUID, feature string, allowed func(models.TenantPlanInfo) bool) bool {
	plan, err := g.Plan(ctx, tenantID)
	if err != nil {
		g.logger.Error().Err(err).
			Str("tenant_id", tenantID.String()).
			Str("feature", feature).
			Msg("plan lookup failed, denying feature")
		g.metrics.IncGateDenied(feature)
		return false
	}
	if !plan.Eligible() || !allowed(plan) {
		g.metrics.IncGateDenied(feature)
		return false
	}
	return true
}

// Plan returns the tenant's plan from cache, fetching it on a miss.
// Concurrent misses for one tenant share a single provider call.
func (g *Gate) Plan(ctx context.Context, tenantID uuid.UUID) (models.TenantPlanInfo, error) {
	key := cache.PlanKey(tenantID)

	if plan, ok := g.cached(ctx, key); ok {
		return plan, nil
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		if plan, ok := g.cached(ctx, key); ok {
			return plan, nil
		}
		plan, err := g.plans.GetPlan(ctx, tenantID)
		if err != nil {
			return models.TenantPlanInfo{}, fmt.Errorf("fetching plan: %w", err)
		}
		g.store(ctx, key, plan)
		return plan, nil
	})
	if err != nil {
		return models.TenantPlanInfo{}, err
	}
	return v.(models.TenantPlanInfo), nil
}

// cached reads a plan from the cache. Cache errors count as a miss; an
// undecodable entry is deleted.
func (g *Gate) cached(ctx context.Context, key string) (models.TenantPlanInfo, bool) {
	data, found, err := g.cache.Get(ctx, key)
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
		return models.TenantPlanInfo{}, false
	}
	if !found {
		return models.TenantPlanInfo{}, false
	}

	var plan models.TenantPlanInfo
	if err := json.Unmarshal(data, &plan); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("corrupt plan cache entry, refetching")
		if err := g.cache.Delete(ctx, key); err != nil {
			g.logger.Warn().Err(err).Str("key", key).Msg("failed to delete corrupt plan cache entry")
		}
		return models.TenantPlanInfo{}, false
	}
	return plan, true
}

func (g *Gate) store(ctx context.Context, key string, plan models.TenantPlanInfo) {
	data, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}
