package gate_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/cache"
	"github.com/kiranshivaraju/dispatchiq/internal/gate"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlans struct {
	plan  models.TenantPlanInfo
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakePlans) GetPlan(_ context.Context, _ uuid.UUID) (models.TenantPlanInfo, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.plan, f.err
}

func proPlan() models.TenantPlanInfo {
	return models.TenantPlanInfo{Plan: models.PlanPro, DelayPrediction: true, RouteOptimization: true, AutoAlerts: true}
}

func TestGate_Features(t *testing.T) {
	tests := []struct {
		name                 string
		plan                 models.TenantPlanInfo
		wantDelay, wantRoute bool
		wantAlerts           bool
	}{
		{"pro with everything", proPlan(), true, true, true},
		{"free is never eligible", models.TenantPlanInfo{Plan: models.PlanFree, DelayPrediction: true, RouteOptimization: true, AutoAlerts: true}, false, false, false},
		{"both core features off", models.TenantPlanInfo{Plan: models.PlanEnterprise, AutoAlerts: true}, false, false, false},
		{"delay only", models.TenantPlanInfo{Plan: models.PlanStarter, DelayPrediction: true}, true, false, false},
		{"route and alerts", models.TenantPlanInfo{Plan: models.PlanStarter, RouteOptimization: true, AutoAlerts: true}, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gate.New(&fakePlans{plan: tt.plan}, cache.NewMemoryCache(), 0, zerolog.Nop(), nil)
			ctx := context.Background()
			tenant := uuid.New()

			assert.Equal(t, tt.wantDelay, g.CanUseDelayPrediction(ctx, tenant))
			assert.Equal(t, tt.wantRoute, g.CanUseRouteOptimization(ctx, tenant))
			assert.Equal(t, tt.wantAlerts, g.CanUseAutoAlerts(ctx, tenant))
		})
	}
}

func TestGate_CachesPlan(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	plans := &fakePlans{plan: proPlan()}
	g := gate.New(plans, c, time.Minute, zerolog.Nop(), nil)
	ctx := context.Background()
	tenant := uuid.New()

	assert.True(t, g.CanUseDelayPrediction(ctx, tenant))
	assert.True(t, g.CanUseRouteOptimization(ctx, tenant))
	assert.True(t, g.CanUseAutoAlerts(ctx, tenant))
	assert.Equal(t, int32(1), plans.calls.Load())

	mr.FastForward(59 * time.Second)
	assert.True(t, g.CanUseDelayPrediction(ctx, tenant))
	assert.Equal(t, int32(1), plans.calls.Load(), "still within ttl")

	mr.FastForward(2 * time.Second)
	assert.True(t, g.CanUseDelayPrediction(ctx, tenant))
	assert.Equal(t, int32(2), plans.calls.Load(), "refetched after ttl")
}

func TestGate_FailsClosed(t *testing.T) {
	plans := &fakePlans{err: errors.New("platform down")}
	g := gate.New(plans, cache.NewMemoryCache(), 0, zerolog.Nop(), nil)
	ctx := context.Background()
	tenant := uuid.New()

	assert.False(t, g.CanUseDelayPrediction(ctx, tenant))
	assert.False(t, g.CanUseRouteOptimization(ctx, tenant))

	_, err := g.Plan(ctx, tenant)
	assert.Error(t, err)
	assert.Equal(t, int32(3), plans.calls.Load(), "failures are not cached")
}

func TestGate_CorruptEntryIsRefetched(t *testing.T) {
	c := cache.NewMemoryCache()
	plans := &fakePlans{plan: proPlan()}
	g := gate.New(plans, c, 0, zerolog.Nop(), nil)
	ctx := context.Background()
	tenant := uuid.New()

	require.NoError(t, c.Set(ctx, cache.PlanKey(tenant), []byte("{not json"), time.Minute))

	assert.True(t, g.CanUseDelayPrediction(ctx, tenant))
	assert.Equal(t, int32(1), plans.calls.Load())

	data, found, err := c.Get(ctx, cache.PlanKey(tenant))
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"plan":"pro","delay_prediction":true,"route_optimization":true,"auto_alerts":true}`, string(data))
}

func TestGate_CollapsesConcurrentMisses(t *testing.T) {
	plans := &fakePlans{plan: proPlan(), delay: 50 * time.Millisecond}
	g := gate.New(plans, cache.NewMemoryCache(), 0, zerolog.Nop(), nil)
	ctx := context.Background()
	tenant := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, g.CanUseRouteOptimization(ctx, tenant))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), plans.calls.Load())
}
