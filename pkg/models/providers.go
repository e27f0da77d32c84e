package models

import (
	"context"

	"github.com/google/uuid"
)

// The interfaces below are implemented by the surrounding platform. The
// engine never talks to platform storage directly; always inject these.

// HistoryProvider returns recorded deliveries for a tenant, newest first.
type HistoryProvider interface {
	GetDeliveryHistory(ctx context.Context, tenantID uuid.UUID, filter HistoryFilter) ([]DeliveryHistoryRecord, error)
}

// ConditionsProvider returns the live context of an order.
type ConditionsProvider interface {
	GetCurrentConditions(ctx context.Context, tenantID uuid.UUID, orderID string) (CurrentConditions, error)
}

// DatasetValidator decides whether a tenant has enough data for AI output.
type DatasetValidator interface {
	IsDatasetSufficient(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// PlanProvider returns a tenant's subscription plan.
type PlanProvider interface {
	GetPlan(ctx context.Context, tenantID uuid.UUID) (TenantPlanInfo, error)
}

// RouteProvider returns a driver's current route, or nil if there is none.
type RouteProvider interface {
	GetCurrentRoute(ctx context.Context, tenantID uuid.UUID, driverID string) (*CurrentRoute, error)
}

// DriverStatsProvider returns a deterministic performance summary of a driver.
type DriverStatsProvider interface {
	GetDriverStats(ctx context.Context, tenantID uuid.UUID, driverID string) (*DriverStats, error)
}

// AlertSink receives alerts after they are stored, e.g. to push them to users.
type AlertSink interface {
	Publish(ctx context.Context, alert AIAlert) error
}
