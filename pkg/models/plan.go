package models

// PlanTier is a tenant's subscription tier.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// TenantPlanInfo is the subset of a tenant's plan the engine gates on.
type TenantPlanInfo struct {
	Plan              PlanTier `json:"plan"`
	DelayPrediction   bool     `json:"delay_prediction"`
	RouteOptimization bool     `json:"route_optimization"`
	AutoAlerts        bool     `json:"auto_alerts"`
}

// Eligible reports whether the plan allows any engine feature at all.
// Free plans and plans with both core features off are ineligible.
func (p TenantPlanInfo) Eligible() bool {
	if p.Plan == PlanFree {
		return false
	}
	return p.DelayPrediction || p.RouteOptimization
}
