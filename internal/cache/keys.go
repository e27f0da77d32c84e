package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlanKey holds a tenant's cached subscription plan.
func PlanKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("plan:%s", tenantID)
}

// RateLimitKey is the request counter of a tenant for the window containing at.
func RateLimitKey(tenantID uuid.UUID, at time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", tenantID, at.Truncate(window).Unix())
}
