package routing

import (
	"fmt"

	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// Soft limits checked by ValidateRoute.
const (
	maxValidStops       = 10
	maxValidDurationMin = 120
	maxValidDistanceKm  = 50.0
)

// ValidateRoute scores a route out of 100 against soft limits. The route is
// valid only if no limit is violated.
func ValidateRoute(route models.OptimizedRoute) models.RouteValidation {
	score := 100
	violations := []string{}

	if n := len(route.Points); n > maxValidStops {
		score -= 20
		violations = append(violations, fmt.Sprintf("route has %d stops, more than %d", n, maxValidStops))
	}
	if route.EstimatedDurationMinutes > maxValidDurationMin {
		score -= 15
		violations = append(violations, fmt.Sprintf("estimated duration %d minutes exceeds %d", route.EstimatedDurationMinutes, maxValidDurationMin))
	}
	if route.TotalDistanceKm > maxValidDistanceKm {
		score -= 10
		violations = append(violations, fmt.Sprintf("total distance %.1f km exceeds %.0f km", route.TotalDistanceKm, maxValidDistanceKm))
	}
	if route.EstimatedDelayRisk == models.RiskHigh {
		score -= 25
		violations = append(violations, "estimated delay risk is high")
	}

	if score < 0 {
		score = 0
	}
	return models.RouteValidation{
		IsValid:    len(violations) == 0,
		Violations: violations,
		Score:      score,
	}
}
