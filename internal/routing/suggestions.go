package routing

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/geo"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

const (
	reorderMinSavingKm  = 1.0
	reorderHighSavingKm = 3.0
	slowDriverMinutes   = 20.0

	// minutes saved per high-traffic leg avoided
	trafficLegMinutes = 5

	reorderTTL     = time.Hour
	alternativeTTL = 30 * time.Minute
	driverTTL      = 2 * time.Hour

	reorderConfidence     = 0.8
	alternativeConfidence = 0.6
	driverConfidence      = 0.5
)

// SuggestionInput is everything suggestion generation looks at.
// DriverStats is optional.
type SuggestionInput struct {
	TenantID    uuid.UUID
	Route       models.CurrentRoute
	DriverStats *models.DriverStats
	Now         time.Time
}

// GenerateSuggestions evaluates each suggestion rule independently against a
// route in progress. Results are in rule order: reorder, alternative route,
// change driver. Routes with fewer than two points yield an empty slice.
func GenerateSuggestions(in SuggestionInput) []models.RouteSuggestion {
	out := []models.RouteSuggestion{}
	if len(in.Route.Points) < 2 {
		return out
	}

	if s, ok := reorderSuggestion(in); ok {
		out = append(out, s)
	}
	if s, ok := alternativeRouteSuggestion(in); ok {
		out = append(out, s)
	}
	if s, ok := changeDriverSuggestion(in); ok {
		out = append(out, s)
	}
	return out
}

func reorderSuggestion(in SuggestionInput) (models.RouteSuggestion, bool) {
	current := PathDistanceKm(in.Route.Points)
	optimized := PathDistanceKm(NearestNeighbor(in.Route.Points))
	saving := current - optimized
	if saving <= reorderMinSavingKm {
		return models.RouteSuggestion{}, false
	}

	priority := models.PriorityMedium
	if saving > reorderHighSavingKm {
		priority = models.PriorityHigh
	}

	s := newSuggestion(in, models.SuggestionReorderStops, priority, reorderTTL, reorderConfidence)
	s.Title = "Reorder remaining stops"
	s.Description = fmt.Sprintf("Visiting stops in nearest-neighbor order saves %.1f km.", saving)
	s.EstimatedImprovement = models.Improvement{
		TimeReductionMinutes: int(math.Round(geo.TravelMinutes(saving))),
		DistanceReductionKm:  roundKm(saving),
		DelayRiskReduction:   clamp01(saving / current),
	}
	return s, true
}

func alternativeRouteSuggestion(in SuggestionInput) (models.RouteSuggestion, bool) {
	congested := 0
	for _, level := range in.Route.LegTraffic {
		if level == models.TrafficHigh {
			congested++
		}
	}
	if congested == 0 {
		return models.RouteSuggestion{}, false
	}

	s := newSuggestion(in, models.SuggestionAlternativeRoute, models.PriorityMedium, alternativeTTL, alternativeConfidence)
	s.Title = "Avoid heavy traffic"
	s.Description = fmt.Sprintf("%d leg(s) of the current route report heavy traffic. Consider an alternative path.", congested)
	s.EstimatedImprovement = models.Improvement{
		TimeReductionMinutes: congested * trafficLegMinutes,
		DelayRiskReduction:   clamp01(float64(congested) / float64(len(in.Route.Points)-1)),
	}
	return s, true
}

func changeDriverSuggestion(in SuggestionInput) (models.RouteSuggestion, bool) {
	stats := in.DriverStats
	if stats == nil || stats.AverageDelayMinutes <= slowDriverMinutes {
		return models.RouteSuggestion{}, false
	}

	s := newSuggestion(in, models.SuggestionChangeDriver, models.PriorityLow, driverTTL, driverConfidence)
	s.Title = "Consider reassigning this route"
	s.Description = fmt.Sprintf(
		"Driver %s averages %.0f minutes of delay (%.0fth percentile).",
		stats.DriverID, stats.AverageDelayMinutes, stats.Percentile,
	)
	s.EstimatedImprovement = models.Improvement{
		TimeReductionMinutes: int(math.Round(stats.AverageDelayMinutes - slowDriverMinutes)),
		DelayRiskReduction:   clamp01(1 - stats.OnTimeRate),
	}
	return s, true
}

func newSuggestion(in SuggestionInput, t models.SuggestionType, p models.Priority, ttl time.Duration, confidence float64) models.RouteSuggestion {
	return models.RouteSuggestion{
		ID:                   uuid.New(),
		TenantID:             in.TenantID,
		DriverID:             in.Route.DriverID,
		Type:                 t,
		Priority:             p,
		Confidence:           confidence,
		RequiresConfirmation: true,
		Status:               models.SuggestionPending,
		CreatedAt:            in.Now,
		ExpiresAt:            in.Now.Add(ttl),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*1000) / 1000
}

func roundKm(v float64) float64 {
	return math.Round(v*100) / 100
}
