// Package routing orders delivery stops, estimates route cost and risk, and
// proposes improvements to routes already in progress.
//
// The optimizer is a greedy nearest-neighbor heuristic on haversine
// distances. It is deterministic and does not attempt a global solution.
package routing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/geo"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// Optimize orders points for a single route:
//  1. stable sort by priority, high first
//  2. time-window pass (currently leaves the order untouched)
//  3. nearest-neighbor from the first point, kept only if it is no longer
//     than the priority order
//  4. truncation to constraints.MaxStopsPerRoute
//
// The input slice is never modified. Returns an empty slice for no points.
func Optimize(points []models.RoutePoint, c models.RouteConstraints, now time.Time) []models.RoutePoint {
	if len(points) == 0 {
		return []models.RoutePoint{}
	}

	ordered := SortByPriority(points)
	ordered = applyTimeWindows(ordered, c, now)

	if nn := NearestNeighbor(ordered); PathDistanceKm(nn) <= PathDistanceKm(ordered) {
		ordered = nn
	}

	return Truncate(ordered, c.MaxStopsPerRoute)
}

// SortByPriority returns a copy of points stably sorted high > medium > low.
func SortByPriority(points []models.RoutePoint) []models.RoutePoint {
	out := make([]models.RoutePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

// NearestNeighbor starts at points[0] and repeatedly visits the closest
// unvisited point. Equal distances go to the point earlier in the input.
func NearestNeighbor(points []models.RoutePoint) []models.RoutePoint {
	if len(points) < 2 {
		out := make([]models.RoutePoint, len(points))
		copy(out, points)
		return out
	}

	visited := make([]bool, len(points))
	out := make([]models.RoutePoint, 0, len(points))

	current := 0
	visited[0] = true
	out = append(out, points[0])

	for len(out) < len(points) {
		best := -1
		bestDist := 0.0
		for i, p := range points {
			if visited[i] {
				continue
			}
			d := geo.Distance(coord(points[current]), coord(p))
			// strict comparison keeps the earliest index on ties
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		out = append(out, points[best])
		current = best
	}
	return out
}

// Truncate drops points until at most max remain. The lowest-priority point
// is dropped first; among equals the one latest in the route goes first.
// Relative order of the kept points is preserved. max <= 0 means no limit.
func Truncate(points []models.RoutePoint, max int) []models.RoutePoint {
	out := make([]models.RoutePoint, len(points))
	copy(out, points)
	if max <= 0 {
		return out
	}

	for len(out) > max {
		drop := len(out) - 1
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Priority.Rank() < out[drop].Priority.Rank() {
				drop = i
			}
		}
		out = append(out[:drop], out[drop+1:]...)
	}
	return out
}

// applyTimeWindows is the hook for window-aware ordering. Stops carry no
// delivery windows yet, so the order is returned unchanged.
func applyTimeWindows(points []models.RoutePoint, _ models.RouteConstraints, _ time.Time) []models.RoutePoint {
	return points
}

// WithinWorkingHours reports whether now falls inside the constraint's
// working hours. Windows that wrap past midnight are supported. Missing or
// unparseable bounds mean no working hours are configured.
func WithinWorkingHours(c models.RouteConstraints, now time.Time) bool {
	start, err := ParseClock(c.WorkingHoursStart)
	if err != nil {
		return false
	}
	end, err := ParseClock(c.WorkingHoursEnd)
	if err != nil {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("parse clock %q: invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("parse clock %q: invalid minute", s)
	}
	return h*60 + m, nil
}

// PathDistanceKm is the haversine length of the route in visiting order.
func PathDistanceKm(points []models.RoutePoint) float64 {
	path := make([]geo.Coordinate, len(points))
	for i, p := range points {
		path[i] = coord(p)
	}
	return geo.PathDistanceKm(path)
}

// ServiceMinutes is the total time spent at stops.
func ServiceMinutes(points []models.RoutePoint) float64 {
	total := 0.0
	for _, p := range points {
		total += p.EstimatedServiceTimeMinutes
	}
	return total
}

// AssessRisk is the delay-risk heuristic for a whole route.
func AssessRisk(points []models.RoutePoint) models.RiskTier {
	stops := len(points)
	service := ServiceMinutes(points)
	high := 0
	for _, p := range points {
		if p.Priority == models.PriorityHigh {
			high++
		}
	}

	switch {
	case stops > 8 || service > 60:
		return models.RiskHigh
	case stops > 6 || service > 45:
		return models.RiskMedium
	case high > 2:
		return models.RiskMedium
	case stops > 4:
		return models.RiskLow
	default:
		return models.RiskNone
	}
}

// BuildRoute optimizes points and wraps the result with its metrics.
// An empty driverID is recorded as models.UnassignedDriver.
func BuildRoute(tenantID uuid.UUID, driverID string, points []models.RoutePoint, c models.RouteConstraints, now time.Time) models.OptimizedRoute {
	if driverID == "" {
		driverID = models.UnassignedDriver
	}

	ordered := Optimize(points, c, now)
	distance := PathDistanceKm(ordered)

	return models.OptimizedRoute{
		ID:                       uuid.New(),
		TenantID:                 tenantID,
		DriverID:                 driverID,
		Points:                   ordered,
		TotalDistanceKm:          distance,
		EstimatedDurationMinutes: geo.EstimateDurationMinutes(distance, ServiceMinutes(ordered)),
		EstimatedDelayRisk:       AssessRisk(ordered),
		CreatedAt:                now,
	}
}

func coord(p models.RoutePoint) geo.Coordinate {
	return geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}
