package models

import (
	"time"

	"github.com/google/uuid"
)

// UnassignedDriver is used as the driver id of routes built without a driver.
const UnassignedDriver = "unassigned"

// Priority orders stops within a route.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank maps a priority to a sortable integer; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// RoutePoint is a single delivery stop.
type RoutePoint struct {
	OrderID                     string   `json:"order_id"                       validate:"required"`
	Latitude                    float64  `json:"latitude"                       validate:"gte=-90,lte=90"`
	Longitude                   float64  `json:"longitude"                      validate:"gte=-180,lte=180"`
	Address                     string   `json:"address"`
	EstimatedServiceTimeMinutes float64  `json:"estimated_service_time_minutes" validate:"gte=0"`
	Priority                    Priority `json:"priority"                       validate:"oneof=low medium high"`
}

// RouteConstraints bound an optimized route.
type RouteConstraints struct {
	MaxStopsPerRoute        int      `json:"max_stops_per_route"        validate:"gt=0"`
	MaxRouteDurationMinutes int      `json:"max_route_duration_minutes" validate:"gt=0"`
	WorkingHoursStart       string   `json:"working_hours_start"        validate:"omitempty,datetime=15:04"`
	WorkingHoursEnd         string   `json:"working_hours_end"          validate:"omitempty,datetime=15:04"`
	VehicleCapacity         *float64 `json:"vehicle_capacity,omitempty" validate:"omitempty,gt=0"`
}

// OptimizedRoute is the ordered output of the route optimizer.
type OptimizedRoute struct {
	ID                       uuid.UUID    `json:"id"`
	TenantID                 uuid.UUID    `json:"tenant_id"`
	DriverID                 string       `json:"driver_id"`
	Points                   []RoutePoint `json:"points"`
	TotalDistanceKm          float64      `json:"total_distance_km"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes"`
	EstimatedDelayRisk       RiskTier     `json:"estimated_delay_risk"`
	FallbackUsed             bool         `json:"fallback_used"`
	CreatedAt                time.Time    `json:"created_at"`
}

// CurrentRoute is the route a driver is executing right now. LegTraffic,
// when present, holds one reading per leg between consecutive points.
type CurrentRoute struct {
	DriverID   string         `json:"driver_id"`
	Points     []RoutePoint   `json:"points"`
	LegTraffic []TrafficLevel `json:"leg_traffic,omitempty"`
}

// DriverStats summarizes a driver's delivery track record.
type DriverStats struct {
	DriverID            string  `json:"driver_id"`
	Deliveries          int     `json:"deliveries"`
	AverageDelayMinutes float64 `json:"average_delay_minutes"`
	OnTimeRate          float64 `json:"on_time_rate"`
	Percentile          float64 `json:"percentile"`
}

// RouteValidation is the outcome of checking a route against soft limits.
type RouteValidation struct {
	IsValid    bool     `json:"is_valid"`
	Violations []string `json:"violations"`
	Score      int      `json:"score"`
}
