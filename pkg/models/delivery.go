// Package models contains shared data models used across the DispatchIQ codebase.
package models

import "time"

// DeliveryStatus is the final state of a historical delivery.
type DeliveryStatus string

const (
	DeliveryCompleted DeliveryStatus = "completed"
	DeliveryCancelled DeliveryStatus = "cancelled"
	DeliveryDelayed   DeliveryStatus = "delayed"
)

// TrafficLevel is the coarse traffic reading reported by the platform.
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
)

// Valid reports whether t is one of the known traffic levels.
func (t TrafficLevel) Valid() bool {
	switch t {
	case TrafficLow, TrafficMedium, TrafficHigh:
		return true
	}
	return false
}

// DeliveryHistoryRecord is one completed, cancelled or delayed delivery as
// recorded by the platform. The engine only ever reads these.
type DeliveryHistoryRecord struct {
	OrderID          string         `json:"order_id"`
	DriverID         string         `json:"driver_id"`
	DistanceKm       float64        `json:"distance_km"`
	ETAOriginal      time.Time      `json:"eta_original"`
	ETAActual        time.Time      `json:"eta_actual"`
	Status           DeliveryStatus `json:"status"`
	DelayMinutes     float64        `json:"delay_minutes"`
	HourOfDay        int            `json:"hour_of_day"`
	DayOfWeek        int            `json:"day_of_week"`
	Region           string         `json:"region"`
	WeatherCondition *string        `json:"weather_condition,omitempty"`
	TrafficLevel     *TrafficLevel  `json:"traffic_level,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// IsDelayed reports whether the delivery arrived late.
func (r DeliveryHistoryRecord) IsDelayed() bool {
	return r.Status == DeliveryDelayed || r.DelayMinutes > 0
}

// HistoryFilter narrows a history lookup. Zero values mean "no filter".
type HistoryFilter struct {
	DriverID string
	Region   string
	Since    time.Time
	Limit    int
}

// CurrentConditions describes the live context of a single order. Pointer
// fields are optional; nil means the platform had no reading.
type CurrentConditions struct {
	OrderID     string        `json:"order_id"`
	DriverID    string        `json:"driver_id"`
	Region      string        `json:"region"`
	ETAOriginal time.Time     `json:"eta_original"`
	Traffic     *TrafficLevel `json:"traffic,omitempty"`
	Weather     *string       `json:"weather,omitempty"`
	HourOfDay   *int          `json:"hour_of_day,omitempty"`
	DayOfWeek   *int          `json:"day_of_week,omitempty"`
}
