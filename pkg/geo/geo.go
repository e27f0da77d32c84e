// Package geo provides the distance and duration math used by route planning.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// AverageSpeedKmh is the assumed travel speed for duration estimates.
const AverageSpeedKmh = 30.0

// Coordinate is a point in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// HaversineKm returns the great-circle distance between two points given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance is HaversineKm over two coordinates.
func Distance(a, b Coordinate) float64 {
	return HaversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// PathDistanceKm sums the legs between consecutive coordinates.
func PathDistanceKm(path []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// TravelMinutes converts a distance into minutes at AverageSpeedKmh.
func TravelMinutes(km float64) float64 {
	return km / AverageSpeedKmh * 60
}

// EstimateDurationMinutes is travel time plus service time, rounded.
func EstimateDurationMinutes(km, serviceMinutes float64) int {
	return int(math.Round(TravelMinutes(km) + serviceMinutes))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
