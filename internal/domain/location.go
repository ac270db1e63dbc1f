package domain

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// Location is a geographic observation attached to a transaction or an
// account profile.
type Location struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// DistanceKm returns the great-circle distance to another location in
// kilometers using the haversine formula.
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - l.Latitude) * math.Pi / 180
	dLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
