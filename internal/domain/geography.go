package domain

// GeographicContext is the impossible-travel signal computed for a
// transaction against the account's last known location.
type GeographicContext struct {
	ImpossibleTravel bool    `json:"impossible_travel"`
	DistanceKm       float64 `json:"distance_km"`
	RequiredSpeedKmh float64 `json:"required_speed_kmh"`

	PreviousLocation *Location `json:"previous_location,omitempty"`
	CurrentLocation  *Location `json:"current_location,omitempty"`
}

// NormalGeographicContext is the sentinel returned when the account has
// no prior location on record.
func NormalGeographicContext() GeographicContext {
	return GeographicContext{}
}
