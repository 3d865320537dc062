package models

// Provider names reported by location sources
const (
	ProviderGPS     = "gps"
	ProviderNetwork = "network"
)

// Fix is one raw position reading from a location provider
type Fix struct {
	Latitude  float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64  `json:"longitude" binding:"min=-180,max=180"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  float64  `json:"accuracy" binding:"min=0"` // meters, smaller is more precise
	Provider  string   `json:"provider"` // empty when the provider is unknown
	Timestamp int64    `json:"timestamp"` // Unix milliseconds
}

// ToPoint converts the fix into a track point
func (f Fix) ToPoint() Point {
	p := Point{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Timestamp: f.Timestamp,
	}
	if f.Altitude != nil {
		alt := *f.Altitude
		p.Elevation = &alt
	}
	return p
}
