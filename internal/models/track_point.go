package models

import "time"

// Point represents one recorded or imported GPS sample
type Point struct {
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Elevation *float64 `json:"elevation,omitempty" db:"elevation"` // meters, nil when unknown
	Timestamp int64    `json:"timestamp" db:"timestamp"`           // Unix milliseconds

	// TimeEstimated marks a timestamp that was not read from the source
	// (GPX import without a usable <time>) and was filled with the import clock.
	TimeEstimated bool `json:"timeEstimated,omitempty" db:"time_estimated"`

	Name        string `json:"name,omitempty" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
}

// NewPoint creates a point without elevation
func NewPoint(lat, lon float64, ts time.Time) Point {
	return Point{Latitude: lat, Longitude: lon, Timestamp: ts.UnixMilli()}
}

// WithElevation returns a copy of p carrying the given elevation
func (p Point) WithElevation(meters float64) Point {
	p.Elevation = &meters
	return p
}

// HasElevation reports whether the elevation is known
func (p Point) HasElevation() bool {
	return p.Elevation != nil
}

// ElevationOrZero returns the elevation, treating unknown as 0
func (p Point) ElevationOrZero() float64 {
	if p.Elevation == nil {
		return 0
	}
	return *p.Elevation
}

// Time returns the timestamp as a UTC time.Time
func (p Point) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}
