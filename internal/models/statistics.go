package models

import "github.com/daveeeeeehike/HikingUtility/internal/spatial"

// TrackStats is the summary of a complete track
type TrackStats struct {
	PointCount          int             `json:"pointCount"`
	DistanceMeters      float64         `json:"distanceMeters"`
	DistanceMiles       float64         `json:"distanceMiles"`
	DurationMillis      int64           `json:"durationMillis"`
	ElevationGainMeters float64         `json:"elevationGainMeters"`
	AverageSpeedMph     float64         `json:"averageSpeedMph"`
	PaceMinPerMile      float64         `json:"paceMinPerMile"`
	Bounds              *spatial.Bounds `json:"bounds,omitempty"`
	Center              *spatial.Point  `json:"center,omitempty"` // map focus
}

// LiveStats are the aggregates of an in-progress recording.
// Speed and pace use the wall clock since the session started.
type LiveStats struct {
	PointCount            int     `json:"pointCount"`
	DistanceMeters        float64 `json:"distanceMeters"`
	DistanceMiles         float64 `json:"distanceMiles"`
	ElapsedMillis         int64   `json:"elapsedMillis"`
	ElevationGainMeters   float64 `json:"elevationGainMeters"`
	AverageSpeedMph       float64 `json:"averageSpeedMph"`
	PaceMinPerMile        float64 `json:"paceMinPerMile"`
	CurrentPaceMinPerMile float64 `json:"currentPaceMinPerMile"`
}
