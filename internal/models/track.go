package models

import (
	"time"

	"github.com/daveeeeeehike/HikingUtility/internal/spatial"
)

// DefaultTrackNameLayout is used when a track is created without a name
const DefaultTrackNameLayout = "Track_20060102_150405"

// Track is an ordered path of points plus metadata.
// Point order is significant: it defines the path and every interval aggregate.
type Track struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt"` // Unix milliseconds
	Points      []Point `json:"points"`
}

// NewTrack creates an empty track. An empty name is replaced by one derived from now.
func NewTrack(name string, now time.Time) *Track {
	if name == "" {
		name = DefaultTrackName(now)
	}
	return &Track{
		Name:      name,
		CreatedAt: now.UnixMilli(),
		Points:    make([]Point, 0, 64),
	}
}

// DefaultTrackName generates a track name from a timestamp
func DefaultTrackName(t time.Time) string {
	return t.Format(DefaultTrackNameLayout)
}

// AddPoint appends a point to the end of the track
func (t *Track) AddPoint(p Point) {
	t.Points = append(t.Points, p)
}

// PointCount returns the number of points
func (t *Track) PointCount() int {
	return len(t.Points)
}

// TotalDistance returns the summed great-circle distance between consecutive points in meters
func (t *Track) TotalDistance() float64 {
	return PathDistance(t.Points)
}

// Duration returns last.Timestamp - first.Timestamp.
// Non-monotonic input can make it negative; that is left to the caller.
func (t *Track) Duration() time.Duration {
	if len(t.Points) < 2 {
		return 0
	}
	return time.Duration(t.Points[len(t.Points)-1].Timestamp-t.Points[0].Timestamp) * time.Millisecond
}

// ElevationGain sums the positive elevation deltas. Unknown elevation counts as 0.
func (t *Track) ElevationGain() float64 {
	if len(t.Points) < 2 {
		return 0
	}

	var gain float64
	for i := 1; i < len(t.Points); i++ {
		diff := t.Points[i].ElevationOrZero() - t.Points[i-1].ElevationOrZero()
		if diff > 0 {
			gain += diff
		}
	}
	return gain
}

// Bounds returns the bounding box of the track
func (t *Track) Bounds() (spatial.Bounds, bool) {
	return spatial.BoundingBox(t.Coordinates())
}

// Coordinates projects the points onto plain lat/lon pairs
func (t *Track) Coordinates() []spatial.Point {
	return coordinates(t.Points)
}

func coordinates(points []Point) []spatial.Point {
	out := make([]spatial.Point, len(points))
	for i, p := range points {
		out[i] = spatial.Point{Lat: p.Latitude, Lon: p.Longitude}
	}
	return out
}

// Clone returns a deep copy that shares no memory with t
func (t *Track) Clone() *Track {
	c := *t
	c.Points = make([]Point, len(t.Points))
	for i, p := range t.Points {
		if p.Elevation != nil {
			ele := *p.Elevation
			p.Elevation = &ele
		}
		c.Points[i] = p
	}
	return &c
}

// Stats computes the summary statistics of a finished or imported track
func (t *Track) Stats() TrackStats {
	distance := t.TotalDistance()
	duration := t.Duration()

	stats := TrackStats{
		PointCount:          len(t.Points),
		DistanceMeters:      distance,
		DistanceMiles:       spatial.MetersToMiles(distance),
		DurationMillis:      duration.Milliseconds(),
		ElevationGainMeters: t.ElevationGain(),
		AverageSpeedMph:     SpeedMph(distance, duration),
		PaceMinPerMile:      PaceMinPerMile(distance, duration),
	}
	if b, ok := t.Bounds(); ok {
		center := b.Center()
		stats.Bounds = &b
		stats.Center = &center
	}
	return stats
}

// PathDistance sums the great-circle distance over consecutive points
func PathDistance(points []Point) float64 {
	return spatial.PathLength(coordinates(points))
}

// SpeedMph converts a distance covered in the given time into miles per hour.
// Returns 0 when either is not positive.
func SpeedMph(meters float64, elapsed time.Duration) float64 {
	hours := elapsed.Hours()
	if hours <= 0 || meters <= 0 {
		return 0
	}
	return spatial.MetersToMiles(meters) / hours
}

// PaceMinPerMile converts a distance covered in the given time into minutes per mile.
// Returns 0 when either is not positive.
func PaceMinPerMile(meters float64, elapsed time.Duration) float64 {
	miles := spatial.MetersToMiles(meters)
	minutes := elapsed.Minutes()
	if miles <= 0 || minutes <= 0 {
		return 0
	}
	return minutes / miles
}
