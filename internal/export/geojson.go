package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/spatial"
)

// DefaultMaxPreviewPoints caps the vertices of a map preview line
const DefaultMaxPreviewPoints = 500

const (
	initialEpsilonMeters = 1.0
	maxSimplifyRounds    = 24
)

// GeoJSON renders a track as a feature collection: the path as a LineString
// plus start and end markers. Paths longer than maxPoints are simplified;
// maxPoints <= 0 disables simplification.
func GeoJSON(t *models.Track, maxPoints int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if t.PointCount() == 0 {
		return fc
	}

	coords := t.Coordinates()
	kept := PreviewIndices(coords, maxPoints)

	line := make(orb.LineString, len(kept))
	for i, idx := range kept {
		line[i] = orb.Point{coords[idx].Lon, coords[idx].Lat}
	}

	stats := t.Stats()
	path := geojson.NewFeature(line)
	path.Properties["name"] = t.Name
	path.Properties["pointCount"] = stats.PointCount
	path.Properties["previewPointCount"] = len(kept)
	path.Properties["distanceMeters"] = stats.DistanceMeters
	path.Properties["distanceMiles"] = stats.DistanceMiles
	path.Properties["durationMillis"] = stats.DurationMillis
	path.Properties["elevationGainMeters"] = stats.ElevationGainMeters
	if stats.Bounds != nil {
		b := stats.Bounds
		path.BBox = geojson.BBox{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
	}
	if stats.Center != nil {
		path.Properties["center"] = []float64{stats.Center.Lon, stats.Center.Lat}
	}
	fc.Append(path)

	fc.Append(marker(t.Points[0], "start"))
	if t.PointCount() > 1 {
		fc.Append(marker(t.Points[t.PointCount()-1], "end"))
	}
	return fc
}

// PreviewIndices returns the indices of at most maxPoints points that keep
// the shape of the path. The first and last points always survive.
func PreviewIndices(points []spatial.Point, maxPoints int) []int {
	n := len(points)
	if maxPoints <= 0 || n <= maxPoints {
		return sequence(n)
	}
	if maxPoints < 2 {
		maxPoints = 2
	}

	epsilon := initialEpsilonMeters
	for round := 0; round < maxSimplifyRounds; round++ {
		kept := spatial.SimplifyPath(points, epsilon)
		if len(kept) <= maxPoints {
			return kept
		}
		epsilon *= 2
	}
	return decimate(n, maxPoints)
}

func marker(p models.Point, role string) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
	f.Properties["role"] = role
	f.Properties["timestamp"] = p.Timestamp
	if p.HasElevation() {
		f.Properties["elevation"] = *p.Elevation
	}
	return f
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// decimate picks evenly spaced indices including both ends
func decimate(n, max int) []int {
	out := make([]int, max)
	step := float64(n-1) / float64(max-1)
	for i := range out {
		out[i] = int(float64(i)*step + 0.5)
	}
	out[max-1] = n - 1
	return out
}
