package gpx

import (
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// decodeStructured parses the document as XML. Every track segment is
// flattened into one point sequence; waypoints are used only when the
// document has no track points.
func decodeStructured(data []byte, now time.Time) (*models.Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, &FormatError{Err: err}
	}

	track := models.NewTrack(DefaultImportName, now)
	if doc.Time != nil && !doc.Time.IsZero() {
		track.CreatedAt = doc.Time.UnixMilli()
	}

	switch {
	case doc.Name != "":
		track.Name = doc.Name
	case len(doc.Tracks) > 0 && doc.Tracks[0].Name != "":
		track.Name = doc.Tracks[0].Name
	}
	if len(doc.Tracks) > 0 {
		track.Description = doc.Tracks[0].Description
	}

	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				track.AddPoint(convertPoint(p, now))
			}
		}
	}

	if track.PointCount() == 0 {
		for _, wpt := range doc.Waypoints {
			track.AddPoint(convertPoint(wpt, now))
		}
	}

	return track, nil
}

func convertPoint(p gpx.GPXPoint, now time.Time) models.Point {
	point := models.Point{
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Name:        p.Name,
		Description: p.Description,
	}
	if p.Elevation.NotNull() {
		ele := p.Elevation.Value()
		point.Elevation = &ele
	}
	if p.Timestamp.IsZero() {
		point.Timestamp = now.UnixMilli()
		point.TimeEstimated = true
	} else {
		point.Timestamp = p.Timestamp.UnixMilli()
	}
	return point
}
