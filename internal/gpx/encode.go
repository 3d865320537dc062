package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// Header values of the documents this package writes
const (
	Version   = "1.1"
	Creator   = "HikingUtility"
	Namespace = "http://www.topografix.com/GPX/1/1"
	// TimeLayout is the ISO-8601 UTC layout used for every <time>
	TimeLayout = "2006-01-02T15:04:05Z"
)

type document struct {
	XMLName  xml.Name `xml:"gpx"`
	Version  string   `xml:"version,attr"`
	Creator  string   `xml:"creator,attr"`
	XMLNS    string   `xml:"xmlns,attr"`
	Metadata metadata `xml:"metadata"`
	Track    track    `xml:"trk"`
}

type metadata struct {
	Name string `xml:"name"`
	Time string `xml:"time"`
}

type track struct {
	Name        string  `xml:"name"`
	Description string  `xml:"desc,omitempty"`
	Segment     segment `xml:"trkseg"`
}

type segment struct {
	Points []trackPoint `xml:"trkpt"`
}

type trackPoint struct {
	Lat         string  `xml:"lat,attr"`
	Lon         string  `xml:"lon,attr"`
	Elevation   *string `xml:"ele"`
	Time        string  `xml:"time"`
	Name        string  `xml:"name,omitempty"`
	Description string  `xml:"desc,omitempty"`
}

// Encode writes t as a GPX 1.1 document with a single track segment.
// <ele> is written only for points with a known elevation.
func Encode(w io.Writer, t *models.Track) error {
	doc := document{
		Version: Version,
		Creator: Creator,
		XMLNS:   Namespace,
		Metadata: metadata{
			Name: t.Name,
			Time: formatTime(t.CreatedAt),
		},
		Track: track{
			Name:        t.Name,
			Description: t.Description,
			Segment:     segment{Points: make([]trackPoint, 0, len(t.Points))},
		},
	}

	for _, p := range t.Points {
		tp := trackPoint{
			Lat:         formatFloat(p.Latitude),
			Lon:         formatFloat(p.Longitude),
			Time:        formatTime(p.Timestamp),
			Name:        p.Name,
			Description: p.Description,
		}
		if p.Elevation != nil {
			ele := formatFloat(*p.Elevation)
			tp.Elevation = &ele
		}
		doc.Track.Segment.Points = append(doc.Track.Segment.Points, tp)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return nil
}

// Marshal returns the GPX document for t
func Marshal(t *models.Track) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatFloat writes the shortest decimal that parses back to the same value
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}
