package gpx

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

var fixedNow = time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

func testDecoder(mode Mode) *Decoder {
	return &Decoder{Mode: mode, Now: func() time.Time { return fixedNow }}
}

func sampleTrack() *models.Track {
	created := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	t := models.NewTrack("Ridge Loop & Back", created)
	t.Description = "morning <hike>"
	t.AddPoint(models.NewPoint(46.5190, 7.9831, created.Add(10*time.Second)).WithElevation(1034.25))
	t.AddPoint(models.NewPoint(46.5201, 7.9855, created.Add(70*time.Second)).WithElevation(1041))
	t.AddPoint(models.NewPoint(-46.52123456789, -7.98765432101, created.Add(130*time.Second)).WithElevation(0))
	return t
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range []Mode{ModeHeuristic, ModeStructured} {
		t.Run(string(mode), func(t *testing.T) {
			in := sampleTrack()
			data, err := Marshal(in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}

			out, err := testDecoder(mode).Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if out.Name != in.Name {
				t.Errorf("Name = %q, want %q", out.Name, in.Name)
			}
			if out.Description != in.Description {
				t.Errorf("Description = %q, want %q", out.Description, in.Description)
			}
			if out.CreatedAt != in.CreatedAt {
				t.Errorf("CreatedAt = %d, want %d", out.CreatedAt, in.CreatedAt)
			}
			if out.PointCount() != in.PointCount() {
				t.Fatalf("PointCount = %d, want %d", out.PointCount(), in.PointCount())
			}
			for i, want := range in.Points {
				got := out.Points[i]
				if got.Latitude != want.Latitude || got.Longitude != want.Longitude {
					t.Errorf("point %d coords = (%v,%v), want (%v,%v)", i, got.Latitude, got.Longitude, want.Latitude, want.Longitude)
				}
				if !got.HasElevation() || *got.Elevation != *want.Elevation {
					t.Errorf("point %d elevation = %v, want %v", i, got.Elevation, *want.Elevation)
				}
				if got.Timestamp != want.Timestamp || got.TimeEstimated {
					t.Errorf("point %d timestamp = %d (estimated=%v), want %d", i, got.Timestamp, got.TimeEstimated, want.Timestamp)
				}
			}
		})
	}
}

func TestEncodeOmitsOnlyUnsetElevation(t *testing.T) {
	tr := models.NewTrack("sea level", fixedNow)
	tr.AddPoint(models.NewPoint(1, 2, fixedNow).WithElevation(0))
	tr.AddPoint(models.NewPoint(1, 3, fixedNow))

	data, err := Marshal(tr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if n := strings.Count(string(data), "<ele>"); n != 1 {
		t.Fatalf("expected exactly one <ele>, got %d in\n%s", n, data)
	}
	if !strings.Contains(string(data), "<ele>0</ele>") {
		t.Fatalf("sea level elevation not written:\n%s", data)
	}
}

func TestEncodeDocumentShape(t *testing.T) {
	data, err := Marshal(sampleTrack())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<gpx version="1.1" creator="HikingUtility" xmlns="http://www.topografix.com/GPX/1/1">`,
		`<time>2025-07-01T06:00:00Z</time>`,
		`<trkpt lat="46.519" lon="7.9831">`,
		`<time>2025-07-01T06:00:10Z</time>`,
		`<desc>morning &lt;hike&gt;</desc>`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestEncodedOutputReadableByGpxgo(t *testing.T) {
	in := sampleTrack()
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	doc, err := gpx.ParseBytes(data)
	if err != nil {
		t.Fatalf("gpxgo could not parse output: %v", err)
	}
	if len(doc.Tracks) != 1 || len(doc.Tracks[0].Segments) != 1 {
		t.Fatalf("unexpected structure: %d tracks", len(doc.Tracks))
	}
	pts := doc.Tracks[0].Segments[0].Points
	if len(pts) != 3 {
		t.Fatalf("gpxgo saw %d points, want 3", len(pts))
	}
	if pts[1].Elevation.Value() != 1041 || !pts[1].Timestamp.Equal(in.Points[1].Time()) {
		t.Fatalf("unexpected second point: %+v", pts[1])
	}
}

func TestDecodeMissingElevationAndTime(t *testing.T) {
	doc := `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <trkseg>
      <trkpt lat="51.5" lon="-0.12">
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

	for _, mode := range []Mode{ModeHeuristic, ModeStructured} {
		t.Run(string(mode), func(t *testing.T) {
			tr, err := testDecoder(mode).Decode([]byte(doc))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if tr.Name != DefaultImportName {
				t.Errorf("Name = %q, want %q", tr.Name, DefaultImportName)
			}
			if tr.PointCount() != 1 {
				t.Fatalf("PointCount = %d, want 1", tr.PointCount())
			}
			p := tr.Points[0]
			if p.Latitude != 51.5 || p.Longitude != -0.12 {
				t.Errorf("coords = (%v,%v)", p.Latitude, p.Longitude)
			}
			if p.HasElevation() {
				t.Errorf("elevation should be unset, got %v", *p.Elevation)
			}
			if !p.TimeEstimated || p.Timestamp != fixedNow.UnixMilli() {
				t.Errorf("expected fallback timestamp, got %d (estimated=%v)", p.Timestamp, p.TimeEstimated)
			}
		})
	}
}

func TestDecodeInvalidCoordinate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		attr string
	}{
		{"lat", `<gpx><trk><trkseg><trkpt lat="not-a-number" lon="0"></trkpt></trkseg></trk></gpx>`, "lat"},
		{"lon", "<gpx>\n<trkpt lat=\"1\" lon=\"east\">\n</trkpt>\n</gpx>", "lon"},
		{"nan", `<trkpt lat="NaN" lon="0">`, "lat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := testDecoder(ModeHeuristic).Decode([]byte(tt.doc))
			if tr != nil {
				t.Fatalf("expected no track, got %+v", tr)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FormatError, got %v", err)
			}
			if fe.Attr != tt.attr {
				t.Fatalf("Attr = %q, want %q", fe.Attr, tt.attr)
			}
		})
	}
}

func TestDecodeInvalidCoordinateWrapsParseError(t *testing.T) {
	_, err := Decode([]byte(`<trkpt lat="x" lon="0">`))
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Fatalf("expected wrapped *strconv.NumError, got %v", err)
	}
}

func TestDecodeStructuredMalformedXML(t *testing.T) {
	_, err := testDecoder(ModeStructured).Decode([]byte(`<gpx><trk><trkseg><trkpt lat="1" lon="0"></trkseg></gpx>`))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestDecodeNoTrackPoints(t *testing.T) {
	tr, err := testDecoder(ModeHeuristic).Decode([]byte(`<gpx><metadata><name>Empty</name></metadata></gpx>`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.Name != "Empty" || tr.PointCount() != 0 {
		t.Fatalf("unexpected track: %+v", tr)
	}
}

func TestDecodeBadElevationLeavesItUnset(t *testing.T) {
	doc := `<trkpt lat="1" lon="2">
  <ele>high</ele>
  <time>yesterday</time>
</trkpt>`
	tr, err := testDecoder(ModeHeuristic).Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := tr.Points[0]
	if p.HasElevation() {
		t.Fatalf("unparsable elevation should stay unset")
	}
	if !p.TimeEstimated || p.Timestamp != fixedNow.UnixMilli() {
		t.Fatalf("unparsable time should fall back to now")
	}
}

func TestDecodeSingleLineDocument(t *testing.T) {
	doc := `<gpx><trk><name>Flat</name><trkseg>` +
		`<trkpt lat="1" lon="1"><ele>10</ele><time>2025-01-01T10:00:00Z</time></trkpt>` +
		`<trkpt lat="2" lon="2"><ele>20</ele><time>2025-01-01T10:00:05Z</time></trkpt>` +
		`<trkpt lat="3" lon="3"></trkpt>` +
		`</trkseg></trk></gpx>`

	tr, err := testDecoder(ModeHeuristic).Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.PointCount() != 3 {
		t.Fatalf("PointCount = %d, want 3", tr.PointCount())
	}
	if *tr.Points[0].Elevation != 10 || *tr.Points[1].Elevation != 20 {
		t.Fatalf("elevations not matched to their own points: %v, %v", *tr.Points[0].Elevation, *tr.Points[1].Elevation)
	}
	if tr.Points[1].Timestamp-tr.Points[0].Timestamp != 5000 {
		t.Fatalf("times not matched to their own points")
	}
	if tr.Points[2].HasElevation() || !tr.Points[2].TimeEstimated {
		t.Fatalf("third point should not borrow tags from the second: %+v", tr.Points[2])
	}
}

func TestDecodeAttributeOrderAndQuotes(t *testing.T) {
	tr, err := testDecoder(ModeHeuristic).Decode([]byte(`<trkpt lon='8.5' lat='47.25'/>`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.PointCount() != 1 || tr.Points[0].Latitude != 47.25 || tr.Points[0].Longitude != 8.5 {
		t.Fatalf("unexpected points: %+v", tr.Points)
	}
}

func TestDecodeElevationOutsideWindow(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("<trkpt lat=\"1\" lon=\"2\">\n")
	for i := 0; i < 12; i++ {
		b.WriteString("<extensions/>\n")
	}
	b.WriteString("<ele>99</ele>\n</trkpt>\n")

	tr, err := testDecoder(ModeHeuristic).Decode(b.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.Points[0].HasElevation() {
		t.Fatalf("<ele> 13 lines below the point should not be found")
	}
}

func TestDecodeStructuredWaypointsFallback(t *testing.T) {
	doc := `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="46.1" lon="7.1"><ele>500</ele><name>Hut</name></wpt>
  <wpt lat="46.2" lon="7.2"><name>Summit</name></wpt>
</gpx>`
	tr, err := testDecoder(ModeStructured).Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if tr.PointCount() != 2 || tr.Points[0].Name != "Hut" || *tr.Points[0].Elevation != 500 || tr.Points[1].HasElevation() {
		t.Fatalf("unexpected waypoints: %+v", tr.Points)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode(" Structured ") != ModeStructured || ParseMode("") != ModeHeuristic || ParseMode("xml") != ModeHeuristic {
		t.Fatalf("ParseMode mapping wrong")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Morning Hike", "Morning_Hike"},
		{"04-07-25-12-00-00", "04-07-25-12-00-00"},
		{"Zürich/Üetliberg:2", "Z_rich__etliberg_2"},
		{"a.b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if FileName("Morning Hike") != "Morning_Hike.gpx" || FileName("") != "track.gpx" {
		t.Errorf("FileName mismatch")
	}
}
