package gpx

import (
	"errors"
	"html"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// DefaultImportName is used when the document has no <name>
const DefaultImportName = "Imported Track"

// Lines searched around a <trkpt> for its <ele> and <time>
const (
	windowBefore = 5
	windowAfter  = 10
)

var (
	namePattern     = regexp.MustCompile(`<name>(.*?)</name>`)
	descPattern     = regexp.MustCompile(`<desc>(.*?)</desc>`)
	metadataPattern = regexp.MustCompile(`(?s)<metadata>.*?</metadata>`)
	trkptPattern    = regexp.MustCompile(`<trkpt\b([^>]*)>`)
	latAttrPattern  = regexp.MustCompile(`\blat\s*=\s*["']([^"']*)["']`)
	lonAttrPattern  = regexp.MustCompile(`\blon\s*=\s*["']([^"']*)["']`)
	elePattern      = regexp.MustCompile(`<ele>([^<]+)</ele>`)
	timePattern     = regexp.MustCompile(`<time>([^<]+)</time>`)
)

// Mode selects how GPX text is turned into a track
type Mode string

const (
	// ModeHeuristic scrapes the text with tolerant pattern matching; it accepts
	// documents that are not well-formed XML.
	ModeHeuristic Mode = "heuristic"
	// ModeStructured parses the document as XML.
	ModeStructured Mode = "structured"
)

// ParseMode maps a config value to a Mode, defaulting to ModeHeuristic
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeStructured {
		return ModeStructured
	}
	return ModeHeuristic
}

// Decoder turns GPX text into a track. Now supplies the fallback timestamp
// for points without a usable <time>.
type Decoder struct {
	Mode Mode
	Now  func() time.Time
}

// NewDecoder creates a decoder using the wall clock
func NewDecoder(mode Mode) *Decoder {
	return &Decoder{Mode: mode, Now: time.Now}
}

// Decode parses data with the heuristic decoder and the wall clock
func Decode(data []byte) (*models.Track, error) {
	return NewDecoder(ModeHeuristic).Decode(data)
}

// Decode parses data according to d.Mode
func (d *Decoder) Decode(data []byte) (*models.Track, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	if d.Mode == ModeStructured {
		return decodeStructured(data, now())
	}
	return decodeHeuristic(string(data), now())
}

func decodeHeuristic(content string, now time.Time) (*models.Track, error) {
	track := models.NewTrack(DefaultImportName, now)

	if m := namePattern.FindStringSubmatch(content); m != nil {
		track.Name = html.UnescapeString(m[1])
	}

	trkpts := trkptPattern.FindAllStringSubmatchIndex(content, -1)

	header := content
	if len(trkpts) > 0 {
		header = content[:trkpts[0][0]]
	}
	if m := metadataPattern.FindString(header); m != "" {
		if tm := timePattern.FindStringSubmatch(m); tm != nil {
			if t, err := parseTime(tm[1]); err == nil {
				track.CreatedAt = t.UnixMilli()
			}
		}
	}
	if idx := strings.Index(header, "<trk>"); idx >= 0 {
		if m := descPattern.FindStringSubmatch(header[idx:]); m != nil {
			track.Description = html.UnescapeString(m[1])
		}
	}

	lineStarts := indexLines(content)
	prevBoundary := 0

	for _, loc := range trkpts {
		start, end := loc[0], loc[1]
		attrs := content[loc[2]:loc[3]]
		line := lineOf(lineStarts, start)

		latM := latAttrPattern.FindStringSubmatch(attrs)
		lonM := lonAttrPattern.FindStringSubmatch(attrs)
		if latM == nil || lonM == nil {
			continue
		}

		lat, err := parseCoordinate(latM[1])
		if err != nil {
			return nil, &FormatError{Line: line + 1, Attr: "lat", Value: latM[1], Err: err}
		}
		lon, err := parseCoordinate(lonM[1])
		if err != nil {
			return nil, &FormatError{Line: line + 1, Attr: "lon", Value: lonM[1], Err: err}
		}

		point := models.Point{Latitude: lat, Longitude: lon}

		// forward: from the tag to the end of this point's element, capped by the window
		windowEnd := len(content)
		if line+windowAfter < len(lineStarts) {
			windowEnd = lineStarts[line+windowAfter]
		}
		if windowEnd < end {
			windowEnd = end
		}
		forward := content[end:windowEnd]
		if cut := pointBoundary(forward); cut >= 0 {
			forward = forward[:cut]
		}
		boundary := end + len(forward)

		// backward: up to windowBefore lines, never into the previous point
		backStart := 0
		if line-windowBefore > 0 {
			backStart = lineStarts[line-windowBefore]
		}
		if backStart < prevBoundary {
			backStart = prevBoundary
		}
		backward := ""
		if backStart < start {
			backward = content[backStart:start]
		}

		if raw, ok := nearest(elePattern, forward, backward); ok {
			if ele, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				point.Elevation = &ele
			}
		}

		point.Timestamp = now.UnixMilli()
		point.TimeEstimated = true
		if raw, ok := nearest(timePattern, forward, backward); ok {
			if t, err := parseTime(raw); err == nil {
				point.Timestamp = t.UnixMilli()
				point.TimeEstimated = false
			}
		}

		track.AddPoint(point)
		prevBoundary = boundary
	}

	return track, nil
}

// nearest returns the first match after the point or, failing that, the
// closest match before it
func nearest(re *regexp.Regexp, forward, backward string) (string, bool) {
	if m := re.FindStringSubmatch(forward); m != nil {
		return m[1], true
	}
	if all := re.FindAllStringSubmatch(backward, -1); len(all) > 0 {
		return all[len(all)-1][1], true
	}
	return "", false
}

// pointBoundary finds where the current point's element ends
func pointBoundary(s string) int {
	cut := -1
	for _, marker := range []string{"</trkpt", "<trkpt"} {
		if i := strings.Index(s, marker); i >= 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	return cut
}

func indexLines(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineOf(lineStarts []int, offset int) int {
	return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > offset }) - 1
}

var errNotFinite = errors.New("coordinate is not finite")

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
