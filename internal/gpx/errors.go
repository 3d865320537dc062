package gpx

import "fmt"

// FormatError reports a track point coordinate that is not a valid number.
// Decoding stops at the first one and no partial track is returned.
type FormatError struct {
	Line  int    // 1-based line of the offending <trkpt>, 0 when unknown
	Attr  string // "lat" or "lon", empty for structural errors
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Attr == "" {
		return fmt.Sprintf("gpx: malformed document: %v", e.Err)
	}
	return fmt.Sprintf("gpx: line %d: invalid %s %q: %v", e.Line, e.Attr, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
