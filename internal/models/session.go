package models

import "fmt"

// SessionState is the lifecycle state of a recording session
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionRecording
	SessionPaused
	SessionStopped
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionRecording:
		return "recording"
	case SessionPaused:
		return "paused"
	case SessionStopped:
		return "stopped"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// MarshalText renders the state as its lowercase name
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *SessionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = SessionIdle
	case "recording":
		*s = SessionRecording
	case "paused":
		*s = SessionPaused
	case "stopped":
		*s = SessionStopped
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// RecordingStatus is the read-only view of the live session served to clients
type RecordingStatus struct {
	SessionID    string       `json:"sessionId,omitempty"`
	State        SessionState `json:"state"`
	TrackName    string       `json:"trackName,omitempty"`
	SessionStart int64        `json:"sessionStart,omitempty"` // Unix milliseconds
	Stats        LiveStats    `json:"stats"`
	LastPoint    *Point       `json:"lastPoint,omitempty"`
}

// SessionRecord is the persisted log entry of one recording session
type SessionRecord struct {
	ID         string `json:"id" db:"id"`
	TrackName  string `json:"trackName" db:"track_name"`
	State      string `json:"state" db:"state"`
	PointCount int    `json:"pointCount" db:"point_count"`
	FileName   string `json:"fileName,omitempty" db:"file_name"`
	StartedAt  int64  `json:"startedAt" db:"started_at"`           // Unix milliseconds
	StoppedAt  *int64 `json:"stoppedAt,omitempty" db:"stopped_at"` // Unix milliseconds
}

// Stream event types
const (
	EventPoint = "point"
	EventState = "state"
)

// StreamEvent is pushed to live stream clients on every accepted point and state change
type StreamEvent struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	State     SessionState `json:"state"`
	Point     *Point       `json:"point,omitempty"`
	Stats     *LiveStats   `json:"stats,omitempty"`
	FileName  string       `json:"fileName,omitempty"` // set on the final state event when a file was written
}
