package models

// Track sources recorded in the index
const (
	SourceRecorded   = "recorded"
	SourceCheckpoint = "checkpoint"
	SourceImported   = "imported"
	SourceOSM        = "osm"
)

// StoredTrack is the index row of a GPX file kept in the tracks directory
type StoredTrack struct {
	ID                  int64   `json:"id" db:"id"`
	Name                string  `json:"name" db:"name"`
	FileName            string  `json:"fileName" db:"file_name"`
	SizeBytes           int64   `json:"sizeBytes" db:"size_bytes"`
	Source              string  `json:"source" db:"source"`
	PointCount          int     `json:"pointCount" db:"point_count"`
	DistanceMeters      float64 `json:"distanceMeters" db:"distance_meters"`
	DurationMillis      int64   `json:"durationMillis" db:"duration_millis"`
	ElevationGainMeters float64 `json:"elevationGainMeters" db:"elevation_gain_meters"`
	TrackCreatedAt      int64   `json:"trackCreatedAt" db:"track_created_at"` // Unix milliseconds
	CreatedAt           string  `json:"createdAt" db:"created_at"`
	UpdatedAt           string  `json:"updatedAt" db:"updated_at"`
}

// StoredTracksResponse represents a paginated response of stored tracks
type StoredTracksResponse struct {
	Data       []StoredTrack `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

// ImportResult describes a GPX import
type ImportResult struct {
	Track          StoredTrack `json:"track"`
	Stats          TrackStats  `json:"stats"`
	EstimatedTimes int         `json:"estimatedTimes"` // points whose <time> was missing or unreadable
}
