package models

// StoredTrackFilter represents filter parameters for listing stored tracks
type StoredTrackFilter struct {
	Source   string `form:"source"`
	Name     string `form:"name"` // substring match
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
