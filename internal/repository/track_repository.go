package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500

	trackColumns = `id, name, file_name, size_bytes, source, point_count, distance_meters,
		duration_millis, elevation_gain_meters, track_created_at, created_at, updated_at`
)

// TrackRepository handles the index of stored GPX files
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert inserts or replaces the index row for t.FileName and fills in
// the generated id and timestamps
func (r *TrackRepository) Upsert(t *models.StoredTrack) error {
	query := `INSERT INTO tracks (name, file_name, size_bytes, source, point_count, distance_meters,
			duration_millis, elevation_gain_meters, track_created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_name) DO UPDATE SET
			name = excluded.name,
			size_bytes = excluded.size_bytes,
			source = excluded.source,
			point_count = excluded.point_count,
			distance_meters = excluded.distance_meters,
			duration_millis = excluded.duration_millis,
			elevation_gain_meters = excluded.elevation_gain_meters,
			track_created_at = excluded.track_created_at,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(query,
		t.Name, t.FileName, t.SizeBytes, t.Source, t.PointCount, t.DistanceMeters,
		t.DurationMillis, t.ElevationGainMeters, t.TrackCreatedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert track %s: %w", t.FileName, err)
	}
	return nil
}

// List returns stored tracks, most recently written first
func (r *TrackRepository) List(filter models.StoredTrackFilter) ([]models.StoredTrack, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Name != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + trackColumns + " FROM tracks" + where +
		" ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]models.StoredTrack, 0)
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, 0, err
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	return tracks, total, nil
}

// GetByID retrieves a stored track; nil when absent
func (r *TrackRepository) GetByID(id int64) (*models.StoredTrack, error) {
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// GetByFileName retrieves a stored track by its file name; nil when absent
func (r *TrackRepository) GetByFileName(fileName string) (*models.StoredTrack, error) {
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE file_name = ?", fileName)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Delete removes the index row, reporting whether it existed
func (r *TrackRepository) Delete(id int64) (bool, error) {
	res, err := r.db.Exec("DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*models.StoredTrack, error) {
	var t models.StoredTrack
	err := row.Scan(
		&t.ID, &t.Name, &t.FileName, &t.SizeBytes, &t.Source, &t.PointCount, &t.DistanceMeters,
		&t.DurationMillis, &t.ElevationGainMeters, &t.TrackCreatedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return &t, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
