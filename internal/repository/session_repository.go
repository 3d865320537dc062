package repository

import (
	"database/sql"
	"fmt"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// SessionRepository logs recording sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create records the start of a session
func (r *SessionRepository) Create(s *models.SessionRecord) error {
	_, err := r.db.Exec(
		`INSERT INTO recording_sessions (id, track_name, state, point_count, started_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.TrackName, s.State, s.PointCount, s.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.ID, err)
	}
	return nil
}

// Finish records the final state of a session
func (r *SessionRepository) Finish(id, state string, pointCount int, fileName string, stoppedAt int64) error {
	var file interface{}
	if fileName != "" {
		file = fileName
	}

	res, err := r.db.Exec(
		`UPDATE recording_sessions SET state = ?, point_count = ?, file_name = ?, stopped_at = ? WHERE id = ?`,
		state, pointCount, file, stoppedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish session %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// GetByID retrieves a session; nil when absent
func (r *SessionRepository) GetByID(id string) (*models.SessionRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, track_name, state, point_count, file_name, started_at, stopped_at
		FROM recording_sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListRecent returns the latest sessions, newest first
func (r *SessionRepository) ListRecent(limit int) ([]models.SessionRecord, error) {
	if limit < 1 {
		limit = defaultPageSize
	}

	rows, err := r.db.Query(
		`SELECT id, track_name, state, point_count, file_name, started_at, stopped_at
		FROM recording_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.SessionRecord, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*models.SessionRecord, error) {
	var (
		s         models.SessionRecord
		fileName  sql.NullString
		stoppedAt sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.TrackName, &s.State, &s.PointCount, &fileName, &s.StartedAt, &stoppedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.FileName = fileName.String
	if stoppedAt.Valid {
		v := stoppedAt.Int64
		s.StoppedAt = &v
	}
	return &s, nil
}
