package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daveeeeeehike/HikingUtility/internal/gpx"
	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/repository"
)

// ErrNotFound is returned when a stored track does not exist
var ErrNotFound = errors.New("stored track not found")

// FileStore keeps one GPX file per track name in a directory and mirrors
// each file into the track index
type FileStore struct {
	dir     string
	repo    *repository.TrackRepository
	decoder *gpx.Decoder

	mu sync.Mutex
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, repo *repository.TrackRepository, decoder *gpx.Decoder) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tracks directory: %w", err)
	}
	if decoder == nil {
		decoder = gpx.NewDecoder(gpx.ModeHeuristic)
	}
	return &FileStore{dir: dir, repo: repo, decoder: decoder}, nil
}

// Dir returns the tracks directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Persist writes t and returns its path
func (s *FileStore) Persist(ctx context.Context, t *models.Track, source string) (string, error) {
	stored, err := s.Save(ctx, t, source)
	if err != nil {
		return "", err
	}
	return s.path(stored.FileName), nil
}

// Save writes t as GPX, replacing any file with the same sanitized name,
// and upserts its index row
func (s *FileStore) Save(ctx context.Context, t *models.Track, source string) (*models.StoredTrack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := gpx.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode track %q: %w", t.Name, err)
	}

	fileName := gpx.FileName(t.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.dir, fileName, data); err != nil {
		return nil, err
	}

	stats := t.Stats()
	stored := &models.StoredTrack{
		Name:                t.Name,
		FileName:            fileName,
		SizeBytes:           int64(len(data)),
		Source:              source,
		PointCount:          stats.PointCount,
		DistanceMeters:      stats.DistanceMeters,
		DurationMillis:      stats.DurationMillis,
		ElevationGainMeters: stats.ElevationGainMeters,
		TrackCreatedAt:      t.CreatedAt,
	}
	if err := s.repo.Upsert(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Get returns the index row of a stored track
func (s *FileStore) Get(id int64) (*models.StoredTrack, error) {
	stored, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return stored, nil
}

// List returns index rows, most recently written first
func (s *FileStore) List(filter models.StoredTrackFilter) ([]models.StoredTrack, int64, error) {
	return s.repo.List(filter)
}

// ReadRaw returns the GPX bytes of a stored track
func (s *FileStore) ReadRaw(id int64) (*models.StoredTrack, []byte, error) {
	stored, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(s.path(stored.FileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: file %s is missing", ErrNotFound, stored.FileName)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", stored.FileName, err)
	}
	return stored, data, nil
}

// Load decodes a stored track
func (s *FileStore) Load(id int64) (*models.StoredTrack, *models.Track, error) {
	stored, data, err := s.ReadRaw(id)
	if err != nil {
		return nil, nil, err
	}

	t, err := s.decoder.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", stored.FileName, err)
	}
	return stored, t, nil
}

// Delete removes the file and its index row
func (s *FileStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if stored == nil {
		return ErrNotFound
	}

	if err := os.Remove(s.path(stored.FileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", stored.FileName, err)
	}
	if _, err := s.repo.Delete(id); err != nil {
		return err
	}
	return nil
}

// Reindex adds index rows for GPX files that were placed in the directory
// by hand. Files that fail to decode are logged and skipped.
func (s *FileStore) Reindex(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read tracks directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), gpx.Extension) || strings.HasPrefix(name, ".") {
			continue
		}

		existing, err := s.repo.GetByFileName(name)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}

		data, err := os.ReadFile(s.path(name))
		if err != nil {
			log.Printf("[FileStore] Skipping %s: %v", name, err)
			continue
		}
		t, err := s.decoder.Decode(data)
		if err != nil {
			log.Printf("[FileStore] Skipping %s: %v", name, err)
			continue
		}

		stats := t.Stats()
		stored := &models.StoredTrack{
			Name:                t.Name,
			FileName:            name,
			SizeBytes:           int64(len(data)),
			Source:              models.SourceImported,
			PointCount:          stats.PointCount,
			DistanceMeters:      stats.DistanceMeters,
			DurationMillis:      stats.DurationMillis,
			ElevationGainMeters: stats.ElevationGainMeters,
			TrackCreatedAt:      t.CreatedAt,
		}
		if err := s.repo.Upsert(stored); err != nil {
			return added, err
		}
		added++
	}

	if added > 0 {
		log.Printf("[FileStore] Indexed %d existing files in %s", added, s.dir)
	}
	return added, nil
}

func (s *FileStore) path(fileName string) string {
	return filepath.Join(s.dir, fileName)
}

// writeFileAtomic writes through a temp file and rename so readers never see a partial file
func writeFileAtomic(dir, fileName string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*"+gpx.Extension)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", fileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", fileName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, fileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", fileName, err)
	}
	return nil
}
