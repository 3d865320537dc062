package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"regexp"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/daveeeeeehike/HikingUtility/internal/export"
	"github.com/daveeeeeehike/HikingUtility/internal/gpx"
	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/storage"
)

// DefaultOSMTraceURL downloads the GPX data of a public OpenStreetMap trace
const DefaultOSMTraceURL = "https://www.openstreetmap.org/traces/%s/data"

const (
	defaultMaxImportBytes = 32 << 20
	defaultOSMTimeout     = 30 * time.Second
)

var traceIDPattern = regexp.MustCompile(`^[0-9]+$`)

// TrackServiceOptions tunes imports and previews
type TrackServiceOptions struct {
	OSMTraceURL      string // %s is replaced by the trace id
	OSMTimeout       time.Duration
	MaxImportBytes   int64
	MaxPreviewPoints int
	HTTPClient       *http.Client
}

// TrackService handles the library of stored tracks
type TrackService struct {
	store   *storage.FileStore
	decoder *gpx.Decoder
	opts    TrackServiceOptions
}

// NewTrackService creates a new track service
func NewTrackService(store *storage.FileStore, decoder *gpx.Decoder, opts TrackServiceOptions) *TrackService {
	if decoder == nil {
		decoder = gpx.NewDecoder(gpx.ModeHeuristic)
	}
	if opts.OSMTraceURL == "" {
		opts.OSMTraceURL = DefaultOSMTraceURL
	}
	if opts.OSMTimeout <= 0 {
		opts.OSMTimeout = defaultOSMTimeout
	}
	if opts.MaxImportBytes <= 0 {
		opts.MaxImportBytes = defaultMaxImportBytes
	}
	if opts.MaxPreviewPoints <= 0 {
		opts.MaxPreviewPoints = export.DefaultMaxPreviewPoints
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &TrackService{store: store, decoder: decoder, opts: opts}
}

// List returns stored tracks, most recently written first
func (s *TrackService) List(filter models.StoredTrackFilter) (*models.StoredTracksResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	if filter.PageSize > 500 {
		filter.PageSize = 500
	}

	tracks, total, err := s.store.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	return &models.StoredTracksResponse{
		Data:       tracks,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// Get returns the index entry of a stored track
func (s *TrackService) Get(id int64) (*models.StoredTrack, error) {
	stored, err := s.store.Get(id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return stored, nil
}

// Load decodes a stored track
func (s *TrackService) Load(id int64) (*models.StoredTrack, *models.Track, error) {
	stored, t, err := s.store.Load(id)
	if err != nil {
		return nil, nil, mapStoreError(err)
	}
	return stored, t, nil
}

// Stats computes the statistics of a stored track from its points
func (s *TrackService) Stats(id int64) (*models.TrackStats, error) {
	_, t, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	stats := t.Stats()
	return &stats, nil
}

// ExportGPX returns the stored GPX document
func (s *TrackService) ExportGPX(id int64) (*models.StoredTrack, []byte, error) {
	stored, data, err := s.store.ReadRaw(id)
	if err != nil {
		return nil, nil, mapStoreError(err)
	}
	return stored, data, nil
}

// GeoJSON returns a map preview of a stored track
func (s *TrackService) GeoJSON(id int64) (*geojson.FeatureCollection, error) {
	_, t, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return export.GeoJSON(t, s.opts.MaxPreviewPoints), nil
}

// Delete removes a stored track
func (s *TrackService) Delete(id int64) error {
	if err := s.store.Delete(id); err != nil {
		return mapStoreError(err)
	}
	log.Printf("[TrackService] Deleted track %d", id)
	return nil
}

// Import decodes a GPX document and stores it. A non-empty name replaces the
// document's own name. Tracks without points are rejected.
func (s *TrackService) Import(ctx context.Context, data []byte, name, source string) (*models.ImportResult, error) {
	if int64(len(data)) > s.opts.MaxImportBytes {
		return nil, ErrImportTooLarge
	}

	t, err := s.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode GPX: %w", err)
	}
	if name != "" {
		t.Name = name
	}
	return s.saveImported(ctx, t, source)
}

func (s *TrackService) saveImported(ctx context.Context, t *models.Track, source string) (*models.ImportResult, error) {
	if t.PointCount() == 0 {
		return nil, ErrEmptyTrack
	}
	if source == "" {
		source = models.SourceImported
	}

	estimated := 0
	for _, p := range t.Points {
		if p.TimeEstimated {
			estimated++
		}
	}

	stored, err := s.store.Save(ctx, t, source)
	if err != nil {
		return nil, fmt.Errorf("failed to store track: %w", err)
	}

	log.Printf("[TrackService] Imported %q (%d points, %d estimated times) as %s",
		t.Name, t.PointCount(), estimated, stored.FileName)

	return &models.ImportResult{
		Track:          *stored,
		Stats:          t.Stats(),
		EstimatedTimes: estimated,
	}, nil
}

// ImportReader reads at most the import limit from r and imports it
func (s *TrackService) ImportReader(ctx context.Context, r io.Reader, name, source string) (*models.ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read GPX: %w", err)
	}
	return s.Import(ctx, data, name, source)
}

// ImportOSMTrace downloads a public OpenStreetMap GPS trace and imports it
func (s *TrackService) ImportOSMTrace(ctx context.Context, traceID string) (*models.ImportResult, error) {
	if !traceIDPattern.MatchString(traceID) {
		return nil, ErrInvalidTraceID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OSMTimeout)
	defer cancel()

	url := fmt.Sprintf(s.opts.OSMTraceURL, traceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/gpx+xml, application/xml;q=0.9, */*;q=0.1")

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: trace %s", ErrTrackNotFound, traceID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxImportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if int64(len(data)) > s.opts.MaxImportBytes {
		return nil, ErrImportTooLarge
	}

	t, err := s.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trace %s: %w", traceID, err)
	}
	if t.Name == "" || t.Name == gpx.DefaultImportName {
		t.Name = "osm_" + traceID
	}
	return s.saveImported(ctx, t, models.SourceOSM)
}

func mapStoreError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrTrackNotFound, err)
	}
	return err
}
