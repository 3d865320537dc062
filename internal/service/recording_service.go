package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/daveeeeeehike/HikingUtility/internal/location"
	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/recorder"
	"github.com/daveeeeeehike/HikingUtility/internal/repository"
	"github.com/daveeeeeehike/HikingUtility/internal/stream"
)

const (
	fixBuffer      = 256
	replayAccuracy = 5.0
)

// StopResult describes a finished session
type StopResult struct {
	Status   models.RecordingStatus `json:"status"`
	FileName string                 `json:"fileName,omitempty"`
	Stats    models.TrackStats      `json:"stats"`
}

// RecordingService drives the live recording session. Fixes from the gps and
// network feeds are fused through one selector into the recorder; every
// accepted point and state change is pushed to the stream hub.
type RecordingService struct {
	recorder *recorder.Recorder
	selector *location.Selector
	hub      *stream.Hub
	sessions *repository.SessionRepository
	now      func() time.Time

	mu       sync.Mutex
	gps      *location.ChannelSource
	network  *location.ChannelSource
	fuseDone chan struct{}
}

// NewRecordingService creates the service. hub and sessions may be nil.
func NewRecordingService(store recorder.Persister, hub *stream.Hub, sessions *repository.SessionRepository, opts ...recorder.Option) *RecordingService {
	s := &RecordingService{
		selector: location.NewSelector(),
		hub:      hub,
		sessions: sessions,
		now:      time.Now,
	}
	opts = append(opts, recorder.WithPointHook(s.publishPoint))
	s.recorder = recorder.New(store, opts...)
	return s
}

// Recorder exposes the underlying recorder
func (s *RecordingService) Recorder() *recorder.Recorder {
	return s.recorder
}

// Start opens a new session and the fix pump
func (s *RecordingService) Start(name string) (*models.RecordingStatus, error) {
	s.mu.Lock()
	if !s.recorder.Start(name) {
		s.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	s.selector.Reset()
	s.startPumpLocked()

	status := s.recorder.Status()
	if s.sessions != nil {
		rec := &models.SessionRecord{
			ID:        status.SessionID,
			TrackName: status.TrackName,
			State:     status.State.String(),
			StartedAt: status.SessionStart,
		}
		if err := s.sessions.Create(rec); err != nil {
			log.Printf("[RecordingService] %v", err)
		}
	}
	s.mu.Unlock()

	s.publishState(status, "")
	return &status, nil
}

// Pause suspends point intake
func (s *RecordingService) Pause() (*models.RecordingStatus, error) {
	s.mu.Lock()
	if !s.recorder.Pause() {
		err := s.transitionError()
		s.mu.Unlock()
		return nil, err
	}
	status := s.recorder.Status()
	s.mu.Unlock()

	s.publishState(status, "")
	return &status, nil
}

// Resume restarts point intake
func (s *RecordingService) Resume() (*models.RecordingStatus, error) {
	s.mu.Lock()
	if !s.recorder.Resume() {
		err := s.transitionError()
		s.mu.Unlock()
		return nil, err
	}
	status := s.recorder.Status()
	s.mu.Unlock()

	s.publishState(status, "")
	return &status, nil
}

// Stop drains queued fixes, finalizes the session and stores the track
func (s *RecordingService) Stop(ctx context.Context) (*StopResult, error) {
	s.mu.Lock()
	state := s.recorder.State()
	if state != models.SessionRecording && state != models.SessionPaused {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}

	s.stopPumpLocked()

	final, path, err := s.recorder.Stop(ctx)
	status := s.recorder.Status()
	result := &StopResult{Status: status}
	if final != nil {
		result.Stats = final.Stats()
	}
	if path != "" {
		result.FileName = filepath.Base(path)
	}

	s.finishSession(status, result.FileName)
	s.mu.Unlock()

	s.publishState(status, result.FileName)

	if err != nil {
		return result, err
	}
	log.Printf("[RecordingService] Session %s finished: %d points, %.0f m",
		status.SessionID, result.Stats.PointCount, result.Stats.DistanceMeters)
	return result, nil
}

// IngestFix queues a raw fix on the feed matching its provider. Acceptance is
// decided asynchronously by the selector.
func (s *RecordingService) IngestFix(ctx context.Context, fix models.Fix) error {
	s.mu.Lock()
	state := s.recorder.State()
	src := s.network
	if fix.Provider == models.ProviderGPS {
		src = s.gps
	}
	s.mu.Unlock()

	if src == nil || (state != models.SessionRecording && state != models.SessionPaused) {
		return ErrNotRecording
	}

	if err := src.Push(ctx, fix); err != nil {
		if errors.Is(err, location.ErrSourceClosed) {
			return ErrNotRecording
		}
		return err
	}
	return nil
}

// IngestFixes queues a batch in order, stopping at the first failure
func (s *RecordingService) IngestFixes(ctx context.Context, fixes []models.Fix) (int, error) {
	for i, fix := range fixes {
		if err := s.IngestFix(ctx, fix); err != nil {
			return i, err
		}
	}
	return len(fixes), nil
}

// Replay feeds the points of a stored track into the live session as gps
// fixes, blocking until all have been offered
func (s *RecordingService) Replay(ctx context.Context, t *models.Track) (int, error) {
	if s.recorder.State() != models.SessionRecording {
		return 0, ErrNotRecording
	}

	before := s.recorder.PointCount()
	src := location.NewSliceSource(location.FixesFromTrack(t, replayAccuracy)...)
	if err := location.Fuse(ctx, s.selector, s.recorder.FeedFix, src); err != nil {
		return s.recorder.PointCount() - before, fmt.Errorf("replay interrupted: %w", err)
	}
	return s.recorder.PointCount() - before, nil
}

// Status returns the live session view
func (s *RecordingService) Status() models.RecordingStatus {
	return s.recorder.Status()
}

// PointsSince returns the session points from offset on
func (s *RecordingService) PointsSince(offset int) []models.Point {
	return s.recorder.PointsSince(offset)
}

// Sessions returns the latest logged sessions
func (s *RecordingService) Sessions(limit int) ([]models.SessionRecord, error) {
	if s.sessions == nil {
		return []models.SessionRecord{}, nil
	}
	return s.sessions.ListRecent(limit)
}

// Close is called on shutdown: the pump is drained and an unfinished
// session is saved once more
func (s *RecordingService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopPumpLocked()

	state := s.recorder.State()
	live := state == models.SessionRecording || state == models.SessionPaused

	err := s.recorder.Close(ctx)
	if live {
		status := s.recorder.Status()
		s.finishSession(status, "")
		log.Printf("[RecordingService] Session %s closed during shutdown", status.SessionID)
	}
	return err
}

func (s *RecordingService) transitionError() error {
	switch s.recorder.State() {
	case models.SessionIdle, models.SessionStopped:
		return ErrNotRecording
	default:
		return ErrInvalidTransition
	}
}

func (s *RecordingService) startPumpLocked() {
	gps := location.NewChannelSource(models.ProviderGPS, fixBuffer)
	network := location.NewChannelSource(models.ProviderNetwork, fixBuffer)
	done := make(chan struct{})

	s.gps, s.network, s.fuseDone = gps, network, done

	go func() {
		defer close(done)
		if err := location.Fuse(context.Background(), s.selector, s.recorder.FeedFix, gps, network); err != nil {
			log.Printf("[RecordingService] Fix pump stopped: %v", err)
		}
	}()
}

// stopPumpLocked closes the feeds and waits until every queued fix was offered
func (s *RecordingService) stopPumpLocked() {
	if s.fuseDone == nil {
		return
	}
	s.gps.Close()
	s.network.Close()
	<-s.fuseDone
	s.gps, s.network, s.fuseDone = nil, nil, nil
}

func (s *RecordingService) finishSession(status models.RecordingStatus, fileName string) {
	if s.sessions == nil || status.SessionID == "" {
		return
	}
	err := s.sessions.Finish(status.SessionID, status.State.String(), status.Stats.PointCount, fileName, s.now().UnixMilli())
	if err != nil {
		log.Printf("[RecordingService] %v", err)
	}
}

func (s *RecordingService) publishPoint(sessionID string, p models.Point, stats models.LiveStats) {
	if s.hub == nil {
		return
	}
	event := models.StreamEvent{
		Type:      models.EventPoint,
		SessionID: sessionID,
		State:     models.SessionRecording,
		Point:     &p,
		Stats:     &stats,
	}
	if err := s.hub.BroadcastJSON(event); err != nil {
		log.Printf("[RecordingService] Failed to publish point: %v", err)
	}
}

func (s *RecordingService) publishState(status models.RecordingStatus, fileName string) {
	if s.hub == nil {
		return
	}
	stats := status.Stats
	event := models.StreamEvent{
		Type:      models.EventState,
		SessionID: status.SessionID,
		State:     status.State,
		Stats:     &stats,
		FileName:  fileName,
	}
	if err := s.hub.BroadcastJSON(event); err != nil {
		log.Printf("[RecordingService] Failed to publish state: %v", err)
	}
}
