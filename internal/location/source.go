package location

import (
	"context"
	"errors"
	"sync"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// ErrSourceClosed is returned by Next once a source has no more fixes
var ErrSourceClosed = errors.New("location: fix source closed")

// FixSource delivers raw fixes from one provider feed
type FixSource interface {
	// Next blocks until the next fix is available, the source is exhausted
	// (ErrSourceClosed) or ctx is done.
	Next(ctx context.Context) (models.Fix, error)
}

// ChannelSource is a FixSource fed by Push, used for fixes arriving over the API
type ChannelSource struct {
	name string
	ch   chan models.Fix

	mu     sync.RWMutex
	closed bool
}

// NewChannelSource creates a source with the given buffer size
func NewChannelSource(name string, buffer int) *ChannelSource {
	return &ChannelSource{name: name, ch: make(chan models.Fix, buffer)}
}

// Name returns the feed name
func (s *ChannelSource) Name() string {
	return s.name
}

// Push queues a fix. It blocks while the buffer is full.
func (s *ChannelSource) Push(ctx context.Context, fix models.Fix) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSourceClosed
	}
	select {
	case s.ch <- fix:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the feed; queued fixes are still delivered
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Next implements FixSource
func (s *ChannelSource) Next(ctx context.Context) (models.Fix, error) {
	select {
	case fix, ok := <-s.ch:
		if !ok {
			return models.Fix{}, ErrSourceClosed
		}
		return fix, nil
	case <-ctx.Done():
		return models.Fix{}, ctx.Err()
	}
}

// SliceSource replays a fixed list of fixes
type SliceSource struct {
	mu    sync.Mutex
	fixes []models.Fix
	pos   int
}

// NewSliceSource creates a replay source
func NewSliceSource(fixes ...models.Fix) *SliceSource {
	return &SliceSource{fixes: fixes}
}

// Next implements FixSource
func (s *SliceSource) Next(ctx context.Context) (models.Fix, error) {
	if err := ctx.Err(); err != nil {
		return models.Fix{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.fixes) {
		return models.Fix{}, ErrSourceClosed
	}
	fix := s.fixes[s.pos]
	s.pos++
	return fix, nil
}

// FixesFromTrack turns a stored track into replayable GPS fixes
func FixesFromTrack(t *models.Track, accuracy float64) []models.Fix {
	fixes := make([]models.Fix, 0, len(t.Points))
	for _, p := range t.Points {
		f := models.Fix{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Accuracy:  accuracy,
			Provider:  models.ProviderGPS,
			Timestamp: p.Timestamp,
		}
		if p.Elevation != nil {
			ele := *p.Elevation
			f.Altitude = &ele
		}
		fixes = append(fixes, f)
	}
	return fixes
}
