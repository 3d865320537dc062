package recorder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
	"github.com/daveeeeeehike/HikingUtility/internal/spatial"
)

// Defaults
const (
	DefaultCheckpointEvery   = 100
	DefaultPaceWindow        = 5
	DefaultCheckpointTimeout = 30 * time.Second

	minPointsForCurrentPace = 3
)

// Persister stores a track and returns where it was written
type Persister interface {
	Persist(ctx context.Context, t *models.Track, source string) (string, error)
}

// PointHook is called after every accepted point, outside the recorder lock
type PointHook func(sessionID string, p models.Point, stats models.LiveStats)

// Recorder accumulates the points of one recording session at a time.
// All methods are safe for concurrent use; mutations and reads are serialized
// by one mutex. Storage I/O for checkpoints runs in the background.
type Recorder struct {
	mu           sync.Mutex
	state        models.SessionState
	sessionID    string
	track        *models.Track
	sessionStart time.Time
	stoppedAt    time.Time
	finalized    bool

	// running aggregates, updated on every append
	distance float64
	gain     float64

	store             Persister
	now               func() time.Time
	checkpointEvery   int
	paceWindow        int
	checkpointTimeout time.Duration
	onPoint           PointHook

	checkpoints sync.WaitGroup

	persistMu sync.Mutex
	persisted snapshotMark
}

type snapshotMark struct {
	sessionID string
	points    int
}

// Option configures a Recorder
type Option func(*Recorder)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithCheckpointEvery sets how many points trigger a background save; 0 disables it
func WithCheckpointEvery(n int) Option {
	return func(r *Recorder) { r.checkpointEvery = n }
}

// WithPaceWindow sets how many trailing points the current pace is computed over
func WithPaceWindow(n int) Option {
	return func(r *Recorder) {
		if n >= 2 {
			r.paceWindow = n
		}
	}
}

// WithCheckpointTimeout bounds a single background save
func WithCheckpointTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.checkpointTimeout = d }
}

// WithPointHook registers the live update callback
func WithPointHook(h PointHook) Option {
	return func(r *Recorder) { r.onPoint = h }
}

// New creates an idle recorder. store may be nil, in which case nothing is persisted.
func New(store Persister, opts ...Option) *Recorder {
	r := &Recorder{
		state:             models.SessionIdle,
		store:             store,
		now:               time.Now,
		checkpointEvery:   DefaultCheckpointEvery,
		paceWindow:        DefaultPaceWindow,
		checkpointTimeout: DefaultCheckpointTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a new session with a fresh track. An empty name is generated
// from the clock. Returns false, changing nothing, while a session is live.
func (r *Recorder) Start(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == models.SessionRecording || r.state == models.SessionPaused {
		return false
	}

	now := r.now()
	r.track = models.NewTrack(name, now)
	r.sessionID = uuid.NewString()
	r.sessionStart = now
	r.stoppedAt = time.Time{}
	r.finalized = false
	r.distance, r.gain = 0, 0
	r.state = models.SessionRecording

	log.Printf("[Recorder] Session %s started: %s", r.sessionID, r.track.Name)
	return true
}

// Pause suspends point intake. Only valid while recording.
func (r *Recorder) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != models.SessionRecording {
		return false
	}
	r.state = models.SessionPaused
	return true
}

// Resume restarts point intake. Only valid while paused.
func (r *Recorder) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != models.SessionPaused {
		return false
	}
	r.state = models.SessionRecording
	return true
}

// Stop finalizes the session and persists the track if it has points.
// It returns the finalized track (nil when no session was live) and the
// stored path. Persistence errors are returned to the caller. The final save
// is not abandoned when ctx is cancelled; it is bounded by the checkpoint timeout.
func (r *Recorder) Stop(ctx context.Context) (*models.Track, string, error) {
	r.mu.Lock()
	if r.state != models.SessionRecording && r.state != models.SessionPaused {
		r.mu.Unlock()
		return nil, "", nil
	}
	r.state = models.SessionStopped
	r.stoppedAt = r.now()
	r.finalized = true
	final := r.track.Clone()
	sessionID := r.sessionID
	r.mu.Unlock()

	log.Printf("[Recorder] Session %s stopped with %d points", sessionID, final.PointCount())

	if final.PointCount() == 0 || r.store == nil {
		return final, "", nil
	}

	saveCtx, cancel := r.finalSaveContext(ctx)
	defer cancel()

	path, err := r.persist(saveCtx, sessionID, final, models.SourceRecorded, true)
	if err != nil {
		return final, "", fmt.Errorf("failed to persist track %q: %w", final.Name, err)
	}
	return final, path, nil
}

// Feed appends a point to the live track. Points are accepted only while
// recording; the return value reports whether p was kept.
func (r *Recorder) Feed(p models.Point) bool {
	r.mu.Lock()
	if r.state != models.SessionRecording {
		r.mu.Unlock()
		return false
	}

	r.appendLocked(p)

	var checkpoint *models.Track
	if r.checkpointEvery > 0 && r.track.PointCount()%r.checkpointEvery == 0 {
		checkpoint = r.track.Clone()
	}
	sessionID := r.sessionID
	hook := r.onPoint
	var stats models.LiveStats
	if hook != nil {
		stats = r.liveStatsLocked()
	}
	r.mu.Unlock()

	if checkpoint != nil {
		r.dispatchCheckpoint(sessionID, checkpoint)
	}
	if hook != nil {
		hook(sessionID, p, stats)
	}
	return true
}

// FeedFix converts a fix and feeds it; it satisfies location.Sink
func (r *Recorder) FeedFix(f models.Fix) {
	r.Feed(f.ToPoint())
}

func (r *Recorder) appendLocked(p models.Point) {
	if n := r.track.PointCount(); n > 0 {
		last := r.track.Points[n-1]
		r.distance += spatial.HaversineDistance(last.Latitude, last.Longitude, p.Latitude, p.Longitude)
		if diff := p.ElevationOrZero() - last.ElevationOrZero(); diff > 0 {
			r.gain += diff
		}
	}
	r.track.AddPoint(p)
}

func (r *Recorder) dispatchCheckpoint(sessionID string, t *models.Track) {
	if r.store == nil {
		return
	}

	r.checkpoints.Add(1)
	go func() {
		defer r.checkpoints.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.checkpointTimeout)
		defer cancel()

		path, err := r.persist(ctx, sessionID, t, models.SourceCheckpoint, false)
		if err != nil {
			log.Printf("[Recorder] Checkpoint of %q failed: %v", t.Name, err)
			return
		}
		if path != "" {
			log.Printf("[Recorder] Checkpoint of %q (%d points) written to %s", t.Name, t.PointCount(), path)
		}
	}()
}

// persist serializes writes so an older snapshot never overwrites a newer one
func (r *Recorder) persist(ctx context.Context, sessionID string, t *models.Track, source string, final bool) (string, error) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	if !final && r.persisted.sessionID == sessionID && t.PointCount() <= r.persisted.points {
		return "", nil
	}

	path, err := r.store.Persist(ctx, t, source)
	if err != nil {
		return "", err
	}
	r.persisted = snapshotMark{sessionID: sessionID, points: t.PointCount()}
	return path, nil
}

// finalSaveContext detaches the last write of a session from the caller's
// cancellation. The session is already finalized and no later call retries it.
func (r *Recorder) finalSaveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.checkpointTimeout)
}

// Close handles abnormal termination: an unfinalized session with points is
// persisted once more, best effort, then pending checkpoints are awaited.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	var final *models.Track
	sessionID := r.sessionID
	if !r.finalized && r.track != nil && (r.state == models.SessionRecording || r.state == models.SessionPaused) {
		r.state = models.SessionStopped
		r.stoppedAt = r.now()
		r.finalized = true
		if r.track.PointCount() > 0 {
			final = r.track.Clone()
		}
	}
	r.mu.Unlock()

	if final != nil && r.store != nil {
		saveCtx, cancel := r.finalSaveContext(ctx)
		path, err := r.persist(saveCtx, sessionID, final, models.SourceRecorded, true)
		cancel()
		if err != nil {
			log.Printf("[Recorder] Final save of %q failed: %v", final.Name, err)
		} else {
			log.Printf("[Recorder] Final save of %q written to %s", final.Name, path)
		}
	}

	done := make(chan struct{})
	go func() {
		r.checkpoints.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until all dispatched checkpoints have finished
func (r *Recorder) Wait() {
	r.checkpoints.Wait()
}

// State returns the session state
func (r *Recorder) State() models.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SessionID returns the id of the current or last session
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Snapshot returns a copy of the current or last session's track, nil before the first Start
func (r *Recorder) Snapshot() *models.Track {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.track == nil {
		return nil
	}
	return r.track.Clone()
}

// PointsSince returns a copy of the points from index offset on, for incremental polling
func (r *Recorder) PointsSince(offset int) []models.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.track == nil || offset >= r.track.PointCount() {
		return []models.Point{}
	}
	if offset < 0 {
		offset = 0
	}
	out := make([]models.Point, r.track.PointCount()-offset)
	copy(out, r.track.Points[offset:])
	return out
}

// PointCount returns the number of points of the current session
func (r *Recorder) PointCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.track == nil {
		return 0
	}
	return r.track.PointCount()
}

// CalculateTotalDistance returns the session distance in meters
func (r *Recorder) CalculateTotalDistance() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distance
}

// CalculateElevationGain returns the session elevation gain in meters
func (r *Recorder) CalculateElevationGain() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gain
}

// Elapsed returns the wall time since the session started, frozen once stopped
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsedLocked()
}

// CalculateAverageSpeed returns miles per hour over the wall time since the
// session started (not since the first point)
func (r *Recorder) CalculateAverageSpeed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.SpeedMph(r.distance, r.elapsedLocked())
}

// CalculatePace returns minutes per mile over the wall time since the session started
func (r *Recorder) CalculatePace() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.PaceMinPerMile(r.distance, r.elapsedLocked())
}

// CalculateCurrentPace returns minutes per mile over the trailing window of points.
// It needs at least 3 points and uses the time between the window's first and last point.
func (r *Recorder) CalculateCurrentPace() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPaceLocked()
}

// LiveStats returns all aggregates in one consistent read
func (r *Recorder) LiveStats() models.LiveStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveStatsLocked()
}

// Status returns the state, session metadata and aggregates
func (r *Recorder) Status() models.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := models.RecordingStatus{
		SessionID: r.sessionID,
		State:     r.state,
		Stats:     r.liveStatsLocked(),
	}
	if r.track != nil {
		status.TrackName = r.track.Name
		status.SessionStart = r.sessionStart.UnixMilli()
		if n := r.track.PointCount(); n > 0 {
			last := r.track.Points[n-1]
			status.LastPoint = &last
		}
	}
	return status
}

func (r *Recorder) elapsedLocked() time.Duration {
	switch r.state {
	case models.SessionRecording, models.SessionPaused:
		return r.now().Sub(r.sessionStart)
	case models.SessionStopped:
		return r.stoppedAt.Sub(r.sessionStart)
	default:
		return 0
	}
}

func (r *Recorder) currentPaceLocked() float64 {
	if r.track == nil {
		return 0
	}
	size := r.track.PointCount()
	if size < minPointsForCurrentPace {
		return 0
	}

	n := r.paceWindow
	if size < n {
		n = size
	}
	window := r.track.Points[size-n:]

	timeDiff := window[len(window)-1].Timestamp - window[0].Timestamp
	if timeDiff <= 0 {
		return 0
	}
	return models.PaceMinPerMile(models.PathDistance(window), time.Duration(timeDiff)*time.Millisecond)
}

func (r *Recorder) liveStatsLocked() models.LiveStats {
	elapsed := r.elapsedLocked()
	stats := models.LiveStats{
		DistanceMeters:        r.distance,
		DistanceMiles:         spatial.MetersToMiles(r.distance),
		ElapsedMillis:         elapsed.Milliseconds(),
		ElevationGainMeters:   r.gain,
		AverageSpeedMph:       models.SpeedMph(r.distance, elapsed),
		PaceMinPerMile:        models.PaceMinPerMile(r.distance, elapsed),
		CurrentPaceMinPerMile: r.currentPaceLocked(),
	}
	if r.track != nil {
		stats.PointCount = r.track.PointCount()
	}
	return stats
}
