package location

import (
	"sync"

	"github.com/daveeeeeehike/HikingUtility/internal/models"
)

// SignificantAccuracyLoss is the accuracy degradation (meters) beyond which a
// GPS fix no longer replaces a more precise best fix.
const SignificantAccuracyLoss = 200

// IsBetterFix decides whether candidate should replace the current best fix.
// The accuracy delta is truncated to whole meters before comparison.
func IsBetterFix(candidate, best *models.Fix) bool {
	if best == nil {
		return true
	}

	accuracyDelta := int(candidate.Accuracy - best.Accuracy)
	isLessAccurate := accuracyDelta > 0
	isMoreAccurate := accuracyDelta < 0
	isSignificantlyLessAccurate := accuracyDelta > SignificantAccuracyLoss

	isFromSameProvider := candidate.Provider == best.Provider

	if isMoreAccurate {
		return true
	}
	if !isLessAccurate && isFromSameProvider {
		return true
	}
	return !isSignificantlyLessAccurate && candidate.Provider == models.ProviderGPS
}

// Selector keeps the single running best fix shared by every feed.
// It is safe for concurrent use.
type Selector struct {
	mu       sync.Mutex
	best     *models.Fix
	accepted int64
	rejected int64
}

// NewSelector creates a selector with no best fix
func NewSelector() *Selector {
	return &Selector{}
}

// Offer runs the candidate through IsBetterFix and, when accepted, makes it the new best
func (s *Selector) Offer(candidate models.Fix) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !IsBetterFix(&candidate, s.best) {
		s.rejected++
		return false
	}
	s.best = &candidate
	s.accepted++
	return true
}

// Best returns the current best fix
func (s *Selector) Best() (models.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.best == nil {
		return models.Fix{}, false
	}
	return *s.best, true
}

// Counts returns how many fixes were accepted and rejected so far
func (s *Selector) Counts() (accepted, rejected int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted, s.rejected
}

// Reset forgets the best fix, e.g. when a new recording session starts
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.best = nil
	s.accepted, s.rejected = 0, 0
}
