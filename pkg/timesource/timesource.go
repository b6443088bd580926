package timesource

import (
	"sync"
	"time"
)

// TimeSource abstracts the clock for anything that measures elapsed time
// or sleeps between polls, so tests can run against simulated time.
type TimeSource interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for the given duration.
	Sleep(d time.Duration)
}

// SystemTimeSource uses the local wall clock.
type SystemTimeSource struct{}

func (SystemTimeSource) Now() time.Time        { return time.Now() }
func (SystemTimeSource) Sleep(d time.Duration) { time.Sleep(d) }

// SimTimeSource is a simulated clock. Sleep advances time instantly, so
// poll loops driven by it run deterministically and without real delays.
type SimTimeSource struct {
	mu  sync.Mutex
	now time.Time
}

// NewSimTimeSource creates a simulated clock starting at the given time.
func NewSimTimeSource(start time.Time) *SimTimeSource {
	return &SimTimeSource{now: start}
}

func (s *SimTimeSource) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *SimTimeSource) Sleep(d time.Duration) {
	s.Advance(d)
}

// Advance moves the simulated clock forward.
func (s *SimTimeSource) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}
