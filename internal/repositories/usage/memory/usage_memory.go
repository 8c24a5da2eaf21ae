// Package memory holds usage windows in process memory. Suitable for a
// single-instance deployment and for tests; the mutex makes Acquire's
// prune-count-append sequence atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/clipshare/be/pkg/repositories/usage"
)

type Store struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	// now is swapped out by tests to drive window math.
	now func() time.Time
}

var _ usage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Check(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decide(key, limit, window, false), nil
}

func (s *Store) Acquire(ctx context.Context, key string, limit int, window time.Duration) (usage.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decide(key, limit, window, true), nil
}

func (s *Store) decide(key string, limit int, window time.Duration, acquire bool) usage.Decision {
	now := s.now()
	kept := s.prune(key, now, window)

	if len(kept) >= limit {
		retry := kept[0].Add(window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return usage.Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
	}
	if acquire {
		s.windows[key] = append(kept, now)
		return usage.Decision{Allowed: true, Remaining: limit - len(kept) - 1}
	}
	return usage.Decision{Allowed: true, Remaining: limit - len(kept)}
}

// prune drops timestamps that fell out of the window. Timestamps are only
// ever appended with a monotonically growing clock, so the slice stays
// ordered and the first kept entry is the earliest.
func (s *Store) prune(key string, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := s.windows[key][:0]
	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(s.windows, key)
		return nil
	}
	s.windows[key] = kept
	return kept
}
