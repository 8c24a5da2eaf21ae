package usage

import (
	"context"
	"time"
)

// Decision is the outcome of consulting a usage window.
type Decision struct {
	// Allowed reports whether the action fits under the limit.
	Allowed bool
	// Remaining is how many more actions fit in the current window.
	Remaining int
	// RetryAfter is how long until the oldest counted action leaves the
	// window. Zero when Allowed.
	RetryAfter time.Duration
}

// Store tracks accepted-action timestamps per key inside a rolling window.
// Entries older than the window are pruned lazily on every call.
//
// Check is advisory and never mutates the window. Acquire is the single
// atomic append-if-under-limit operation: implementations must guarantee
// that a key never accumulates more than limit timestamps inside the window,
// even under concurrent Acquire calls.
type Store interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
	Acquire(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}
