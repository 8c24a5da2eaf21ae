package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore() (*Store, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := New()
	s.SetClock(clk.Now)
	return s, clk
}

func TestCommentPolicyScenario(t *testing.T) {
	// limit=1/24h: first comment admitted, a second from the same origin an
	// hour later is denied with ~23h retry, a different origin is admitted.
	s, clk := newStore()
	ctx := context.Background()

	dec, err := s.Acquire(ctx, "comment:id:aaa:1.2.3.4", 1, day)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	clk.Advance(time.Hour)

	dec, err = s.Check(ctx, "comment:id:aaa:1.2.3.4", 1, day)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.InDelta(t, float64(23*time.Hour), float64(dec.RetryAfter), float64(time.Second))

	dec, err = s.Acquire(ctx, "comment:id:aaa:5.6.7.8", 1, day)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestUploadPolicyScenario(t *testing.T) {
	// limit=5/24h: five uploads fill the quota, the sixth is denied, and one
	// second past the window the oldest entry expires and admits again.
	s, clk := newStore()
	ctx := context.Background()
	key := "upload:1.2.3.4"

	for i := 0; i < 5; i++ {
		dec, err := s.Acquire(ctx, key, 5, day)
		require.NoError(t, err)
		require.True(t, dec.Allowed, "upload %d", i+1)
		assert.Equal(t, 4-i, dec.Remaining)
	}

	dec, err := s.Acquire(ctx, key, 5, day)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, day, dec.RetryAfter)

	clk.Advance(day + time.Second)

	dec, err = s.Acquire(ctx, key, 5, day)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Remaining, "all five stale entries pruned, one slot just used")
}

func TestRetryAfterDecreasesToZero(t *testing.T) {
	s, clk := newStore()
	ctx := context.Background()
	key := "upload:9.9.9.9"

	_, err := s.Acquire(ctx, key, 1, day)
	require.NoError(t, err)

	var last = day + time.Second
	for _, advance := range []time.Duration{time.Hour, 5 * time.Hour, 10 * time.Hour} {
		clk.Advance(advance)
		dec, err := s.Check(ctx, key, 1, day)
		require.NoError(t, err)
		require.False(t, dec.Allowed)
		assert.Less(t, dec.RetryAfter, last)
		last = dec.RetryAfter
	}

	// Exactly at expiry the entry has aged out and the key admits again.
	clk.Advance(8 * time.Hour)
	dec, err := s.Check(ctx, key, 1, day)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, time.Duration(0), dec.RetryAfter)
}

func TestCheckDoesNotConsumeQuota(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := s.Check(ctx, "comment:id:bbb:1.1.1.1", 1, day)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.Equal(t, 1, dec.Remaining)
	}
}

func TestConcurrentAcquireNeverExceedsLimit(t *testing.T) {
	s, _ := newStore()
	s.SetClock(time.Now)
	ctx := context.Background()
	const limit = 5

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := s.Acquire(ctx, "upload:race", limit, day)
			require.NoError(t, err)
			if dec.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, admitted)
}
