package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable clock for deterministic window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	l := New(Config{Now: clock.Now})
	rule := Rule{Max: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		res := l.Allow("job_create:user-1", rule)
		require.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res := l.Allow("job_create:user-1", rule)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
	assert.Equal(t, uint64(1), l.Denied())
}

func TestLimiter_WindowReset(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	l := New(Config{Now: clock.Now})
	rule := Rule{Max: 1, Window: time.Minute}

	require.True(t, l.Allow("k", rule).Allowed)
	require.False(t, l.Allow("k", rule).Allowed)

	clock.Advance(time.Minute)

	res := l.Allow("k", rule)
	assert.True(t, res.Allowed, "fresh window should allow again")
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	l := New(Config{Now: clock.Now})
	rule := Rule{Max: 1, Window: time.Minute}

	require.True(t, l.Allow("job_create:user-1", rule).Allowed)
	require.False(t, l.Allow("job_create:user-1", rule).Allowed)

	assert.True(t, l.Allow("job_create:user-2", rule).Allowed)
	assert.True(t, l.Allow("mutate:user-1", rule).Allowed)
}

func TestLimiter_Sweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	l := New(Config{Now: clock.Now})

	l.Allow("a", Rule{Max: 5, Window: time.Minute})
	l.Allow("b", Rule{Max: 5, Window: 2 * time.Minute})
	require.Equal(t, 2, l.Len())

	clock.Advance(90 * time.Second)

	removed := l.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_ConcurrentChecksNeverExceedMax(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	rule := Rule{Max: 50, Window: time.Hour}

	const workers = 10
	const perWorker = 20

	var wg sync.WaitGroup
	allowed := make([]int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if l.Allow("shared", rule).Allowed {
					allowed[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range allowed {
		total += n
	}
	assert.Equal(t, 50, total, "exactly Max calls may pass in one window")
	assert.Equal(t, uint64(workers*perWorker-50), l.Denied())
}

func TestLimiter_ZeroMaxDeniesAfterFirst(t *testing.T) {
	t.Parallel()

	// A fresh bucket always admits its first hit; Max guards subsequent ones.
	l := New(Config{})
	res := l.Allow("k", Rule{Max: 1, Window: time.Minute})
	require.True(t, res.Allowed)

	for i := 0; i < 3; i++ {
		res = l.Allow("k", Rule{Max: 1, Window: time.Minute})
		require.False(t, res.Allowed, fmt.Sprintf("call %d", i+2))
	}
}
