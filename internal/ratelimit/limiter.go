// Package ratelimit provides a fixed-window request counter keyed by string.
// Buckets live in process memory only; resetting on restart is acceptable.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result describes the outcome of a limit check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Rule pairs a window size with the number of calls allowed inside it.
type Rule struct {
	Max    int
	Window time.Duration
}

// Allow is Check with the limit carried as a Rule.
func (l *Limiter) Allow(key string, rule Rule) Result {
	return l.Check(key, rule.Max, rule.Window)
}

type bucket struct {
	windowStart time.Time
	windowEnd   time.Time
	count       int
}

// Limiter is a process-scoped fixed-window counter. Each distinct key maps
// to one bucket. Expired buckets are garbage-collected lazily on next
// access; Sweep bounds memory for keys that are never touched again.
// Concurrency: methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time // injectable clock for tests
	denied  atomic.Uint64
}

// Config groups constructor options.
type Config struct {
	Now func() time.Time
}

// New creates a Limiter with the given config.
func New(cfg Config) *Limiter {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     nowFn,
	}
}

// Check records one hit against key's bucket and reports whether the call
// is allowed. A fresh bucket (none yet, or current time past the window
// end) starts at count=1 and is always allowed. Otherwise the count is
// incremented and the call is allowed iff the pre-increment count was
// below maxCount.
func (l *Limiter) Check(key string, maxCount int, window time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		b = &bucket{windowStart: now, windowEnd: now.Add(window), count: 1}
		l.buckets[key] = b
		return Result{
			Allowed:   true,
			Remaining: maxIntZero(maxCount - 1),
			ResetAt:   b.windowEnd,
		}
	}

	allowed := b.count < maxCount
	b.count++
	if !allowed {
		l.denied.Add(1)
	}
	return Result{
		Allowed:   allowed,
		Remaining: maxIntZero(maxCount - b.count),
		ResetAt:   b.windowEnd,
	}
}

// Len returns the current number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Denied returns the total number of rejected checks since creation.
func (l *Limiter) Denied() uint64 {
	return l.denied.Load()
}

// Sweep drops expired buckets. Safe to call at any time.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if !now.Before(b.windowEnd) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically sweeps expired buckets until the context is
// cancelled. Optional: the limiter is correct without it, the sweeper only
// bounds memory for abandoned keys.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func maxIntZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
