// Package invalidation provides a process-wide publish/subscribe registry
// keyed by cache category. It exists to decouple the scoring ledger from
// the leaderboard cache: the ledger publishes category invalidations
// without importing the leaderboard package, and vice versa.
package invalidation

import "sync"

// Category labels an independently invalidatable cache dimension.
type Category string

const (
	// CategoryTimeSaved covers time-saved leaderboard views.
	CategoryTimeSaved Category = "time_saved"
	// CategoryReferrals covers referral leaderboard views.
	CategoryReferrals Category = "referrals"
	// CategoryPopularity covers points/popularity leaderboard views.
	CategoryPopularity Category = "popularity"
)

// Bus maps categories to zero-argument subscriber callbacks.
//
// Invalidation is synchronous and at-least-once: every subscriber
// registered for the category at the time of the call runs before
// Invalidate returns. No ordering is guaranteed between subscribers of the
// same category; callbacks must be idempotent and limit their side effect
// to marking their own cache stale.
//
// Concurrency: methods are safe for concurrent use. Callbacks run without
// the bus lock held, so a callback may subscribe or invalidate without
// deadlocking.
type Bus struct {
	mu   sync.RWMutex
	subs map[Category][]func()
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Category][]func())}
}

// Subscribe registers a callback invoked whenever category is invalidated.
func (b *Bus) Subscribe(category Category, callback func()) {
	if callback == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[category] = append(b.subs[category], callback)
}

// Invalidate invokes every callback registered for the given categories.
// With no arguments it invokes every callback across all categories.
func (b *Bus) Invalidate(categories ...Category) {
	var callbacks []func()

	b.mu.RLock()
	if len(categories) == 0 {
		for _, subs := range b.subs {
			callbacks = append(callbacks, subs...)
		}
	} else {
		for _, c := range categories {
			callbacks = append(callbacks, b.subs[c]...)
		}
	}
	b.mu.RUnlock()

	for _, cb := range callbacks {
		cb()
	}
}
