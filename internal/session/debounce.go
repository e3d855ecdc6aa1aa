package session

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between connect attempts per profile.
const DefaultCooldown = 2 * time.Second

// Debouncer rejects repeated connect attempts for the same profile within
// the cooldown window. State lives in memory only.
type Debouncer struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time
}

// NewDebouncer creates a debouncer. A non-positive cooldown allows everything.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	return &Debouncer{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Attempt reports whether a connect for profileID at now is allowed, and
// records now when it is.
func (d *Debouncer) Attempt(profileID string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.last[profileID]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.last[profileID] = now
	return true
}

// Remaining returns how long after now profileID may connect again.
func (d *Debouncer) Remaining(profileID string, now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.last[profileID]
	if !ok {
		return 0
	}
	if left := d.cooldown - now.Sub(last); left > 0 {
		return left
	}
	return 0
}

// Forget drops the cooldown record of a profile.
func (d *Debouncer) Forget(profileID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, profileID)
}
