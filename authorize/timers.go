package authorize

import (
	"sync"
	"time"
)

// TimerRegistry tracks cancellable one-shot timers keyed by MAC address.
// Scheduling a MAC that already has a timer replaces it, and resolving a
// MAC through any other path must Cancel first so a stale timer can never
// fire against state that has since changed.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerRegistry creates an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any timer already armed for
// mac. The registry entry is cleared before fn runs.
//
// Stop on a timer that has already fired returns false and cannot stop
// the callback goroutine, so the callback re-checks the registry under
// the lock and runs fn only while it is still the registered timer for
// mac. A Cancel or replacement that lands in that window wins.
func (r *TimerRegistry) Schedule(mac string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[mac]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.timers[mac] != t {
			// Cancelled or replaced between firing and running.
			r.mu.Unlock()
			return
		}
		delete(r.timers, mac)
		r.mu.Unlock()
		fn()
	})
	r.timers[mac] = t
}

// Cancel stops and removes the timer for mac, if any. Reports whether a
// timer was pending.
func (r *TimerRegistry) Cancel(mac string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[mac]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, mac)
	return true
}

// Pending reports whether mac has an armed timer.
func (r *TimerRegistry) Pending(mac string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[mac]
	return ok
}

// Stop cancels every armed timer.
func (r *TimerRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for mac, t := range r.timers {
		t.Stop()
		delete(r.timers, mac)
	}
}
