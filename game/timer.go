package game

import "time"

// phaseTimer is a deadline-based countdown. It stores an absolute end time
// rather than decrementing a counter, so missed ticks never cause drift. The
// room actor drives it from the lobby's shared ticker.
type phaseTimer struct {
	deadline time.Time
	armed    bool
	onExpire func()
}

// Arm stops any live timer and starts a new one. At most one timer is ever
// live per room.
func (t *phaseTimer) Arm(now time.Time, d time.Duration, onExpire func()) {
	t.Stop()
	t.deadline = now.Add(d)
	t.armed = true
	t.onExpire = onExpire
}

// Stop is idempotent.
func (t *phaseTimer) Stop() {
	t.armed = false
	t.onExpire = nil
}

// Remaining reports whole seconds left, rounded up, never negative.
func (t *phaseTimer) Remaining(now time.Time) int {
	if !t.armed {
		return 0
	}
	left := t.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	secs := int((left + time.Second - 1) / time.Second)
	return secs
}

// Tick advances the timer. When the deadline has passed it stops itself
// first, then invokes the expiry callback exactly once. fired reports whether
// the callback ran on this tick.
func (t *phaseTimer) Tick(now time.Time) (remaining int, fired bool) {
	if !t.armed {
		return 0, false
	}
	remaining = t.Remaining(now)
	if remaining > 0 {
		return remaining, false
	}
	cb := t.onExpire
	t.Stop()
	if cb != nil {
		cb()
	}
	return 0, true
}
