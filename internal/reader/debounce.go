package reader

import "time"

// Debouncer collapses repeated readings of the same physical tap into one
// logical scan. One instance per physical reader; callers must feed it from
// a single sequential stream.
type Debouncer struct {
	cooldown time.Duration
	lastUID  string
	lastSeen time.Time
}

// NewDebouncer creates a debouncer with the given cooldown window.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	return &Debouncer{cooldown: cooldown}
}

// Observe records a reading and reports whether it should be emitted
// downstream. A reading is suppressed only when the same UID reappears
// within the cooldown of the last emitted reading; a different card during
// another card's cooldown is always emitted.
func (d *Debouncer) Observe(uid string, at time.Time) bool {
	if uid == d.lastUID && !d.lastSeen.IsZero() && at.Sub(d.lastSeen) < d.cooldown {
		return false
	}
	d.lastUID = uid
	d.lastSeen = at
	return true
}
