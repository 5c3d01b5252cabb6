package schedule

import (
	"sync"
	"time"
)

// Kind distinguishes the two deferred actions a session can carry.
type Kind string

const (
	KindStart Kind = "start"
	KindStop  Kind = "stop"
)

type slot struct {
	at    time.Time
	timer *time.Timer
}

// Timers owns at most one pending start and one pending stop action per
// charger identity. Arming a kind replaces any live timer of that kind, so
// overlapping StatusNotification triggers can never stack duplicate remote
// commands. Timers are process-local; a restart loses them and they are only
// re-armed by a fresh notification.
type Timers struct {
	mu    sync.Mutex
	slots map[string]map[Kind]*slot
}

// NewTimers returns an empty timer set.
func NewTimers() *Timers {
	return &Timers{slots: make(map[string]map[Kind]*slot)}
}

// Arm schedules fn to run at the given instant, cancelling any previously
// armed timer of the same kind for the identity. The slot is cleared before fn
// runs, so a re-entrant status change during the action sees no stale entry.
func (t *Timers) Arm(identity string, kind Kind, at time.Time, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds, ok := t.slots[identity]
	if !ok {
		kinds = make(map[Kind]*slot)
		t.slots[identity] = kinds
	}

	if existing, ok := kinds[kind]; ok {
		existing.timer.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	entry := &slot{at: at}
	entry.timer = time.AfterFunc(delay, func() {
		t.clear(identity, kind, entry)
		fn()
	})
	kinds[kind] = entry
}

// clear removes the slot only if it still holds the firing entry; a replacing
// Arm may have installed a newer one in the meantime.
func (t *Timers) clear(identity string, kind Kind, entry *slot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.slots[identity][kind]; ok && current == entry {
		delete(t.slots[identity], kind)
	}
}

// Cancel stops and removes the pending timer of the given kind, reporting
// whether one existed.
func (t *Timers) Cancel(identity string, kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.slots[identity][kind]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.slots[identity], kind)
	return true
}

// CancelAll drops every pending timer for the identity.
func (t *Timers) CancelAll(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, entry := range t.slots[identity] {
		entry.timer.Stop()
		delete(t.slots[identity], kind)
	}
}

// Deadline reports the instant the pending timer of the given kind fires.
func (t *Timers) Deadline(identity string, kind Kind) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.slots[identity][kind]
	if !ok {
		return time.Time{}, false
	}
	return entry.at, true
}
