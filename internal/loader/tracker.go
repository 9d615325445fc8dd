package loader

import (
	"errors"
	"sync"
)

// ErrSuperseded means a newer load for the same view started while this one
// was in flight; its result must not be shown.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Tracker remembers the newest load per key so that an older, slower load
// cannot overwrite a newer one.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]uint64)}
}

// Ticket identifies one load. Tag is a label for logs, usually the month.
type Ticket struct {
	tracker *Tracker
	key     string
	id      uint64
	Tag     string
}

// Begin registers a new load for key, superseding any load still running.
func (t *Tracker) Begin(key, tag string) *Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.latest[key] = t.seq
	return &Ticket{tracker: t, key: key, id: t.seq, Tag: tag}
}

// Current reports whether no newer load for the same key has begun.
func (tk *Ticket) Current() bool {
	if tk == nil {
		return true
	}
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	return tk.tracker.latest[tk.key] == tk.id
}

// Done forgets the key when this ticket is still the newest.
func (tk *Ticket) Done() {
	if tk == nil {
		return
	}
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	if tk.tracker.latest[tk.key] == tk.id {
		delete(tk.tracker.latest, tk.key)
	}
}

// Pending returns the number of keys with a load in flight.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}
