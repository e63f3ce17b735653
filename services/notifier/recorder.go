package notifier

import "sync"

// Recorder keeps the most recent events so listeners can be shown notices
// such as the backup-lyrics warning after the fact.
type Recorder struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	full   bool
}

// NewRecorder creates a recorder holding up to size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = 50
	}
	return &Recorder{events: make([]*Event, size)}
}

// Attach subscribes the recorder to every event on bus.
func (r *Recorder) Attach(bus *EventBus) {
	bus.SubscribeAll(r.Record)
}

// Record stores an event, evicting the oldest when full.
func (r *Recorder) Record(event *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns stored events, newest first. A non-empty severity filters.
func (r *Recorder) Recent(severity Severity) []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.events)
	}

	out := make([]*Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.events)) % len(r.events)
		e := r.events[idx]
		if severity != "" && e.Severity != severity {
			continue
		}
		out = append(out, e)
	}
	return out
}
