// Package highlight computes the active line and revealed characters for a
// sampled playback position.
package highlight

import (
	"sort"

	"lyrics-sync-go/lyrics/lrc"
)

// Options are the interlude thresholds in seconds. A gap to the next line
// longer than InterludeGap, once more than InterludeElapsed has passed since
// the current line started, suppresses the active line.
type Options struct {
	InterludeGap     float64
	InterludeElapsed float64
}

// DefaultOptions returns the stock interlude thresholds.
func DefaultOptions() Options {
	return Options{InterludeGap: 10, InterludeElapsed: 6}
}

// Listener receives side effects exactly once per transition.
type Listener interface {
	Activated(index int)
	Deactivated(index int)
}

// State is the outcome of one sample.
//
// Index is the last line that has started (-1 before the first line or for
// untimed lyrics). Active equals Index unless an interlude suppresses it, in
// which case it is -1. Revealed is only set for an active line with
// character timing; characters of every other line are pending.
type State struct {
	Time      float64 `json:"time"`
	Index     int     `json:"index"`
	Active    int     `json:"active"`
	Interlude bool    `json:"interlude"`
	Revealed  []bool  `json:"revealed,omitempty"`
}

// Highlighter is not safe for concurrent use; one sampling loop owns it.
type Highlighter struct {
	times    []float64
	timed    bool
	dynamic  []lrc.DynamicLine
	opts     Options
	listener Listener

	sampled bool
	last    float64
	state   State
}

// New creates a highlighter over committed lines. dynamic may be nil; when
// set it is index-parallel to lines. listener may be nil.
func New(lines []lrc.Line, dynamic []lrc.DynamicLine, opts Options, listener Listener) *Highlighter {
	times := make([]float64, len(lines))
	timed := len(lines) > 0
	for i, l := range lines {
		times[i] = l.Time
		if !l.Timed {
			timed = false
		}
	}

	return &Highlighter{
		times:    times,
		timed:    timed,
		dynamic:  dynamic,
		opts:     opts,
		listener: listener,
		state:    State{Index: -1, Active: -1},
	}
}

// Update recomputes the state for playback time t in seconds. It returns
// false without doing any work when t equals the previous sample.
func (h *Highlighter) Update(t float64) (State, bool) {
	if h.sampled && t == h.last {
		return h.State(), false
	}
	h.sampled = true
	h.last = t

	next := State{Time: t, Index: -1, Active: -1}
	if h.timed {
		next.Index = h.indexAt(t)
		next.Interlude = h.isInterlude(next.Index, t)
		if !next.Interlude {
			next.Active = next.Index
		}
		next.Revealed = h.revealed(next.Active, t)
	}

	if next.Active != h.state.Active && h.listener != nil {
		if h.state.Active >= 0 {
			h.listener.Deactivated(h.state.Active)
		}
		if next.Active >= 0 {
			h.listener.Activated(next.Active)
		}
	}

	h.state = next
	return h.State(), true
}

// State returns a copy of the last computed state.
func (h *Highlighter) State() State {
	s := h.state
	if s.Revealed != nil {
		s.Revealed = append([]bool(nil), s.Revealed...)
	}
	return s
}

// indexAt returns the greatest index whose time is <= t, or -1.
func (h *Highlighter) indexAt(t float64) int {
	n := sort.Search(len(h.times), func(i int) bool {
		return h.times[i] > t
	})
	return n - 1
}

func (h *Highlighter) isInterlude(idx int, t float64) bool {
	if idx < 0 || idx+1 >= len(h.times) {
		return false
	}
	cur := h.times[idx]
	return h.times[idx+1]-cur > h.opts.InterludeGap && t-cur > h.opts.InterludeElapsed
}

func (h *Highlighter) revealed(active int, t float64) []bool {
	if active < 0 || active >= len(h.dynamic) || len(h.dynamic[active].Chars) == 0 {
		return nil
	}

	ms := t * 1000
	chars := h.dynamic[active].Chars
	out := make([]bool, len(chars))
	for i, c := range chars {
		out[i] = float64(c.StartMs) <= ms
	}
	return out
}
