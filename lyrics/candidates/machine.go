package candidates

import (
	"errors"
	"strings"
)

var (
	ErrUnknownCandidate = errors.New("candidate is not offered for the current song")
	ErrEmptyCandidate   = errors.New("candidate has no lyrics")
	ErrUnknownRequest   = errors.New("lock request is not advertised for the current song")
)

// CandidateKind is the candidate projection of the machine.
type CandidateKind string

const (
	NoCandidates       CandidateKind = "no_candidates"
	MultipleCandidates CandidateKind = "multiple_candidates"
)

// LockKind is the lock projection of the machine.
type LockKind string

const (
	NoLocks      LockKind = "none"
	LocksPending LockKind = "locks_pending"
	Locked       LockKind = "locked"
)

// CandidateState is NoCandidates, or MultipleCandidates with an optional selection.
type CandidateState struct {
	Kind     CandidateKind `json:"kind"`
	Selected string        `json:"selected,omitempty"`
}

// LockState is LocksPending with the requests still open, or Locked with the
// fields already finalized.
type LockState struct {
	Kind    LockKind     `json:"kind"`
	Pending []Request    `json:"pending,omitempty"`
	Fields  []TargetKind `json:"fields,omitempty"`
}

// Option is one entry of the candidate menu.
type Option struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// LockButton is one entry of the lock menu.
type LockButton struct {
	RequestID string `json:"requestId"`
	Label     string `json:"label"`
	Disabled  bool   `json:"disabled"`
}

// Affordances describe which controls the renderer should offer.
type Affordances struct {
	CandidateMenu     bool         `json:"candidateMenu"`
	Candidates        []Option     `json:"candidates,omitempty"`
	LockButtons       []LockButton `json:"lockButtons,omitempty"`
	AddTimingDisabled bool         `json:"addTimingDisabled"`
}

const defaultLockLabel = "Finalize lyrics"

// Machine holds the candidates, lock requests and lock flags of one song.
// A new song gets a new Machine; nothing is carried over. Machine is not safe
// for concurrent use.
type Machine struct {
	candidates []Candidate
	selected   string
	requests   []Request
	config     Config
}

// New copies its inputs so later mutation by the caller has no effect.
func New(cands []Candidate, reqs []Request, cfg Config) *Machine {
	m := &Machine{
		candidates: append([]Candidate(nil), cands...),
		requests:   make([]Request, len(reqs)),
		config:     cfg,
	}
	for i, r := range reqs {
		r.Aliases = append([]string(nil), r.Aliases...)
		m.requests[i] = r
	}
	return m
}

// CandidateState reports the candidate projection.
func (m *Machine) CandidateState() CandidateState {
	if len(m.candidates) <= 1 {
		return CandidateState{Kind: NoCandidates}
	}
	return CandidateState{Kind: MultipleCandidates, Selected: m.selected}
}

// Selected returns the selected candidate id, or "".
func (m *Machine) Selected() string {
	return m.selected
}

// Candidates returns a copy of the offered candidates.
func (m *Machine) Candidates() []Candidate {
	return append([]Candidate(nil), m.candidates...)
}

// Find looks a candidate up by id, falling back to its position.
func (m *Machine) Find(id string) (Candidate, bool) {
	for i, c := range m.candidates {
		if candidateID(c, i) == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// Select marks id as the selected candidate. Only ids in the current set with
// non-blank lyrics are accepted; on error the selection is unchanged.
func (m *Machine) Select(id string) (Candidate, error) {
	c, ok := m.Find(id)
	if !ok {
		return Candidate{}, ErrUnknownCandidate
	}
	if strings.TrimSpace(c.Lyrics) == "" {
		return Candidate{}, ErrEmptyCandidate
	}
	m.selected = id
	return c, nil
}

// MatchLoaded selects the candidate whose trimmed lyrics equal the loaded
// lyrics. It reports whether one matched.
func (m *Machine) MatchLoaded(lyrics string) (string, bool) {
	want := strings.TrimSpace(lyrics)
	if want == "" {
		return "", false
	}
	for i, c := range m.candidates {
		if strings.TrimSpace(c.Lyrics) == want {
			m.selected = candidateID(c, i)
			return m.selected, true
		}
	}
	return "", false
}

// Requests returns a copy of the advertised lock requests.
func (m *Machine) Requests() []Request {
	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		r.Aliases = append([]string(nil), r.Aliases...)
		out[i] = r
	}
	return out
}

// Config returns the current lock flags.
func (m *Machine) Config() Config {
	return m.config
}

// ResolveRequest matches id against request ids, request keys and aliases.
func (m *Machine) ResolveRequest(id string) (Request, bool) {
	for _, r := range m.requests {
		if r.matches(id) {
			return r, true
		}
	}
	return Request{}, false
}

// MarkLocked records a confirmed lock. The request becomes locked and
// unavailable and the matching config flag is set. Locks are never undone;
// only a new Machine built from a full reload can clear them.
func (m *Machine) MarkLocked(id string) (Request, error) {
	for i := range m.requests {
		r := &m.requests[i]
		if !r.matches(id) {
			continue
		}
		r.Locked = true
		r.Available = false
		switch r.Target {
		case TargetSync:
			m.config.SyncLocked = true
		case TargetDynamic:
			m.config.DynamicLocked = true
		}
		return *r, nil
	}
	return Request{}, ErrUnknownRequest
}

// LockState reports the lock projection. Only requests the service flags as
// having lyrics are advertised.
func (m *Machine) LockState() LockState {
	var pending []Request
	advertised := 0
	for _, r := range m.requests {
		if !r.HasLyrics {
			continue
		}
		advertised++
		if !r.Locked {
			pending = append(pending, r)
		}
	}

	var fields []TargetKind
	if m.config.SyncLocked {
		fields = append(fields, TargetSync)
	}
	if m.config.DynamicLocked {
		fields = append(fields, TargetDynamic)
	}

	switch {
	case len(pending) > 0:
		return LockState{Kind: LocksPending, Pending: pending, Fields: fields}
	case advertised > 0 || len(fields) > 0:
		return LockState{Kind: Locked, Fields: fields}
	default:
		return LockState{Kind: NoLocks}
	}
}

// Affordances derives the menus from the current state.
func (m *Machine) Affordances() Affordances {
	var a Affordances

	if len(m.candidates) > 1 {
		a.CandidateMenu = true
		for i, c := range m.candidates {
			id := candidateID(c, i)
			a.Candidates = append(a.Candidates, Option{
				ID:       id,
				Label:    candidateLabel(c, i),
				Selected: id == m.selected,
			})
		}
	}

	for _, r := range m.requests {
		if !r.HasLyrics {
			continue
		}
		label := r.Label
		if label == "" {
			label = defaultLockLabel
		}
		a.LockButtons = append(a.LockButtons, LockButton{
			RequestID: r.Key(),
			Label:     label,
			Disabled:  r.Locked,
		})
	}

	a.AddTimingDisabled = m.config.SyncLocked && m.config.DynamicLocked
	return a
}
