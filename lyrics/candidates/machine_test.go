package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCandidates() []Candidate {
	return []Candidate{
		{ID: "c1", Title: "Song", Artist: "Band", Source: "lrclib", Lyrics: "[00:01.00]one", HasSynced: true},
		{Title: "Song (live)", Lyrics: "plain two"},
		{ID: "c3", Lyrics: "   "},
	}
}

func sampleRequests() []Request {
	return []Request{
		{ID: "r-sync", Request: "lock_current_sync", Label: "Lock sync", Target: TargetSync, HasLyrics: true, Available: true},
		{ID: "r-dyn", Request: "lock_current_dynamic", Target: TargetDynamic, Aliases: []string{"dyn"}, HasLyrics: true, Available: true},
		{ID: "r-hidden", Target: TargetSync, HasLyrics: false},
	}
}

func TestCandidateState(t *testing.T) {
	assert.Equal(t, NoCandidates, New(nil, nil, Config{}).CandidateState().Kind)
	assert.Equal(t, NoCandidates, New(sampleCandidates()[:1], nil, Config{}).CandidateState().Kind)

	m := New(sampleCandidates(), nil, Config{})
	st := m.CandidateState()
	assert.Equal(t, MultipleCandidates, st.Kind)
	assert.Empty(t, st.Selected)
}

func TestSelect(t *testing.T) {
	m := New(sampleCandidates(), nil, Config{})

	c, err := m.Select("c1")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00]one", c.Lyrics)
	assert.Equal(t, "c1", m.CandidateState().Selected)

	// Position fallback for candidates without id.
	c, err = m.Select("1")
	require.NoError(t, err)
	assert.Equal(t, "plain two", c.Lyrics)
	assert.Equal(t, "1", m.Selected())
}

func TestSelect_RejectsUnknownAndEmpty(t *testing.T) {
	m := New(sampleCandidates(), nil, Config{})
	_, err := m.Select("c1")
	require.NoError(t, err)

	_, err = m.Select("nope")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
	assert.Equal(t, "c1", m.Selected(), "selection must stay within the current set")

	_, err = m.Select("c3")
	assert.ErrorIs(t, err, ErrEmptyCandidate)
	assert.Equal(t, "c1", m.Selected())
}

func TestMatchLoaded(t *testing.T) {
	m := New(sampleCandidates(), nil, Config{})

	id, ok := m.MatchLoaded("  plain two\n")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
	assert.Equal(t, "1", m.Selected())

	_, ok = m.MatchLoaded("something else")
	assert.False(t, ok)

	_, ok = m.MatchLoaded("   ")
	assert.False(t, ok, "blank lyrics must not match the blank candidate")
}

func TestResolveRequest(t *testing.T) {
	m := New(nil, sampleRequests(), Config{})

	for _, id := range []string{"r-dyn", "lock_current_dynamic", "dyn"} {
		r, ok := m.ResolveRequest(id)
		assert.True(t, ok, id)
		assert.Equal(t, "r-dyn", r.ID, id)
	}

	_, ok := m.ResolveRequest("")
	assert.False(t, ok)
	_, ok = m.ResolveRequest("missing")
	assert.False(t, ok)
}

func TestLockState_Transitions(t *testing.T) {
	m := New(nil, sampleRequests(), Config{})

	st := m.LockState()
	assert.Equal(t, LocksPending, st.Kind)
	assert.Len(t, st.Pending, 2)
	assert.Empty(t, st.Fields)

	_, err := m.MarkLocked("lock_current_sync")
	require.NoError(t, err)

	st = m.LockState()
	assert.Equal(t, LocksPending, st.Kind)
	assert.Len(t, st.Pending, 1)
	assert.Equal(t, []TargetKind{TargetSync}, st.Fields)

	_, err = m.MarkLocked("dyn")
	require.NoError(t, err)

	st = m.LockState()
	assert.Equal(t, Locked, st.Kind)
	assert.Equal(t, []TargetKind{TargetSync, TargetDynamic}, st.Fields)
}

func TestLockState_None(t *testing.T) {
	assert.Equal(t, NoLocks, New(nil, nil, Config{}).LockState().Kind)
	assert.Equal(t, Locked, New(nil, nil, Config{SyncLocked: true}).LockState().Kind)
}

func TestMarkLocked_Monotonic(t *testing.T) {
	m := New(nil, sampleRequests(), Config{})

	r, err := m.MarkLocked("r-sync")
	require.NoError(t, err)
	assert.True(t, r.Locked)
	assert.False(t, r.Available)
	assert.True(t, m.Config().SyncLocked)

	// Repeated refreshes and unrelated failures never clear the flag.
	for i := 0; i < 3; i++ {
		_ = m.Affordances()
		_ = m.LockState()
		_, err = m.MarkLocked("unknown")
		assert.ErrorIs(t, err, ErrUnknownRequest)
		assert.True(t, m.Config().SyncLocked)

		got, ok := m.ResolveRequest("r-sync")
		require.True(t, ok)
		assert.True(t, got.Locked)
	}
}

func TestAffordances(t *testing.T) {
	m := New(sampleCandidates(), sampleRequests(), Config{})
	_, err := m.Select("c1")
	require.NoError(t, err)

	a := m.Affordances()
	assert.True(t, a.CandidateMenu)
	require.Len(t, a.Candidates, 3)
	assert.Equal(t, Option{ID: "c1", Label: "Band - Song [lrclib] ⏱", Selected: true}, a.Candidates[0])
	assert.Equal(t, "Song (live)", a.Candidates[1].Label)
	assert.Equal(t, "Candidate 3", a.Candidates[2].Label)

	require.Len(t, a.LockButtons, 2, "requests without lyrics are not offered")
	assert.Equal(t, LockButton{RequestID: "lock_current_sync", Label: "Lock sync"}, a.LockButtons[0])
	assert.Equal(t, defaultLockLabel, a.LockButtons[1].Label)
	assert.False(t, a.AddTimingDisabled)

	_, err = m.MarkLocked("r-sync")
	require.NoError(t, err)
	a = m.Affordances()
	assert.True(t, a.LockButtons[0].Disabled)
	assert.False(t, a.AddTimingDisabled, "one locked field keeps timing submission open")

	_, err = m.MarkLocked("r-dyn")
	require.NoError(t, err)
	assert.True(t, m.Affordances().AddTimingDisabled)
}

func TestAffordances_SingleCandidateHidesMenu(t *testing.T) {
	a := New(sampleCandidates()[:1], nil, Config{}).Affordances()
	assert.False(t, a.CandidateMenu)
	assert.Empty(t, a.Candidates)
	assert.Empty(t, a.LockButtons)
}

func TestNew_CopiesInputs(t *testing.T) {
	reqs := sampleRequests()
	m := New(nil, reqs, Config{})

	reqs[0].Locked = true
	reqs[1].Aliases[0] = "changed"

	r, _ := m.ResolveRequest("r-sync")
	assert.False(t, r.Locked)
	_, ok := m.ResolveRequest("dyn")
	assert.True(t, ok)
}
