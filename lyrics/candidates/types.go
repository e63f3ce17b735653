// Package candidates tracks alternate lyrics submissions and server-side lock
// requests for the current song.
package candidates

import "strconv"

// Candidate is an alternate lyrics submission offered by the lyrics service.
type Candidate struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Source    string `json:"source,omitempty"`
	Path      string `json:"path,omitempty"`
	Lyrics    string `json:"lyrics"`
	HasSynced bool   `json:"has_synced,omitempty"`
}

// TargetKind is the lyrics field a lock request finalizes.
type TargetKind string

const (
	TargetSync    TargetKind = "sync"
	TargetDynamic TargetKind = "dynamic"
)

// Request is a lock action advertised by the lyrics service.
type Request struct {
	ID        string     `json:"id,omitempty"`
	Request   string     `json:"request,omitempty"`
	Label     string     `json:"label,omitempty"`
	Target    TargetKind `json:"target,omitempty"`
	Aliases   []string   `json:"aliases,omitempty"`
	HasLyrics bool       `json:"has_lyrics"`
	Locked    bool       `json:"locked"`
	Available bool       `json:"available"`
}

// Key is the identifier sent back to the service when locking.
func (r Request) Key() string {
	if r.Request != "" {
		return r.Request
	}
	return r.ID
}

func (r Request) matches(id string) bool {
	if id == "" {
		return false
	}
	if r.ID == id || r.Request == id {
		return true
	}
	for _, a := range r.Aliases {
		if a == id {
			return true
		}
	}
	return false
}

// Config carries the lock flags of the current song. The wire names are the
// service's own.
type Config struct {
	SyncLocked    bool `json:"SyncLocked"`
	DynamicLocked bool `json:"dynmicLock"`
}

// candidateID falls back to the position when the service sends no id.
func candidateID(c Candidate, idx int) string {
	if c.ID != "" {
		return c.ID
	}
	return strconv.Itoa(idx)
}

func candidateLabel(c Candidate, idx int) string {
	var label string
	switch {
	case c.Artist != "" && c.Title != "":
		label = c.Artist + " - " + c.Title
	case c.Artist != "" || c.Title != "":
		label = c.Artist + c.Title
	case c.Path != "":
		label = c.Path
	default:
		label = "Candidate " + strconv.Itoa(idx+1)
	}

	if c.Source != "" {
		label += " [" + c.Source + "]"
	}
	if c.HasSynced {
		label += " ⏱"
	}
	return label
}
