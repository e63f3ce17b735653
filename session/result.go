package session

import (
	"lyrics-sync-go/lyrics/lrc"
	"lyrics-sync-go/lyrics/merge"
)

// Kind tags a Result.
type Kind string

const (
	Unloaded Kind = "unloaded"
	Found    Kind = "found"
	NotFound Kind = "not_found"
)

// Result is the lyrics state of a session. Lines and the fields after it are
// only meaningful when Kind is Found.
type Result struct {
	Kind     Kind              `json:"state"`
	Lines    []merge.Line      `json:"lines,omitempty"`
	Dynamic  []lrc.DynamicLine `json:"dynamicLines,omitempty"`
	Timed    bool              `json:"timed"`
	Language string            `json:"language,omitempty"`
	RTL      bool              `json:"rtl"`
	Provider string            `json:"source,omitempty"`
	Backup   bool              `json:"backup,omitempty"`
	Cached   bool              `json:"cached,omitempty"`
	// Translations maps each requested language to where it came from:
	// "registry", "machine" or "none".
	Translations map[string]string `json:"translations,omitempty"`
}

// Text returns the primary text of every line.
func (r Result) Text() []string {
	out := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Text
	}
	return out
}

func (r Result) baseLines() []lrc.Line {
	out := make([]lrc.Line, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Line
	}
	return out
}
