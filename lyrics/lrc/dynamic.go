package lrc

import (
	"sort"
	"strings"
)

// Char is a single character with its absolute start time in milliseconds.
type Char struct {
	Text    string `json:"c"`
	StartMs int64  `json:"t"`
}

// DynamicLine carries character-level timing for karaoke-style reveal.
// A slice of DynamicLine is index-parallel to the Lines of the LRC text
// produced by FromDynamic.
type DynamicLine struct {
	StartMs int64  `json:"startTimeMs"`
	HasTime bool   `json:"-"`
	Text    string `json:"text,omitempty"`
	Chars   []Char `json:"chars"`
}

// LineText returns the explicit text, or the concatenated characters.
func (d DynamicLine) LineText() string {
	if d.Text != "" {
		return strings.TrimSpace(d.Text)
	}
	var b strings.Builder
	for _, c := range d.Chars {
		b.WriteString(c.Text)
	}
	return strings.TrimSpace(b.String())
}

// FromDynamic converts character-timed lines to LRC text. Lines without a
// start time are dropped. The returned dynamic lines are ordered the same
// way Parse will order the returned text, so index i of one matches index i
// of the other.
func FromDynamic(lines []DynamicLine) (string, []DynamicLine) {
	kept := make([]DynamicLine, 0, len(lines))
	for _, l := range lines {
		if l.HasTime {
			kept = append(kept, l)
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].StartMs < kept[b].StartMs
	})

	records := make([]Line, len(kept))
	for i, l := range kept {
		records[i] = Line{
			Time:  float64(l.StartMs) / 1000,
			Timed: true,
			Text:  l.LineText(),
		}
	}

	return Format(records), kept
}
