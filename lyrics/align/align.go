// Package align maps an independently timed translation onto a base timeline.
package align

import (
	"math"
	"strings"

	"lyrics-sync-go/lyrics/lrc"
)

// DefaultTolerance is the maximum distance in seconds between a base line and
// the translated line accepted for it.
const DefaultTolerance = 0.15

// Entry is the aligned translation for one base line. OK is false when no
// translated line could be matched.
type Entry struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

// Align returns exactly len(base) entries.
//
// Blank base lines always align to "". Untimed base lyrics fall back to
// position. Timed base lyrics use a forward-only cursor over translated: the
// cursor skips lines earlier than the tolerance window and is left in place on
// a miss, so one translated line can still match a later base line.
func Align(base, translated []lrc.Line, tolerance float64) []Entry {
	out := make([]Entry, len(base))
	if len(base) == 0 {
		return out
	}

	timed := base[0].Timed
	j := 0

	for i, b := range base {
		if strings.TrimSpace(b.Text) == "" {
			out[i] = Entry{Text: "", OK: true}
			continue
		}

		if !timed {
			if i < len(translated) {
				out[i] = Entry{Text: strings.TrimSpace(translated[i].Text), OK: true}
			}
			continue
		}

		for j < len(translated) && translated[j].Timed && b.Time-translated[j].Time > tolerance {
			j++
		}

		if j < len(translated) && translated[j].Timed && math.Abs(translated[j].Time-b.Time) <= tolerance {
			out[i] = Entry{Text: strings.TrimSpace(translated[j].Text), OK: true}
		}
	}

	return out
}

// Texts returns entry texts, substituting fallback[i] where the entry is unavailable.
func Texts(entries []Entry, fallback []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		switch {
		case e.OK:
			out[i] = e.Text
		case i < len(fallback):
			out[i] = fallback[i]
		}
	}
	return out
}

// Coverage returns the fraction of entries that are available.
func Coverage(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	ok := 0
	for _, e := range entries {
		if e.OK {
			ok++
		}
	}
	return float64(ok) / float64(len(entries))
}
