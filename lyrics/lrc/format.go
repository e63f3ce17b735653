package lrc

import (
	"fmt"
	"math"
	"strings"
)

// FormatTimestamp renders seconds as mm:ss.cc, rounded to the nearest
// centisecond. Negative input is clamped to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	min := cs / 6000
	sec := (cs % 6000) / 100
	frac := cs % 100
	return fmt.Sprintf("%02d:%02d.%02d", min, sec, frac)
}

// Format renders lines back to LRC text, one line per record. Untimed lines
// are written as plain text.
func Format(lines []Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if l.Timed {
			b.WriteString("[" + FormatTimestamp(l.Time) + "]")
		}
		b.WriteString(l.Text)
	}
	return b.String()
}

// WithTexts returns a copy of base whose texts are replaced positionally.
// Times are kept so that the result stays aligned with base.
func WithTexts(base []Line, texts []string) []Line {
	out := make([]Line, len(base))
	for i, l := range base {
		out[i] = Line{Time: l.Time, Timed: l.Timed}
		if i < len(texts) {
			out[i].Text = texts[i]
		}
	}
	return out
}
