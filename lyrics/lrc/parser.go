package lrc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// LRC timestamp pattern: [mm:ss.xx] or [mm:ss.xxx]
	tagRegex = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\]`)

	lineBreakRegex = regexp.MustCompile(`\r?\n`)
)

// Line is one lyric record. Time is only meaningful when Timed is set.
type Line struct {
	Time        float64 `json:"time"`
	Timed       bool    `json:"timed"`
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
}

// Lyrics is the result of a parse. Timed is global: either every line
// carries a time or none does.
type Lyrics struct {
	Lines []Line `json:"lines"`
	Timed bool   `json:"timed"`
}

// IsTimed reports whether raw contains at least one [mm:ss.ff] or [mm:ss.fff] tag.
func IsTimed(raw string) bool {
	return tagRegex.MatchString(raw)
}

// Parse converts raw LRC (or plain) text into ordered lines.
//
// In timed mode each tag opens an interval whose text runs until the next tag
// (or the end of input), newlines collapsed to spaces and trimmed. Text before
// the first tag is discarded. The result is stable-sorted by time because
// sources may emit tags out of order.
func Parse(raw string) Lyrics {
	if raw == "" {
		return Lyrics{Lines: []Line{}}
	}

	if !IsTimed(raw) {
		parts := lineBreakRegex.Split(raw, -1)
		lines := make([]Line, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, Line{Text: strings.TrimSpace(p)})
		}
		return Lyrics{Lines: lines}
	}

	matches := tagRegex.FindAllStringSubmatchIndex(raw, -1)
	lines := make([]Line, 0, len(matches))

	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		text := lineBreakRegex.ReplaceAllString(raw[m[1]:end], " ")
		lines = append(lines, Line{
			Time:  tagSeconds(raw[m[2]:m[3]], raw[m[4]:m[5]], raw[m[6]:m[7]]),
			Timed: true,
			Text:  strings.TrimSpace(text),
		})
	}

	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].Time < lines[b].Time
	})

	return Lyrics{Lines: lines, Timed: true}
}

// tagSeconds converts the captured minute, second and fraction groups.
// Two fraction digits are hundredths, three are thousandths.
func tagSeconds(min, sec, frac string) float64 {
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)
	f, _ := strconv.Atoi(frac)

	divisor := 100.0
	if len(frac) == 3 {
		divisor = 1000.0
	}

	return float64(m*60+s) + float64(f)/divisor
}

// Texts returns the text of every line in order.
func Texts(lines []Line) []string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return texts
}
