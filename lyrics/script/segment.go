package script

import (
	"strings"
	"unicode"
)

// Script is the writing-system class of a character.
type Script string

const (
	Latin  Script = "LATIN"
	CJK    Script = "CJK"
	Hangul Script = "HANGUL"
	Other  Script = "OTHER"
)

// Segment is a maximal run of characters sharing one Script.
type Segment struct {
	Script Script `json:"script"`
	Text   string `json:"text"`
}

// Classify returns the script class of r by fixed range membership.
func Classify(r rune) Script {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return Latin
	case r >= 0x3040 && r <= 0x30FF, // Hiragana, Katakana
		r >= 0x3400 && r <= 0x4DBF, // CJK Extension A
		r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return CJK
	case r >= 0xAC00 && r <= 0xD7AF:
		return Hangul
	default:
		return Other
	}
}

// Split breaks s into ordered runs. Concatenating the Text of every returned
// segment reproduces s exactly, invalid UTF-8 included.
func Split(s string) []Segment {
	if s == "" {
		return nil
	}

	var segments []Segment
	start := 0
	current := Script("")

	for i, r := range s {
		class := Classify(r)
		if class != current && i > start {
			segments = append(segments, Segment{Script: current, Text: s[start:i]})
			start = i
		}
		current = class
	}
	segments = append(segments, Segment{Script: current, Text: s[start:]})

	return segments
}

// ShouldTranslate reports whether a run of the given script needs to be sent
// to the translator when translating into lang. OTHER is never sent.
func ShouldTranslate(s Script, lang string) bool {
	if s == Other {
		return false
	}

	switch strings.ToLower(lang) {
	case "ja":
		return s == Latin || s == Hangul
	case "en":
		return s == CJK || s == Hangul
	case "ko":
		return s == Latin || s == CJK
	default:
		return s != Latin
	}
}

// IsMixed reports whether s contains runs of at least two of LATIN, CJK and HANGUL.
func IsMixed(s string) bool {
	var latin, cjk, hangul bool
	for _, r := range s {
		switch Classify(r) {
		case Latin:
			latin = true
		case CJK:
			cjk = true
		case Hangul:
			hangul = true
		}
	}

	count := 0
	for _, seen := range []bool{latin, cjk, hangul} {
		if seen {
			count++
		}
	}
	return count >= 2
}

// Normalize removes all whitespace and lowercases s. It is the comparison
// form used to detect passthrough translations and duplicate secondaries.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
