// Package merge combines base lyrics with aligned translations into the
// primary and secondary text shown for each line.
package merge

import (
	"lyrics-sync-go/lyrics/align"
	"lyrics-sync-go/lyrics/lrc"
	"lyrics-sync-go/lyrics/script"
)

// Original is the language code meaning "the lyrics as written".
const Original = "original"

// Options selects the main and sub languages. An empty Main means Original;
// an empty Sub means no sub language.
type Options struct {
	Main string `json:"main"`
	Sub  string `json:"sub"`
}

func (o Options) main() string {
	if o.Main == "" {
		return Original
	}
	return o.Main
}

// Languages returns the translation languages that must be fetched, main
// first. At most two are returned.
func Languages(o Options) []string {
	var langs []string
	main := o.main()
	if main != Original {
		langs = append(langs, main)
	}
	if o.Sub != "" && o.Sub != Original && o.Sub != main {
		langs = append(langs, o.Sub)
	}
	return langs
}

// Line is a composed line. Text holds the primary text and Translation the
// secondary one; Source keeps the base text the line was composed from.
type Line struct {
	lrc.Line
	Source string `json:"source"`
}

// Merge composes and deduplicates in one step.
func Merge(base []lrc.Line, aligned map[string][]align.Entry, opts Options) []Line {
	return Dedup(Compose(base, aligned, opts))
}

// Compose builds the primary and secondary text of every base line.
//
// The primary is the aligned main-language text, or the base text when main
// is Original or alignment is unavailable. A distinct sub language supplies
// the secondary with the same fallback. Without a sub language, a translated
// primary is paired with the base text when the two differ.
func Compose(base []lrc.Line, aligned map[string][]align.Entry, opts Options) []Line {
	main := opts.main()
	out := make([]Line, len(base))

	for i, b := range base {
		primary := textAt(aligned, main, i, b.Text)
		secondary := ""

		switch {
		case opts.Sub != "" && opts.Sub != main:
			secondary = textAt(aligned, opts.Sub, i, b.Text)
		case opts.Sub == "" && main != Original:
			if script.Normalize(primary) != script.Normalize(b.Text) {
				secondary = b.Text
			}
		}

		out[i] = Line{
			Line: lrc.Line{
				Time:        b.Time,
				Timed:       b.Timed,
				Text:        primary,
				Translation: secondary,
			},
			Source: b.Text,
		}
	}

	return out
}

// Dedup drops a secondary that reads the same as the primary, unless the
// source line mixes scripts. Applying it twice is the same as applying it once.
func Dedup(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.Translation == "" {
			continue
		}
		if script.Normalize(l.Text) == script.Normalize(l.Translation) && !script.IsMixed(l.Source) {
			out[i].Translation = ""
		}
	}
	return out
}

func textAt(aligned map[string][]align.Entry, lang string, i int, baseText string) string {
	if lang == Original {
		return baseText
	}
	entries, ok := aligned[lang]
	if !ok || i >= len(entries) || !entries[i].OK {
		return baseText
	}
	return entries[i].Text
}
