package translate

import (
	"context"
	"strings"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/script"
	"lyrics-sync-go/metrics"

	log "github.com/sirupsen/logrus"
)

// Lines translates every text into lang with one bulk request. Lines that
// come back unchanged but mix scripts are then split into script runs and
// only the runs foreign to lang are re-translated, in one more request.
// A failed fallback keeps the bulk result.
func Lines(ctx context.Context, t Translator, texts []string, lang string) ([]string, error) {
	if t == nil {
		return nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out, err := t.Translate(ctx, texts, lang)
	if err != nil {
		metrics.RecordTranslation("bulk", "failed")
		return nil, err
	}
	if len(out) != len(texts) {
		metrics.RecordTranslation("bulk", "mismatch")
		return nil, ErrCountMismatch
	}
	metrics.RecordTranslation("bulk", "success")

	var passed []int
	for i, src := range texts {
		if src == "" {
			continue
		}
		if script.Normalize(src) == script.Normalize(out[i]) && script.IsMixed(src) {
			passed = append(passed, i)
		}
	}
	if len(passed) == 0 {
		return out, nil
	}

	metrics.RecordMixedLines(len(passed))
	log.Infof("%s %d lines came back untranslated, retrying by script run", logcolors.LogMixedLang, len(passed))

	rebuilt, err := mixedFallback(ctx, t, texts, passed, lang)
	if err != nil {
		log.Warnf("%s Mixed fallback failed, keeping bulk result: %v", logcolors.LogMixedLang, err)
		return out, nil
	}
	for i, text := range rebuilt {
		if text != "" {
			out[i] = text
		}
	}
	return out, nil
}

type run struct {
	text  string
	index int // into the fallback request, or -1 when kept as is
}

// mixedFallback re-translates the foreign runs of the given lines and
// splices the results back in place. The map is keyed by line index.
func mixedFallback(ctx context.Context, t Translator, texts []string, indexes []int, lang string) (map[int]string, error) {
	var request []string
	perLine := make(map[int][]run, len(indexes))

	for _, i := range indexes {
		segments := script.Split(texts[i])
		runs := make([]run, 0, len(segments))
		for _, seg := range segments {
			if script.ShouldTranslate(seg.Script, lang) {
				runs = append(runs, run{text: seg.Text, index: len(request)})
				request = append(request, seg.Text)
			} else {
				runs = append(runs, run{text: seg.Text, index: -1})
			}
		}
		perLine[i] = runs
	}

	if len(request) == 0 {
		return nil, nil
	}

	translated, err := t.Translate(ctx, request, lang)
	if err != nil {
		metrics.RecordTranslation("mixed", "failed")
		return nil, err
	}
	if len(translated) != len(request) {
		metrics.RecordTranslation("mixed", "mismatch")
		return nil, ErrCountMismatch
	}
	metrics.RecordTranslation("mixed", "success")

	out := make(map[int]string, len(perLine))
	for i, runs := range perLine {
		var b strings.Builder
		for _, r := range runs {
			if r.index < 0 {
				b.WriteString(r.text)
				continue
			}
			b.WriteString(translated[r.index])
		}
		out[i] = b.String()
	}
	return out, nil
}
