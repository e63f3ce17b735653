package script

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// minDetectConfidence is the lowest whatlanggo confidence accepted as a
// language for a whole song.
const minDetectConfidence = 0.5

// whatlanggo has no ISO-639-1 code for Persian.
var isoOverrides = map[whatlanggo.Lang]string{
	whatlanggo.Pes: "fa",
}

var rtlLanguages = map[string]bool{
	"ar": true, // Arabic
	"fa": true, // Persian (Farsi)
	"he": true, // Hebrew
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
	"yi": true, // Yiddish
	"ku": true, // Kurdish (some dialects)
	"dv": true, // Divehi (Maldivian)
}

// DetectLanguage guesses the ISO-639-1 code of the lyrics as a whole.
// An unreliable or unmapped guess yields "".
func DetectLanguage(lines []string) string {
	text := strings.TrimSpace(strings.Join(lines, " "))
	if text == "" {
		return ""
	}

	info := whatlanggo.Detect(text)
	if info.Confidence < minDetectConfidence {
		return ""
	}
	if code, ok := isoOverrides[info.Lang]; ok {
		return code
	}
	return info.Lang.Iso6391()
}

// IsRTL reports whether a language code is written right-to-left.
func IsRTL(langCode string) bool {
	return rtlLanguages[langCode]
}
