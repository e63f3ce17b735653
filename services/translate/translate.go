// Package translate turns lyric lines into another language through a
// machine translation service.
package translate

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// ErrCountMismatch is returned when a service answers with a different
// number of texts than it was sent.
var ErrCountMismatch = errors.New("translation count mismatch")

// ErrUnavailable is returned when no translator is configured.
var ErrUnavailable = errors.New("translator unavailable")

// Translator translates a batch of texts into one target language. The
// result is index-parallel to texts.
type Translator interface {
	Translate(ctx context.Context, texts []string, targetLang string) ([]string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, texts []string, targetLang string) ([]string, error)

func (f TranslatorFunc) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	return f(ctx, texts, targetLang)
}

var targetLangs = map[language.Base]string{
	mustBase("en"): "EN",
	mustBase("ja"): "JA",
	mustBase("ko"): "KO",
	mustBase("fr"): "FR",
	mustBase("de"): "DE",
	mustBase("es"): "ES",
	mustBase("zh"): "ZH",
}

func mustBase(s string) language.Base {
	return language.MustParseBase(s)
}

// DefaultTargetLang is used for codes the service does not know.
const DefaultTargetLang = "JA"

// ResolveTargetLang maps a user language code such as "en-GB" or "zh-tw" to
// the service's target code.
func ResolveTargetLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultTargetLang
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultTargetLang
	}
	base, _ := tag.Base()
	if target, ok := targetLangs[base]; ok {
		return target
	}
	return DefaultTargetLang
}
