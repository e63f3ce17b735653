package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	deeplFreeURL = "https://api-free.deepl.com/v2/translate"
	deeplProURL  = "https://api.deepl.com/v2/translate"

	defaultTimeout = 30 * time.Second
)

// DeepL translates through the DeepL REST API.
type DeepL struct {
	apiKey   string
	endpoint string
	client   *providers.Client
}

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Endpoint returns the API endpoint for a key. Free-tier keys end in ":fx".
func Endpoint(apiKey string) string {
	if strings.HasSuffix(apiKey, ":fx") {
		return deeplFreeURL
	}
	return deeplProURL
}

// NewDeepL creates a DeepL client. An empty endpoint is derived from the key.
func NewDeepL(apiKey, endpoint string, client *providers.Client) *DeepL {
	if endpoint == "" {
		endpoint = Endpoint(apiKey)
	}
	if client == nil {
		client = &providers.Client{HTTP: &http.Client{Timeout: defaultTimeout}}
	}
	return &DeepL{apiKey: apiKey, endpoint: endpoint, client: client}
}

// Translate sends texts in one request. targetLang is a user language code
// and is resolved to DeepL's.
func (d *DeepL) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client := *d.client
	client.Header = client.Header.Clone()
	if client.Header == nil {
		client.Header = http.Header{}
	}
	client.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	target := ResolveTargetLang(targetLang)
	log.Debugf("%s Translating %d texts to %s", logcolors.LogTranslate, len(texts), target)

	var resp deeplResponse
	if err := client.PostJSON(ctx, d.endpoint, deeplRequest{Text: texts, TargetLang: target}, &resp); err != nil {
		return nil, fmt.Errorf("deepl: %w", err)
	}
	if len(resp.Translations) != len(texts) {
		return nil, fmt.Errorf("deepl: %w: sent %d, got %d", ErrCountMismatch, len(texts), len(resp.Translations))
	}

	out := make([]string, len(resp.Translations))
	for i, t := range resp.Translations {
		out[i] = t.Text
	}
	return out, nil
}
