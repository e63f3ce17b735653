package lrchub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

// ErrRejected is returned when the service answers ok=false.
var ErrRejected = errors.New("rejected by lyrics service")

// ErrMissingTarget is returned when a call names no song.
var ErrMissingTarget = errors.New("missing video_id or youtube_url")

type translationsResponse struct {
	Translations map[string]looseString `json:"translations"`
	MissingLangs []looseString          `json:"missing_langs"`
}

type registerPayload struct {
	Lang       string `json:"lang"`
	Lyrics     string `json:"lyrics"`
	YouTubeURL string `json:"youtube_url,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
}

// songQuery identifies the song by URL when known, else by video id.
func songQuery(req providers.Request) (url.Values, error) {
	q := url.Values{}
	switch {
	case req.SourceURL != "":
		q.Set("youtube_url", req.SourceURL)
	case req.SourceID != "":
		q.Set("video_id", req.SourceID)
	default:
		return nil, ErrMissingTarget
	}
	return q, nil
}

// FetchTranslations asks the registry for stored translations. The returned
// map holds only non-blank entries; missing lists what the registry lacks.
func (p *Provider) FetchTranslations(ctx context.Context, req providers.Request, langs []string) (map[string]string, []string, error) {
	q, err := songQuery(req)
	if err != nil {
		return nil, nil, err
	}
	for _, l := range langs {
		q.Add("lang", l)
	}

	_, body, err := p.client.Send(ctx, http.MethodGet, p.baseURL+"/api/translation?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, providers.NewProviderError(ProviderName, "translation lookup failed", err)
	}

	var resp translationsResponse
	if err := providers.Decode(envelope(body), &resp); err != nil {
		return nil, nil, providers.NewProviderError(ProviderName, "failed to parse translation response", err)
	}

	found := make(map[string]string, len(resp.Translations))
	for lang, text := range resp.Translations {
		if strings.TrimSpace(string(text)) != "" {
			found[lang] = string(text)
		}
	}
	missing := make([]string, 0, len(resp.MissingLangs))
	for _, l := range resp.MissingLangs {
		if l != "" {
			missing = append(missing, string(l))
		}
	}

	log.Debugf("%s Registry has %d of %d languages", logcolors.LogRegistry, len(found), len(langs))
	return found, missing, nil
}

// RegisterTranslation stores a translation in the registry.
func (p *Provider) RegisterTranslation(ctx context.Context, req providers.Request, lang, lyrics string) error {
	if req.SourceURL == "" && req.SourceID == "" {
		return ErrMissingTarget
	}
	payload := registerPayload{Lang: lang, Lyrics: lyrics}
	if req.SourceURL != "" {
		payload.YouTubeURL = req.SourceURL
	} else {
		payload.VideoID = req.SourceID
	}

	var resp statusResponse
	if _, err := p.client.SendJSON(ctx, http.MethodPost, p.baseURL+"/api/translation", payload, &resp); err != nil {
		return providers.NewProviderError(ProviderName, "translation registration failed", err)
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", ErrRejected, resp.reason())
	}

	log.Infof("%s Registered %s translation", logcolors.LogRegistry, lang)
	return nil
}
