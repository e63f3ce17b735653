// Package lrchub talks to the community lyrics service: lyrics lookup,
// alternate candidates, lock requests and the shared translation registry.
package lrchub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/lrc"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LRCHub provider
	ProviderName = "lrchub"

	defaultBaseURL = "https://lrchub.coreone.work"
	defaultTimeout = 30 * time.Second
)

// Provider implements providers.Provider for LRCHub.
type Provider struct {
	baseURL string
	client  *providers.Client
}

// Options configures a Provider. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	Client  *providers.Client
}

// New creates an LRCHub provider.
func New(opts Options) *Provider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.Client
	if client == nil {
		client = &providers.Client{HTTP: &http.Client{Timeout: defaultTimeout}}
	}
	return &Provider{baseURL: base, client: client}
}

// NewProvider creates a provider from the global configuration.
func NewProvider() *Provider {
	conf := config.Get()
	return New(Options{
		BaseURL: conf.Providers.LRCHubBaseURL,
		Client: &providers.Client{
			HTTP:      &http.Client{Timeout: defaultTimeout},
			UserAgent: conf.Providers.UserAgent,
		},
	})
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// BaseURL returns the service root without a trailing slash.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// FetchLyrics asks the service for lyrics and then for the candidate list.
// Character-timed lyrics win over line-timed ones, which win over plain text.
func (p *Provider) FetchLyrics(ctx context.Context, req providers.Request) (*providers.Result, error) {
	log.Infof("%s %s Searching: %s - %s", logcolors.LogSearch, logcolors.Provider(ProviderName), req.Track, req.Artist)

	payload := lyricsPayload{
		Track:      req.Track,
		Artist:     req.Artist,
		YouTubeURL: req.SourceURL,
		VideoID:    req.SourceID,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to encode request", err)
	}

	// The service answers JSON on error statuses too.
	_, body, err := p.client.Send(ctx, http.MethodPost, p.baseURL+"/api/lyrics", buf)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "lyrics request failed", err)
	}

	var resp lyricsResponse
	if err := providers.Decode(envelope(body), &resp); err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to parse lyrics response", err)
	}

	result := &providers.Result{
		HasSelectCandidates: bool(resp.HasSelectCandidates),
		Requests:            toRequests(resp.Requests),
	}
	if cfg := decodeConfig(resp.Config); cfg != nil {
		result.Config = *cfg
	}

	if resp.DynamicLyrics != nil {
		if wire := decodeList[wireLine](resp.DynamicLyrics.Lines); len(wire) > 0 {
			lines := make([]lrc.DynamicLine, len(wire))
			for i, w := range wire {
				lines[i] = w.toDynamic()
			}
			result.LyricsText, result.Dynamic = lrc.FromDynamic(lines)
			if len(result.Dynamic) == 0 {
				result.Dynamic = nil
			}
		}
	}
	if strings.TrimSpace(result.LyricsText) == "" {
		result.Dynamic = nil
		if synced := strings.TrimSpace(string(resp.SyncedLyrics)); synced != "" {
			result.LyricsText = synced
		} else {
			result.LyricsText = strings.TrimSpace(string(resp.PlainLyrics))
		}
	}

	if result.Empty() {
		return nil, providers.NewProviderError(ProviderName, "no lyrics in response", providers.ErrNotFound)
	}

	videoID := string(resp.VideoID)
	if videoID == "" {
		videoID = req.SourceID
	}
	result.CandidatesURL = BuildCandidatesURL(p.baseURL, string(resp.CandidatesAPIURL), videoID)

	if result.CandidatesURL != "" {
		set := p.FetchCandidates(ctx, result.CandidatesURL)
		set.MergeInto(result)
	}

	log.Infof("%s %s Found lyrics (%d dynamic lines, %d candidates, %d requests)",
		logcolors.LogBestMatch, logcolors.Provider(ProviderName), len(result.Dynamic), len(result.Candidates), len(result.Requests))

	return result, nil
}

// init registers the LRCHub provider with the global registry
func init() {
	providers.Register(NewProvider())
}
