// Package github is the last-resort lyrics source: a README per video id in
// a public repository of community lyrics.
package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the GitHub provider
	ProviderName = "github"

	defaultBaseURL = "https://raw.githubusercontent.com/LRCHub"
	defaultTimeout = 30 * time.Second
)

// Provider implements providers.Provider for the GitHub mirror.
type Provider struct {
	baseURL string
	client  *providers.Client
	backup  bool
}

// New creates a GitHub provider. backup marks its results as coming from
// a last-resort source.
func New(baseURL string, client *providers.Client, backup bool) *Provider {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if client == nil {
		client = &providers.Client{HTTP: &http.Client{Timeout: defaultTimeout}}
	}
	return &Provider{baseURL: base, client: client, backup: backup}
}

// NewProvider creates a provider from the global configuration.
func NewProvider() *Provider {
	conf := config.Get()
	return New(conf.Providers.GitHubRawBaseURL, &providers.Client{
		HTTP:      &http.Client{Timeout: defaultTimeout},
		UserAgent: conf.Providers.UserAgent,
	}, conf.Providers.GitHubIsBackup)
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// ReadmeURL is where the lyrics for videoID live.
func (p *Provider) ReadmeURL(videoID string) string {
	return p.baseURL + "/" + url.PathEscape(videoID) + "/main/README.md"
}

// FetchLyrics downloads the README for the request's video id.
func (p *Provider) FetchLyrics(ctx context.Context, req providers.Request) (*providers.Result, error) {
	videoID := req.VideoID()
	if videoID == "" {
		return nil, providers.NewProviderError(ProviderName, "no video id", providers.ErrNotFound)
	}

	log.Infof("%s %s Fetching README for %s", logcolors.LogSearch, logcolors.Provider(ProviderName), videoID)

	text, err := p.client.GetText(ctx, p.ReadmeURL(videoID))
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "README unavailable", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, providers.NewProviderError(ProviderName, "README is empty", providers.ErrNotFound)
	}

	if p.backup {
		log.Warnf("%s Serving backup lyrics from %s", logcolors.LogFallback, logcolors.Provider(ProviderName))
	}
	return &providers.Result{LyricsText: text, Backup: p.backup}, nil
}

// init registers the GitHub provider with the global registry
func init() {
	providers.Register(NewProvider())
}
