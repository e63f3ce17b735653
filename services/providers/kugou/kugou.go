// Package kugou is an optional LRC source backed by the Kugou search APIs.
// It is registered but only used when named in PROVIDER_ORDER.
package kugou

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the Kugou provider
	ProviderName = "kugou"

	defaultLyricsURL = "https://krcs.kugou.com"
	defaultSearchURL = "http://msearchcdn.kugou.com"
	defaultMinScore  = 0.4
	defaultTimeout   = 10 * time.Second
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Provider implements providers.Provider for Kugou.
type Provider struct {
	lyricsURL string
	searchURL string
	minScore  float64
	client    *providers.Client
}

// New creates a Kugou provider. Empty URLs and a zero minScore use the
// defaults.
func New(lyricsURL, searchURL string, minScore float64, client *providers.Client) *Provider {
	p := &Provider{
		lyricsURL: strings.TrimRight(lyricsURL, "/"),
		searchURL: strings.TrimRight(searchURL, "/"),
		minScore:  minScore,
		client:    client,
	}
	if p.lyricsURL == "" {
		p.lyricsURL = defaultLyricsURL
	}
	if p.searchURL == "" {
		p.searchURL = defaultSearchURL
	}
	if p.minScore <= 0 {
		p.minScore = defaultMinScore
	}
	if p.client == nil {
		p.client = &providers.Client{HTTP: &http.Client{Timeout: defaultTimeout}, UserAgent: browserUserAgent}
	}
	return p
}

// NewProvider creates a provider from the global configuration. Kugou
// rejects unknown agents, so the configured user agent is not used.
func NewProvider() *Provider {
	conf := config.Get()
	return New(conf.Providers.KugouLyricsURL, conf.Providers.KugouSearchURL, conf.Providers.KugouMinScore, nil)
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// FetchLyrics resolves the song hash, picks the best lyrics file for it and
// returns it as LRC.
func (p *Provider) FetchLyrics(ctx context.Context, req providers.Request) (*providers.Result, error) {
	if strings.TrimSpace(req.Track) == "" {
		return nil, providers.NewProviderError(ProviderName, "track name is required", providers.ErrNotFound)
	}

	keyword := req.Track
	if req.Artist != "" {
		keyword += " " + req.Artist
	}
	log.Infof("%s %s Searching: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), keyword)

	songs, err := p.searchSongs(ctx, keyword)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "song search failed", err)
	}
	song, score := pickSong(songs, req.Track, req.Artist)
	if song == nil {
		return nil, providers.NewProviderError(ProviderName, "no songs found", providers.ErrNotFound)
	}
	if score < p.minScore {
		return nil, providers.NewProviderError(ProviderName,
			fmt.Sprintf("best song %q scored %.2f, below %.2f", song.SongName, score, p.minScore), providers.ErrNotFound)
	}

	cands, err := p.searchLyrics(ctx, keyword, song.Hash)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "lyrics search failed", err)
	}
	best, matchScore := pickCandidate(cands, req.Track, req.Artist)
	if best == nil {
		return nil, providers.NewProviderError(ProviderName, "no lyrics for song", providers.ErrNotFound)
	}
	log.Infof("%s %s Chose %s - %s (score %.2f, synced %v)",
		logcolors.LogBestMatch, logcolors.Provider(ProviderName), best.Singer, best.Song, matchScore, best.KRCType == 1)

	raw, err := p.download(ctx, *best)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "download failed", err)
	}

	lyrics := normalizeLyrics(raw)
	if lyrics == "" {
		return nil, providers.NewProviderError(ProviderName, "lyrics have no timed lines", providers.ErrNotFound)
	}
	return &providers.Result{LyricsText: lyrics}, nil
}

// init registers the Kugou provider with the global registry
func init() {
	providers.Register(NewProvider())
}
