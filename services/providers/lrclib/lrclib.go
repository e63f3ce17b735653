// Package lrclib is the secondary lyrics source, backed by the public
// LrcLib search API.
package lrclib

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/script"
	"lyrics-sync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LrcLib provider
	ProviderName = "lrclib"

	defaultBaseURL = "https://lrclib.net"
	defaultTimeout = 30 * time.Second
)

// Hit is one search result. The API has used several spellings over time.
type Hit struct {
	TrackName       string `json:"trackName"`
	ArtistName      string `json:"artistName"`
	Artist          string `json:"artist"`
	ArtistSnake     string `json:"artist_name"`
	SyncedLyrics    string `json:"syncedLyrics"`
	SyncedSnake     string `json:"synced_lyrics"`
	PlainLyrics     string `json:"plainLyrics"`
	PlainSnake      string `json:"plain_lyrics"`
	PlainLyricsText string `json:"plain_lyrics_text"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h Hit) artist() string { return firstNonEmpty(h.ArtistName, h.Artist, h.ArtistSnake) }
func (h Hit) synced() string { return firstNonEmpty(h.SyncedLyrics, h.SyncedSnake) }
func (h Hit) plain() string {
	return firstNonEmpty(h.PlainLyrics, h.PlainSnake, h.PlainLyricsText)
}

// Lyrics returns the synced lyrics when present, else the plain ones.
func (h Hit) Lyrics() string {
	return strings.TrimSpace(firstNonEmpty(h.synced(), h.plain()))
}

// PickBest chooses the hit to use for artist. Exact artist matches beat
// partial ones, synced lyrics beat plain ones within each tier, and
// without any artist match the first synced or plain hit wins.
func PickBest(hits []Hit, artist string) (Hit, bool) {
	if len(hits) == 0 {
		return Hit{}, false
	}

	target := script.Normalize(artist)
	exact := func(h Hit) bool {
		a := script.Normalize(h.artist())
		return a != "" && a == target
	}
	partial := func(h Hit) bool {
		a := script.Normalize(h.artist())
		return a != "" && (strings.Contains(a, target) || strings.Contains(target, a))
	}
	anyArtist := func(Hit) bool { return true }
	hasSynced := func(h Hit) bool { return h.synced() != "" }
	hasPlain := func(h Hit) bool { return h.plain() != "" }

	type rule struct {
		artist func(Hit) bool
		lyrics func(Hit) bool
	}
	var rules []rule
	if target != "" {
		rules = append(rules,
			rule{exact, hasSynced},
			rule{exact, hasPlain},
			rule{partial, hasSynced},
			rule{partial, hasPlain},
		)
	}
	rules = append(rules, rule{anyArtist, hasSynced}, rule{anyArtist, hasPlain})

	for _, r := range rules {
		for _, h := range hits {
			if r.artist(h) && r.lyrics(h) {
				return h, true
			}
		}
	}
	return hits[0], true
}

// Provider implements providers.Provider for LrcLib.
type Provider struct {
	baseURL string
	client  *providers.Client
}

// New creates an LrcLib provider. An empty baseURL uses the public API.
func New(baseURL string, client *providers.Client) *Provider {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if client == nil {
		client = &providers.Client{HTTP: &http.Client{Timeout: defaultTimeout}}
	}
	return &Provider{baseURL: base, client: client}
}

// NewProvider creates a provider from the global configuration.
func NewProvider() *Provider {
	conf := config.Get()
	return New(conf.Providers.LrcLibBaseURL, &providers.Client{
		HTTP:      &http.Client{Timeout: defaultTimeout},
		UserAgent: conf.Providers.UserAgent,
	})
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return ProviderName
}

// FetchLyrics searches by track name and picks the best hit for the artist.
// LrcLib results never carry candidates or lock requests.
func (p *Provider) FetchLyrics(ctx context.Context, req providers.Request) (*providers.Result, error) {
	if strings.TrimSpace(req.Track) == "" {
		return nil, providers.NewProviderError(ProviderName, "track name is required", providers.ErrNotFound)
	}

	log.Infof("%s %s Searching: %s - %s", logcolors.LogSearch, logcolors.Provider(ProviderName), req.Track, req.Artist)

	searchURL := p.baseURL + "/api/search?track_name=" + url.QueryEscape(req.Track)

	var hits []Hit
	if err := p.client.GetJSON(ctx, searchURL, &hits); err != nil {
		return nil, providers.NewProviderError(ProviderName, "search failed", err)
	}

	hit, ok := PickBest(hits, req.Artist)
	if !ok {
		return nil, providers.NewProviderError(ProviderName, "no search results", providers.ErrNotFound)
	}

	lyrics := hit.Lyrics()
	if lyrics == "" {
		return nil, providers.NewProviderError(ProviderName, "best hit has no lyrics", providers.ErrNotFound)
	}

	log.Infof("%s %s Chose %q by %q (%d hits)",
		logcolors.LogBestMatch, logcolors.Provider(ProviderName), hit.TrackName, hit.artist(), len(hits))

	return &providers.Result{LyricsText: lyrics}, nil
}

// init registers the LrcLib provider with the global registry
func init() {
	providers.Register(NewProvider())
}
