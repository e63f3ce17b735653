package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/lrc"
	"lyrics-sync-go/services/notifier"

	log "github.com/sirupsen/logrus"
)

// Status is the outcome of a lookup.
type Status int

const (
	Miss     Status = iota // nothing known
	Hit                    // lyrics are cached
	NoLyrics               // a recent load found nothing
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case NoLyrics:
		return "no_lyrics"
	default:
		return "miss"
	}
}

// Entry is what is remembered about one song.
type Entry struct {
	Lyrics      string            `json:"lyrics,omitempty"`
	Dynamic     []lrc.DynamicLine `json:"dynamicLines,omitempty"`
	NoLyrics    bool              `json:"noLyrics,omitempty"`
	CandidateID string            `json:"candidateId,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Backup      bool              `json:"backup,omitempty"`
	StoredAt    time.Time         `json:"storedAt"`
}

// LyricsCache stores resolved lyrics keyed by song identity.
type LyricsCache struct {
	store       Store
	negativeTTL time.Duration
}

// NewLyricsCache wraps store. negativeTTL bounds how long a "no lyrics"
// result is trusted; zero keeps it forever.
func NewLyricsCache(store Store, negativeTTL time.Duration) *LyricsCache {
	return &LyricsCache{store: store, negativeTTL: negativeTTL}
}

// Store returns the underlying store.
func (c *LyricsCache) Store() Store {
	return c.store
}

func lyricsKey(songKey string) string {
	return "song:" + songKey
}

// Lookup returns the cached entry for songKey. Read failures count as a miss.
func (c *LyricsCache) Lookup(ctx context.Context, songKey string) (Entry, Status) {
	raw, ok, err := c.store.Get(ctx, lyricsKey(songKey))
	if err != nil {
		log.Warnf("%s Read failed for %q: %v", logcolors.LogCacheLyrics, songKey, err)
		return Entry{}, Miss
	}
	if !ok {
		return Entry{}, Miss
	}

	// Entries written before the structured layout are bare lyrics.
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		if strings.TrimSpace(raw) == "" {
			return Entry{}, Miss
		}
		return Entry{Lyrics: raw}, Hit
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		log.Warnf("%s Dropping unreadable entry for %q: %v", logcolors.LogCacheLyrics, songKey, err)
		c.Forget(ctx, songKey)
		return Entry{}, Miss
	}

	if e.NoLyrics {
		log.Debugf("%s Negative hit for %q", logcolors.LogCacheNegative, songKey)
		return e, NoLyrics
	}
	if strings.TrimSpace(e.Lyrics) == "" {
		return Entry{}, Miss
	}
	log.Debugf("%s Hit for %q", logcolors.LogCacheLyrics, songKey)
	return e, Hit
}

// Put stores lyrics for songKey.
func (c *LyricsCache) Put(ctx context.Context, songKey string, e Entry) error {
	e.NoLyrics = false
	return c.write(ctx, songKey, e, 0)
}

// PutNoLyrics remembers that no source had lyrics for songKey.
func (c *LyricsCache) PutNoLyrics(ctx context.Context, songKey string) error {
	return c.write(ctx, songKey, Entry{NoLyrics: true}, c.negativeTTL)
}

func (c *LyricsCache) write(ctx context.Context, songKey string, e Entry, ttl time.Duration) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, lyricsKey(songKey), string(data), ttl); err != nil {
		log.Errorf("%s Write failed for %q: %v", logcolors.LogCacheLyrics, songKey, err)
		notifier.PublishCacheWriteFailed(songKey, err)
		return err
	}
	return nil
}

// Forget removes songKey so the next load goes to the providers.
func (c *LyricsCache) Forget(ctx context.Context, songKey string) error {
	return c.store.Delete(ctx, lyricsKey(songKey))
}
