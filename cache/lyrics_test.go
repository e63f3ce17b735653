package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lyrics-sync-go/lyrics/lrc"
)

func newTestLyricsCache(t *testing.T, negativeTTL time.Duration) (*LyricsCache, *BoltStore) {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "lyrics.db"), "", true)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewLyricsCache(store, negativeTTL), store
}

func TestLyricsCache_RoundTrip(t *testing.T) {
	c, _ := newTestLyricsCache(t, time.Hour)
	ctx := context.Background()

	if _, status := c.Lookup(ctx, "Song///Band"); status != Miss {
		t.Fatalf("Expected miss, got %v", status)
	}

	in := Entry{
		Lyrics:      "[00:01.00]hello",
		Dynamic:     []lrc.DynamicLine{{StartMs: 1000, Chars: []lrc.Char{{Text: "h", StartMs: 1000}}}},
		CandidateID: "3",
		Provider:    "lrchub",
	}
	if err := c.Put(ctx, "Song///Band", in); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}

	got, status := c.Lookup(ctx, "Song///Band")
	if status != Hit {
		t.Fatalf("Expected hit, got %v", status)
	}
	if got.Lyrics != in.Lyrics || got.CandidateID != "3" || got.Provider != "lrchub" {
		t.Errorf("Unexpected entry: %+v", got)
	}
	if len(got.Dynamic) != 1 || got.Dynamic[0].Chars[0].Text != "h" {
		t.Errorf("Expected dynamic lines to survive, got %+v", got.Dynamic)
	}
	if got.StoredAt.IsZero() {
		t.Error("Expected StoredAt to be set")
	}

	if err := c.Forget(ctx, "Song///Band"); err != nil {
		t.Fatalf("Failed to forget: %v", err)
	}
	if _, status := c.Lookup(ctx, "Song///Band"); status != Miss {
		t.Errorf("Expected miss after forget, got %v", status)
	}
}

func TestLyricsCache_NegativeEntriesExpire(t *testing.T) {
	c, store := newTestLyricsCache(t, time.Hour)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := c.PutNoLyrics(ctx, "Silent///Nobody"); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if _, status := c.Lookup(ctx, "Silent///Nobody"); status != NoLyrics {
		t.Fatalf("Expected no-lyrics status, got %v", status)
	}

	now = now.Add(2 * time.Hour)
	if _, status := c.Lookup(ctx, "Silent///Nobody"); status != Miss {
		t.Errorf("Expected negative entry to expire, got %v", status)
	}
}

func TestLyricsCache_PutClearsNoLyricsFlag(t *testing.T) {
	c, _ := newTestLyricsCache(t, 0)
	ctx := context.Background()

	c.Put(ctx, "k", Entry{Lyrics: "words", NoLyrics: true})
	if _, status := c.Lookup(ctx, "k"); status != Hit {
		t.Errorf("Expected hit, got %v", status)
	}
}

func TestLyricsCache_CorruptEntryIsMiss(t *testing.T) {
	c, store := newTestLyricsCache(t, 0)
	ctx := context.Background()

	store.Set(ctx, lyricsKey("k"), "{not json", 0)
	if _, status := c.Lookup(ctx, "k"); status != Miss {
		t.Errorf("Expected miss for corrupt entry, got %v", status)
	}
	if _, found, _ := store.Get(ctx, lyricsKey("k")); found {
		t.Error("Expected corrupt entry to be removed")
	}
}

func TestLyricsCache_LegacyPlainValue(t *testing.T) {
	c, store := newTestLyricsCache(t, 0)
	ctx := context.Background()

	store.Set(ctx, lyricsKey("old"), "[00:01.00]from an older release", 0)
	e, status := c.Lookup(ctx, "old")
	if status != Hit {
		t.Fatalf("Expected hit, got %v", status)
	}
	if e.Lyrics != "[00:01.00]from an older release" {
		t.Errorf("Expected raw value as lyrics, got %q", e.Lyrics)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{Miss: "miss", Hit: "hit", NoLyrics: "no_lyrics"}
	for s, expected := range tests {
		if s.String() != expected {
			t.Errorf("Expected %q, got %q", expected, s.String())
		}
	}
}

// TestRedisStore runs against a live server when REDIS_TEST_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	store, err := NewRedisStore(url, "lyrics-test:", true)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	store.Clear(ctx)

	if err := store.Set(ctx, "k", "value", time.Minute); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}
	if got, found, err := store.Get(ctx, "k"); err != nil || !found || got != "value" {
		t.Errorf("Expected value, got %q found=%v err=%v", got, found, err)
	}
	if st, _ := store.Stats(ctx); st.Keys != 1 {
		t.Errorf("Expected 1 key, got %d", st.Keys)
	}
	if n, _ := store.Clear(ctx); n != 1 {
		t.Errorf("Expected 1 cleared key, got %d", n)
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("Expected key to be gone")
	}
}
