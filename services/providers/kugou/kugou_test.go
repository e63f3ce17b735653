package kugou

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lyrics-sync-go/services/providers"
)

func TestProvider_Name(t *testing.T) {
	var p providers.Provider = New("", "", 0, nil)
	if p.Name() != "kugou" {
		t.Errorf("Expected kugou, got %q", p.Name())
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New("https://lyrics.example/", "", 0, nil)
	if p.lyricsURL != "https://lyrics.example" {
		t.Errorf("Expected trailing slash trimmed, got %q", p.lyricsURL)
	}
	if p.searchURL != defaultSearchURL {
		t.Errorf("Expected default search URL, got %q", p.searchURL)
	}
	if p.minScore != defaultMinScore {
		t.Errorf("Expected default min score, got %v", p.minScore)
	}
	if p.client.UserAgent != browserUserAgent {
		t.Errorf("Expected browser user agent, got %q", p.client.UserAgent)
	}
}

func TestPickSong(t *testing.T) {
	songs := []SongInfo{
		{Hash: "other", SongName: "Another Song", SingerName: "Someone"},
		{Hash: "partial", SongName: "Song (Live)", SingerName: "The Band"},
		{Hash: "exact", SongName: "song", SingerName: "BAND", SQHash: "sq"},
	}

	tests := []struct {
		name     string
		songs    []SongInfo
		artist   string
		expected string
	}{
		{"Exact match wins", songs, "Band", "exact"},
		{"Partial beats nothing", songs[:2], "Band", "partial"},
		{"Blank artist still matches title", songs, "", "exact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := pickSong(tt.songs, "Song", tt.artist)
			if got == nil || got.Hash != tt.expected {
				t.Fatalf("Expected %q, got %+v", tt.expected, got)
			}
			if score <= 0 || score > 1 {
				t.Errorf("Expected score in (0, 1], got %v", score)
			}
		})
	}

	if got, score := pickSong(nil, "Song", "Band"); got != nil || score != 0 {
		t.Errorf("Expected nothing from an empty list, got %+v %v", got, score)
	}
}

func TestPickCandidate(t *testing.T) {
	cands := []LyricsCandidate{
		{ID: "plain", Song: "Song", Singer: "Band", KRCType: 2, Score: 60},
		{ID: "synced", Song: "Song", Singer: "Band", KRCType: 1, Score: 50},
		{ID: "official", Song: "Song", Singer: "Band", KRCType: 1, Score: 60, ProductFrom: "官方推荐歌词"},
	}

	got, _ := pickCandidate(cands[:2], "Song", "Band")
	if got.ID != "synced" {
		t.Errorf("Expected synced lyrics preferred, got %s", got.ID)
	}
	got, score := pickCandidate(cands, "Song", "Band")
	if got.ID != "official" {
		t.Errorf("Expected official lyrics preferred, got %s", got.ID)
	}
	if score != 1 {
		t.Errorf("Expected a perfect match to clamp to 1, got %v", score)
	}
}

func TestNormalizeLyrics(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Credits trimmed at both ends",
			input:    "[ti:Song]\n[00:00.00]Song - Band\n[00:01.00]作词：A\n[00:02.00]作曲：B\n[00:03.00]first\n[00:04.00]second\n[00:05.00]制作：C",
			expected: "[00:03.00]first\n[00:04.00]second",
		},
		{
			name:     "Untimed lines dropped",
			input:    "plain\n[00:01.00]a\n\n[00:02:50]b",
			expected: "[00:01.00]a\n[00:02:50]b",
		},
		{
			name:     "Entities decoded",
			input:    "[00:01.00]don&apos;t",
			expected: "[00:01.00]don't",
		},
		{
			name:     "Pure music",
			input:    "[00:00.00]纯音乐，请欣赏",
			expected: instrumentalLine,
		},
		{
			name:     "Nothing timed",
			input:    "[ar:Band]\nplain",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeLyrics(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDecodeContent(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("\ufeff[00:01.00]hi"))
	got, err := decodeContent(enc)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "[00:01.00]hi" {
		t.Errorf("Expected BOM stripped, got %q", got)
	}

	if _, err := decodeContent("%%%"); !errors.Is(err, providers.ErrMalformedResponse) {
		t.Errorf("Expected malformed response, got %v", err)
	}
}

func newKugouServer(t *testing.T, lrc string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/v3/search/song":
			if strings.HasPrefix(q.Get("keyword"), "Missing") {
				w.Write([]byte(`{"status":1,"data":{"info":[]}}`))
				return
			}
			w.Write([]byte(`{"status":1,"data":{"info":[{"hash":"H1","songname":"Song","singername":"Band"}]}}`))
		case "/search":
			if q.Get("hash") != "H1" {
				t.Errorf("Expected hash H1, got %q", q.Get("hash"))
			}
			w.Write([]byte(`{"status":200,"candidates":[{"id":"7","accesskey":"K","song":"Song","singer":"Band","krctype":1,"score":60}]}`))
		case "/download":
			if q.Get("id") != "7" || q.Get("accesskey") != "K" || q.Get("fmt") != "lrc" {
				t.Errorf("Unexpected download query %v", q)
			}
			content := base64.StdEncoding.EncodeToString([]byte(lrc))
			w.Write([]byte(`{"status":200,"content":"` + content + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchLyrics(t *testing.T) {
	server := newKugouServer(t, "[ar:Band]\n[00:01.00]hello\n[00:02.00]world")
	p := New(server.URL, server.URL, 0.3, &providers.Client{})

	res, err := p.FetchLyrics(context.Background(), providers.Request{Track: "Song", Artist: "Band"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.LyricsText != "[00:01.00]hello\n[00:02.00]world" {
		t.Errorf("Expected normalized LRC, got %q", res.LyricsText)
	}

	tests := []struct {
		name     string
		req      providers.Request
		expected error
	}{
		{"No track", providers.Request{Artist: "Band"}, providers.ErrNotFound},
		{"No songs", providers.Request{Track: "Missing"}, providers.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.FetchLyrics(context.Background(), tt.req)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestFetchLyrics_LowScore(t *testing.T) {
	server := newKugouServer(t, "[00:01.00]hello")
	p := New(server.URL, server.URL, 0.9, &providers.Client{})

	_, err := p.FetchLyrics(context.Background(), providers.Request{Track: "Song", Artist: "Someone Else"})
	if !errors.Is(err, providers.ErrNotFound) {
		t.Errorf("Expected a weak match to be rejected, got %v", err)
	}
}

func TestFetchLyrics_NoTimedLines(t *testing.T) {
	server := newKugouServer(t, "[ti:Song]\njust text")
	p := New(server.URL, server.URL, 0.3, &providers.Client{})

	_, err := p.FetchLyrics(context.Background(), providers.Request{Track: "Song", Artist: "Band"})
	if !errors.Is(err, providers.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
