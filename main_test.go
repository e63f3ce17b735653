package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/config"
	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/lyrics/highlight"
	"lyrics-sync-go/middleware"
	"lyrics-sync-go/services/notifier"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/services/providers/lrchub"
	"lyrics-sync-go/session"

	"github.com/gorilla/mux"
)

const testLRC = "[00:00.00]Hello\n[00:05.00]World"

type stubProvider struct {
	mu     sync.Mutex
	result *providers.Result
	err    error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchLyrics(ctx context.Context, req providers.Request) (*providers.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	res := *p.result
	return &res, nil
}

type stubSelector struct {
	mu   sync.Mutex
	sent []lrchub.Selection
	err  error
}

func (s *stubSelector) Select(ctx context.Context, sel lrchub.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sel)
	return s.err
}

type testEnv struct {
	router   *mux.Router
	provider *stubProvider
	selector *stubSelector
	store    *cache.BoltStore
}

// setupTestEnvironment points the package globals at a temporary cache, a
// stub provider and a stub selection endpoint.
func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()
	store, err := cache.NewBoltStore(filepath.Join(tmpDir, "test_cache.db"), filepath.Join(tmpDir, "backups"), false)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}

	env := &testEnv{
		router:   mux.NewRouter(),
		provider: &stubProvider{result: &providers.Result{LyricsText: testLRC}},
		selector: &stubSelector{},
		store:    store,
	}

	lyricsStore = store
	providerChain = providers.NewChain(0, env.provider)
	translateBreaker = circuitbreaker.New(circuitbreaker.Config{Name: "test", Threshold: 2, Cooldown: time.Minute})
	manager = session.NewManager(session.Options{
		Source:      providerChain,
		Cache:       cache.NewLyricsCache(store, time.Hour),
		Selector:    env.selector,
		SettleDelay: time.Hour,
	})
	setupRoutes(env.router)

	t.Cleanup(func() {
		manager.Close()
		store.Close()
		lyricsStore = nil
		providerChain = nil
		translateBreaker = nil
		manager = nil
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestOpenSession(t *testing.T) {
	env := setupTestEnvironment(t)
	song := SessionRequest{Title: "Song (Official Video)", Artist: "Band", URL: "https://www.youtube.com/watch?v=abc123"}

	w := env.do(t, "POST", "/session", song)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Cache-Status"); got != "MISS" {
		t.Errorf("Expected X-Cache-Status MISS, got %q", got)
	}
	if got := w.Header().Get("X-Provider"); got != "stub" {
		t.Errorf("Expected X-Provider stub, got %q", got)
	}
	if w.Header().Get("X-Session-Run") == "" {
		t.Error("Expected X-Session-Run to be set")
	}

	var resp LyricsResponse
	decode(t, w, &resp)
	if resp.Kind != session.Found {
		t.Errorf("Expected state found, got %q", resp.Kind)
	}
	if len(resp.Lines) != 2 || resp.Lines[1].Text != "World" {
		t.Errorf("Expected two lines ending in World, got %+v", resp.Lines)
	}
	if resp.Song.VideoID != "abc123" {
		t.Errorf("Expected video id from url, got %q", resp.Song.VideoID)
	}

	w = env.do(t, "GET", "/lyrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /lyrics, got %d", w.Code)
	}
	decode(t, w, &resp)
	if !resp.Timed || resp.Provider != "stub" {
		t.Errorf("Expected timed lyrics from stub, got timed=%v source=%q", resp.Timed, resp.Provider)
	}

	// Opening the same song again is served from the cache.
	w = env.do(t, "POST", "/session", song)
	if got := w.Header().Get("X-Cache-Status"); got != "HIT" {
		t.Errorf("Expected X-Cache-Status HIT on reopen, got %q", got)
	}
}

func TestOpenSession_BadRequests(t *testing.T) {
	env := setupTestEnvironment(t)

	tests := []struct {
		name     string
		body     interface{}
		expected int
	}{
		{"not json", "{nope", http.StatusBadRequest},
		{"no identity", SessionRequest{Artist: "Band"}, http.StatusUnprocessableEntity},
		{"blank title", SessionRequest{Title: "   "}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/session", tt.body)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestOpenSession_NotFound(t *testing.T) {
	env := setupTestEnvironment(t)
	env.provider.err = providers.ErrNotFound

	w := env.do(t, "POST", "/session", SessionRequest{Title: "Unknown", Artist: "Nobody"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	var resp LyricsResponse
	decode(t, w, &resp)
	if resp.Kind != session.NotFound {
		t.Errorf("Expected state not_found, got %q", resp.Kind)
	}

	w = env.do(t, "GET", "/highlight?t=1", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 highlighting without lyrics, got %d", w.Code)
	}
}

func TestHighlightEndpoint(t *testing.T) {
	env := setupTestEnvironment(t)

	w := env.do(t, "GET", "/highlight?t=1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before a session is open, got %d", w.Code)
	}

	env.do(t, "POST", "/session", SessionRequest{Title: "Song", Artist: "Band"})

	tests := []struct {
		query          string
		expectedStatus int
		expectedActive int
	}{
		{"t=1", http.StatusOK, 0},
		{"t=5.5", http.StatusOK, 1},
		{"t=-2", http.StatusOK, -1},
		{"t=abc", http.StatusBadRequest, 0},
		{"t=NaN", http.StatusBadRequest, 0},
		{"", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := env.do(t, "GET", "/highlight?"+tt.query, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Code != http.StatusOK {
				return
			}
			var st highlight.State
			decode(t, w, &st)
			if st.Active != tt.expectedActive {
				t.Errorf("Expected active line %d, got %d", tt.expectedActive, st.Active)
			}
		})
	}
}

func TestCandidatesAndLocks(t *testing.T) {
	env := setupTestEnvironment(t)
	env.provider.result = &providers.Result{
		LyricsText: testLRC,
		Candidates: []candidates.Candidate{
			{ID: "c1", Lyrics: testLRC},
			{ID: "c2", Lyrics: "[00:00.00]Hi\n[00:04.00]There"},
		},
		Requests: []candidates.Request{
			{ID: "r-sync", Request: "lock_sync", Target: candidates.TargetSync, HasLyrics: true, Available: true},
		},
	}

	env.do(t, "POST", "/session", SessionRequest{Title: "Song", Artist: "Band", VideoID: "abc123"})

	w := env.do(t, "GET", "/candidates", nil)
	var cands CandidatesResponse
	decode(t, w, &cands)
	if cands.Candidates.Kind != candidates.MultipleCandidates || cands.Candidates.Selected != "c1" {
		t.Errorf("Expected c1 selected among candidates, got %+v", cands.Candidates)
	}
	if len(cands.Affordances.LockButtons) != 1 {
		t.Errorf("Expected one lock button, got %d", len(cands.Affordances.LockButtons))
	}

	w = env.do(t, "POST", "/candidates/c2/select", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 selecting c2, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.selector.sent) != 1 || env.selector.sent[0].CandidateID != "c2" {
		t.Errorf("Expected c2 to be reported, got %+v", env.selector.sent)
	}

	w = env.do(t, "GET", "/lyrics", nil)
	var lyr LyricsResponse
	decode(t, w, &lyr)
	if lyr.Lines[0].Text != "Hi" {
		t.Errorf("Expected candidate lyrics to be applied, got %q", lyr.Lines[0].Text)
	}

	if w := env.do(t, "POST", "/candidates/zzz/select", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown candidate, got %d", w.Code)
	}
	if w := env.do(t, "GET", "/candidates/c2/select", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET select, got %d", w.Code)
	}

	w = env.do(t, "POST", "/locks/r-sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 locking, got %d: %s", w.Code, w.Body.String())
	}
	if last := env.selector.sent[len(env.selector.sent)-1]; !last.Lock || last.Request != "lock_sync" {
		t.Errorf("Expected a lock for lock_sync, got %+v", last)
	}
	w = env.do(t, "GET", "/candidates", nil)
	decode(t, w, &cands)
	if !cands.Config.SyncLocked || cands.Locks.Kind != candidates.Locked {
		t.Errorf("Expected sync to be locked, got config=%+v locks=%+v", cands.Config, cands.Locks)
	}

	if w := env.do(t, "POST", "/locks/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown request, got %d", w.Code)
	}

	sent := len(env.selector.sent)
	if w := env.do(t, "POST", "/locks/lock_sync", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 locking twice, got %d", w.Code)
	}
	if len(env.selector.sent) != sent {
		t.Errorf("Expected no request for a confirmed lock, got %+v", env.selector.sent[sent:])
	}

	env.selector.err = errors.New("service unavailable")
	if w := env.do(t, "POST", "/candidates/c1/select", nil); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 when the service refuses, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{session.ErrNoSession, http.StatusNotFound},
		{candidates.ErrUnknownCandidate, http.StatusNotFound},
		{candidates.ErrUnknownRequest, http.StatusNotFound},
		{session.ErrNotLoaded, http.StatusConflict},
		{session.ErrStale, http.StatusConflict},
		{session.ErrAlreadyLocked, http.StatusConflict},
		{candidates.ErrEmptyCandidate, http.StatusUnprocessableEntity},
		{session.ErrNoSelector, http.StatusServiceUnavailable},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("selection not recorded"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHealthAndStats(t *testing.T) {
	env := setupTestEnvironment(t)

	var health map[string]interface{}
	decode(t, env.do(t, "GET", "/health", nil), &health)
	if health["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", health["status"])
	}
	if health["cache_backend"] != "bolt" {
		t.Errorf("Expected bolt backend, got %v", health["cache_backend"])
	}

	translateBreaker.RecordFailure()
	translateBreaker.RecordFailure()
	decode(t, env.do(t, "GET", "/health", nil), &health)
	if health["status"] != "degraded" {
		t.Errorf("Expected degraded with the breaker open, got %v", health["status"])
	}

	w := env.do(t, "POST", "/circuit-breaker/reset", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 resetting breaker, got %d", w.Code)
	}
	if translateBreaker.IsOpen() {
		t.Error("Expected breaker to be closed after reset")
	}

	var snapshot map[string]interface{}
	decode(t, env.do(t, "GET", "/stats", nil), &snapshot)
	for _, key := range []string{"server", "requests", "cache", "cache_storage", "providers"} {
		if _, ok := snapshot[key]; !ok {
			t.Errorf("Expected %q in stats", key)
		}
	}

	if w := env.do(t, "GET", "/metrics", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", w.Code)
	}
}

func TestCircuitBreakerWithoutTranslation(t *testing.T) {
	env := setupTestEnvironment(t)
	translateBreaker = nil

	if w := env.do(t, "GET", "/circuit-breaker", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without translation, got %d", w.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	env := setupTestEnvironment(t)
	env.do(t, "POST", "/session", SessionRequest{Title: "Song", Artist: "Band"})

	w := env.do(t, "POST", "/cache/backup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from backup, got %d: %s", w.Code, w.Body.String())
	}
	var backup map[string]interface{}
	decode(t, w, &backup)
	path, _ := backup["backup"].(string)

	if w := env.do(t, "POST", "/cache/restore", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without backup name, got %d", w.Code)
	}
	if w := env.do(t, "POST", "/cache/restore?backup=../x.db", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a path outside the backup dir, got %d", w.Code)
	}
	if w := env.do(t, "POST", "/cache/restore?backup="+filepath.Base(path), nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 restoring %s, got %d: %s", path, w.Code, w.Body.String())
	}

	w = env.do(t, "POST", "/cache/clear", nil)
	var cleared map[string]interface{}
	decode(t, w, &cleared)
	if cleared["cleared"] != float64(1) {
		t.Errorf("Expected one entry cleared, got %v", cleared["cleared"])
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	env := setupTestEnvironment(t)
	saved := recorder
	recorder = notifier.NewRecorder(10)
	t.Cleanup(func() { recorder = saved })
	recorder.Record(notifier.NewEvent(notifier.EventBackupLyricsServed, notifier.SeverityWarning, "backup"))
	recorder.Record(notifier.NewEvent(notifier.EventCandidateSelected, notifier.SeverityInfo, "selected"))

	var resp struct {
		Count  int               `json:"count"`
		Events []*notifier.Event `json:"events"`
	}
	decode(t, env.do(t, "GET", "/notifications", nil), &resp)
	if resp.Count != 2 || resp.Events[0].Message != "selected" {
		t.Errorf("Expected both events newest first, got %+v", resp.Events)
	}

	decode(t, env.do(t, "GET", "/notifications?severity=warning", nil), &resp)
	if resp.Count != 1 || resp.Events[0].Type != notifier.EventBackupLyricsServed {
		t.Errorf("Expected only the warning, got %+v", resp.Events)
	}
}

func TestTestNotifications_NoneConfigured(t *testing.T) {
	env := setupTestEnvironment(t)
	notifiers = nil

	if w := env.do(t, "POST", "/test-notifications", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without notifiers, got %d", w.Code)
	}
}

func TestBuildHandler_APIKey(t *testing.T) {
	env := setupTestEnvironment(t)

	saved := conf
	conf.Configuration.APIKey = "secret"
	conf.Configuration.APIKeyRequired = true
	t.Cleanup(func() { conf = saved })

	handler := buildHandler(env.router, middleware.NewIPRateLimiter(100, 100, 100, 100))

	tests := []struct {
		name     string
		method   string
		path     string
		key      string
		expected int
	}{
		{"public read", "GET", "/lyrics", "", http.StatusNotFound},
		{"public health", "GET", "/health", "", http.StatusOK},
		{"admin without key", "POST", "/cache/clear", "", http.StatusUnauthorized},
		{"admin with wrong key", "POST", "/cache/clear", "nope", http.StatusUnauthorized},
		{"admin with key", "POST", "/cache/clear", "secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestSetupNotifiers(t *testing.T) {
	var c config.Config
	if n := setupNotifiers(c); len(n) != 0 {
		t.Errorf("Expected no notifiers, got %d", len(n))
	}

	c.Notifications.NtfyTopic = "alerts"
	c.Notifications.NtfyServer = "https://ntfy.example"
	c.Notifications.TelegramBotToken = "token"
	c.Notifications.TelegramChatID = "42"

	got := setupNotifiers(c)
	if len(got) != 2 {
		t.Fatalf("Expected 2 notifiers, got %d", len(got))
	}
	if name := notifier.TypeName(got[0]); name != "Telegram" {
		t.Errorf("Expected Telegram first, got %s", name)
	}
	ntfy, ok := got[1].(*notifier.NtfyNotifier)
	if !ok || ntfy.Server != "https://ntfy.example" {
		t.Errorf("Expected ntfy notifier on the configured server, got %#v", got[1])
	}
}

func TestSetupTranslator(t *testing.T) {
	var c config.Config
	c.Translation.Enabled = true

	tr, breaker := setupTranslator(c)
	if tr != nil || breaker != nil {
		t.Error("Expected no translator without a DeepL key")
	}

	c.Translation.DeepLAPIKey = "key:fx"
	c.Translation.RatePerSecond = 1
	c.Translation.RateBurst = 1
	tr, breaker = setupTranslator(c)
	if tr == nil || breaker == nil {
		t.Fatal("Expected a guarded translator with a key")
	}
	if breaker.Name() != "DeepL" {
		t.Errorf("Expected breaker named DeepL, got %s", breaker.Name())
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in       string
		expected int
	}{
		{"*", 1},
		{"https://music.youtube.com, http://localhost:3000", 2},
		{" , ", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); len(got) != tt.expected {
			t.Errorf("splitList(%q) = %v, want %d entries", tt.in, got, tt.expected)
		}
	}
}
