package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// slowProvider ignores its context and never answers in time.
type slowProvider struct {
	name  string
	delay time.Duration
}

func (s *slowProvider) Name() string { return s.name }

func (s *slowProvider) FetchLyrics(ctx context.Context, req Request) (*Result, error) {
	time.Sleep(s.delay)
	return &Result{LyricsText: "late"}, nil
}

func TestChain_FirstSuccessWins(t *testing.T) {
	c := NewChain(time.Second, newMockProvider("a"), newMockProvider("b"))

	res, attempts, err := c.Fetch(context.Background(), Request{Track: "t"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Provider != "a" {
		t.Errorf("Expected provider 'a', got %q", res.Provider)
	}
	if len(attempts) != 1 {
		t.Errorf("Expected 1 attempt, got %d", len(attempts))
	}
}

func TestChain_FallsBackInOrder(t *testing.T) {
	c := NewChain(time.Second,
		&mockProvider{name: "down", err: NewProviderError("down", "refused", ErrNetwork)},
		&mockProvider{name: "empty", text: "   "},
		&mockProvider{name: "ok", text: "plain lyrics"},
	)

	res, attempts, err := c.Fetch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Provider != "ok" {
		t.Errorf("Expected provider 'ok', got %q", res.Provider)
	}

	expected := []string{"network", "not_found", "success"}
	if len(attempts) != len(expected) {
		t.Fatalf("Expected %d attempts, got %d", len(expected), len(attempts))
	}
	for i, want := range expected {
		if attempts[i].Outcome != want {
			t.Errorf("Attempt %d: expected outcome %q, got %q", i, want, attempts[i].Outcome)
		}
	}
}

func TestChain_TimeoutTriggersNextProvider(t *testing.T) {
	c := NewChain(30*time.Millisecond,
		&slowProvider{name: "slow", delay: 500 * time.Millisecond},
		newMockProvider("fast"),
	)

	start := time.Now()
	res, attempts, err := c.Fetch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Provider != "fast" {
		t.Errorf("Expected provider 'fast', got %q", res.Provider)
	}
	if attempts[0].Outcome != "timeout" {
		t.Errorf("Expected first attempt to time out, got %q", attempts[0].Outcome)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("Expected timeout to cut the slow provider short, took %v", time.Since(start))
	}
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain(time.Second,
		&mockProvider{name: "a", err: ErrNetwork},
		&mockProvider{name: "b", err: ErrMalformedResponse},
	)

	res, attempts, err := c.Fetch(context.Background(), Request{})
	if res != nil {
		t.Errorf("Expected nil result, got %+v", res)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", len(attempts))
	}
}

func TestChain_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewChain(time.Second, newMockProvider("a"))
	_, attempts, err := c.Fetch(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("Expected no attempts, got %d", len(attempts))
	}
}

func TestChainFromRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockProvider("lrclib"))
	r.Register(newMockProvider("lrchub"))

	c := ChainFromRegistry(r, []string{"lrchub", "missing", "lrclib"}, time.Second)

	names := c.Names()
	if len(names) != 2 || names[0] != "lrchub" || names[1] != "lrclib" {
		t.Errorf("Expected [lrchub lrclib], got %v", names)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/garbage":
			w.Write([]byte("not json"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		default:
			if r.Header.Get("User-Agent") != "test-agent" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer server.Close()

	c := &Client{UserAgent: "test-agent"}
	var out struct {
		OK bool `json:"ok"`
	}

	if err := c.GetJSON(context.Background(), server.URL+"/fine", &out); err != nil || !out.OK {
		t.Errorf("Expected ok response, got %v (%+v)", err, out)
	}

	tests := []struct {
		path     string
		expected error
	}{
		{"/missing", ErrNotFound},
		{"/broken", ErrNetwork},
		{"/garbage", ErrMalformedResponse},
	}
	for _, tt := range tests {
		err := c.GetJSON(context.Background(), server.URL+tt.path, &out)
		if !errors.Is(err, tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.path, tt.expected, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.GetJSON(ctx, server.URL+"/slow", &out); !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}
