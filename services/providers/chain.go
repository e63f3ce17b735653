package providers

import (
	"context"
	"fmt"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/metrics"

	log "github.com/sirupsen/logrus"
)

// Attempt records the outcome of one provider call.
type Attempt struct {
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Chain tries providers in priority order until one returns lyrics.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

// NewChain builds a chain. timeout bounds each attempt; zero disables it.
func NewChain(timeout time.Duration, ps ...Provider) *Chain {
	return &Chain{providers: ps, timeout: timeout}
}

// ChainFromRegistry builds a chain from registered provider names.
func ChainFromRegistry(r *Registry, names []string, timeout time.Duration) *Chain {
	ps, missing := r.Ordered(names)
	for _, name := range missing {
		log.Warnf("%s Provider %q is not registered, skipping", logcolors.LogFallback, name)
	}
	return NewChain(timeout, ps...)
}

// Names returns the provider names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Fetch walks the chain. A timeout, an error or an empty result moves on to
// the next provider. When every provider fails the error wraps ErrNotFound.
// Cancellation of ctx stops the walk.
func (c *Chain) Fetch(ctx context.Context, req Request) (*Result, []Attempt, error) {
	attempts := make([]Attempt, 0, len(c.providers))

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		start := time.Now()
		res, err := c.try(ctx, p, req)
		if err == nil && res.Empty() {
			err = NewProviderError(p.Name(), "empty lyrics", ErrNotFound)
		}

		a := Attempt{Provider: p.Name(), Outcome: Kind(err), Duration: time.Since(start), Err: err}
		attempts = append(attempts, a)
		metrics.RecordProviderAttempt(a.Provider, a.Outcome, a.Duration.Seconds())

		if err != nil {
			log.Warnf("%s %s failed (%s) after %v: %v",
				logcolors.LogFallback, logcolors.Provider(p.Name()), a.Outcome, a.Duration.Round(time.Millisecond), err)
			continue
		}

		res.Provider = p.Name()
		metrics.RecordServedBy(p.Name())
		log.Infof("%s Lyrics served by %s (attempt %d/%d)",
			logcolors.LogFallback, logcolors.Provider(p.Name()), len(attempts), len(c.providers))
		return res, attempts, nil
	}

	metrics.RecordServedBy("none")
	return nil, attempts, fmt.Errorf("all %d providers failed: %w", len(c.providers), ErrNotFound)
}

func (c *Chain) try(ctx context.Context, p Provider, req Request) (*Result, error) {
	if c.timeout <= 0 {
		return p.FetchLyrics(ctx, req)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := p.FetchLyrics(attemptCtx, req)
		done <- outcome{res, err}
	}()

	// Providers that ignore ctx still lose the race against the deadline.
	select {
	case o := <-done:
		return o.res, o.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, NewProviderError(p.Name(), "attempt timed out", ErrTimeout)
	}
}
