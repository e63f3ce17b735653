package translate

import (
	"context"
	"fmt"

	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Guarded wraps a Translator with a request rate limit and a circuit
// breaker so a failing service is not hammered once per song.
type Guarded struct {
	next    Translator
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuarded wraps next. A nil limiter or breaker disables that guard.
func NewGuarded(next Translator, limiter *rate.Limiter, breaker *circuitbreaker.CircuitBreaker) *Guarded {
	return &Guarded{next: next, limiter: limiter, breaker: breaker}
}

// Breaker exposes the circuit breaker for health reporting.
func (g *Guarded) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

func (g *Guarded) Translate(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if g.breaker != nil && !g.breaker.Allow() {
		log.Warnf("%s Circuit open, skipping translation (retry in %v)", logcolors.LogTranslate, g.breaker.TimeUntilRetry())
		return nil, fmt.Errorf("%w: retry in %v", circuitbreaker.ErrCircuitOpen, g.breaker.TimeUntilRetry())
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	out, err := g.next.Translate(ctx, texts, targetLang)
	if g.breaker != nil {
		switch {
		case err == nil:
			g.breaker.RecordSuccess()
		case ctx.Err() != nil:
			// The caller gave up; say nothing about the service.
		default:
			g.breaker.RecordFailure()
		}
	}
	return out, err
}
