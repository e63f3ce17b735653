package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// LimiterPair holds the action and read tier limiters for an IP.
// Actions are requests that reach providers (opening a session, selecting,
// locking); reads only look at committed session state.
type LimiterPair struct {
	Action   *rate.Limiter
	Read     *rate.Limiter
	lastSeen time.Time
}

// GetActionTokens returns the number of tokens available in the action tier
func (lp *LimiterPair) GetActionTokens() int {
	return int(math.Floor(lp.Action.Tokens()))
}

// GetReadTokens returns the number of tokens available in the read tier
func (lp *LimiterPair) GetReadTokens() int {
	return int(math.Floor(lp.Read.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per IP
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          *sync.RWMutex
	actionRate  rate.Limit
	actionBurst int
	readRate    rate.Limit
	readBurst   int
}

// GetActionLimit returns the action tier burst limit
func (i *IPRateLimiter) GetActionLimit() int {
	return i.actionBurst
}

// GetReadLimit returns the read tier burst limit
func (i *IPRateLimiter) GetReadLimit() int {
	return i.readBurst
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(actionRate rate.Limit, actionBurst int, readRate rate.Limit, readBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		mu:          &sync.RWMutex{},
		actionRate:  actionRate,
		actionBurst: actionBurst,
		readRate:    readRate,
		readBurst:   readBurst,
	}
}

func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair := &LimiterPair{
		Action:   rate.NewLimiter(i.actionRate, i.actionBurst),
		Read:     rate.NewLimiter(i.readRate, i.readBurst),
		lastSeen: time.Now(),
	}

	i.ips[ip] = pair

	return pair
}

func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	limiter, exists := i.ips[ip]

	if !exists {
		i.mu.Unlock()
		return i.AddIP(ip)
	}

	limiter.lastSeen = time.Now()
	i.mu.Unlock()

	return limiter
}

// Prune forgets IPs idle for longer than maxIdle and returns how many were dropped.
func (i *IPRateLimiter) Prune(maxIdle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	dropped := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			dropped++
		}
	}
	return dropped
}

// isRead reports whether a request only reads committed state.
func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware applies the per-IP limiter. Requests carrying bypassKey
// in X-API-Key skip limiting.
func RateLimitMiddleware(limiter *IPRateLimiter, bypassKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypassKey != "" && r.Header.Get("X-API-Key") == bypassKey {
				w.Header().Set("X-RateLimit-Bypass", "true")
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			limiters := limiter.GetLimiter(ip)

			tier, l, limit := "action", limiters.Action, limiter.GetActionLimit()
			if isRead(r) {
				tier, l, limit = "read", limiters.Read, limiter.GetReadLimit()
			}

			if l.Allow() {
				stats.Get().RecordRateLimit(true)
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(math.Floor(l.Tokens()))))
				w.Header().Set("X-RateLimit-Type", tier)
				next.ServeHTTP(w, r)
				return
			}

			stats.Get().RecordRateLimit(false)
			log.Warnf("%s IP %s exceeded the %s tier", logcolors.LogRateLimit, ip, tier)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Type", tier)
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
