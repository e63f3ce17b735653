package stats

import (
	"strings"
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests     atomic.Int64
	SessionRequests   atomic.Int64
	HighlightRequests atomic.Int64
	ActionRequests    atomic.Int64 // candidate selections and locks
	StatsRequests     atomic.Int64
	HealthRequests    atomic.Int64
	OtherRequests     atomic.Int64

	// Session pipeline
	Loads        atomic.Int64
	LoadsFound   atomic.Int64
	LoadsMissing atomic.Int64
	BackupUses   atomic.Int64
	StaleResults atomic.Int64

	// Cache performance
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
	NegativeCacheHits atomic.Int64

	// Rate limiting
	RateLimitAllowed  atomic.Int64
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Session open response times (microseconds)
	sessionResponseTime  atomic.Int64
	sessionResponseCount atomic.Int64
}

// Global stats instance
var global = New()

// New returns an empty Stats starting now.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	// Initialize min to a high value
	s.minResponseTime.Store(int64(^uint64(0) >> 1)) // Max int64
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch {
	case endpoint == "/session" || endpoint == "/lyrics":
		s.SessionRequests.Add(1)
	case endpoint == "/highlight":
		s.HighlightRequests.Add(1)
	case strings.HasPrefix(endpoint, "/candidates/") || strings.HasPrefix(endpoint, "/locks/"):
		s.ActionRequests.Add(1)
	case endpoint == "/stats":
		s.StatsRequests.Add(1)
	case endpoint == "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordNegativeCacheHit records a negative cache hit
func (s *Stats) RecordNegativeCacheHit() {
	s.NegativeCacheHits.Add(1)
}

// RecordLoad records a finished session load. found is false when no source
// had lyrics; backup marks lyrics served by a backup provider.
func (s *Stats) RecordLoad(found, backup bool) {
	s.Loads.Add(1)
	if !found {
		s.LoadsMissing.Add(1)
		return
	}
	s.LoadsFound.Add(1)
	if backup {
		s.BackupUses.Add(1)
	}
}

// RecordStale records a pipeline result discarded because the session moved on.
func (s *Stats) RecordStale() {
	s.StaleResults.Add(1)
}

// RecordRateLimit records whether a request passed the limiter
func (s *Stats) RecordRateLimit(allowed bool) {
	if allowed {
		s.RateLimitAllowed.Add(1)
	} else {
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, endpoint string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	// Update min/max atomically
	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if endpoint == "/session" {
		s.sessionResponseTime.Add(us)
		s.sessionResponseCount.Add(1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	misses := s.CacheMisses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == int64(^uint64(0)>>1) {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgSessionResponseTime returns the average time to open and load a session
func (s *Stats) AvgSessionResponseTime() time.Duration {
	count := s.sessionResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.sessionResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":     s.TotalRequests.Load(),
			"session":   s.SessionRequests.Load(),
			"highlight": s.HighlightRequests.Load(),
			"actions":   s.ActionRequests.Load(),
			"stats":     s.StatsRequests.Load(),
			"health":    s.HealthRequests.Load(),
			"other":     s.OtherRequests.Load(),
		},
		"loads": map[string]interface{}{
			"total":        s.Loads.Load(),
			"found":        s.LoadsFound.Load(),
			"missing":      s.LoadsMissing.Load(),
			"backup_used":  s.BackupUses.Load(),
			"stale_result": s.StaleResults.Load(),
		},
		"cache": map[string]interface{}{
			"hits":          s.CacheHits.Load(),
			"misses":        s.CacheMisses.Load(),
			"negative_hits": s.NegativeCacheHits.Load(),
			"hit_rate":      s.CacheHitRate(),
		},
		"rate_limiting": map[string]interface{}{
			"allowed":  s.RateLimitAllowed.Load(),
			"exceeded": s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":         s.AvgResponseTime().String(),
			"min":         s.MinResponseTime().String(),
			"max":         s.MaxResponseTime().String(),
			"avg_session": s.AvgSessionResponseTime().String(),
		},
	}
}
