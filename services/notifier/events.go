package notifier

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventCircuitBreakerOpen   EventType = "circuit_breaker_open"
	EventServerStartupFailed  EventType = "server_startup_failed"
	EventAllProvidersFailed   EventType = "all_providers_failed"
	EventTranslationExhausted EventType = "translation_exhausted"

	// Warning events
	EventHighFailureRate    EventType = "high_failure_rate"
	EventBackupLyricsServed EventType = "backup_lyrics_served"
	EventTranslationFailed  EventType = "translation_failed"
	EventCacheWriteFailed   EventType = "cache_write_failed"
	EventSelectionFailed    EventType = "selection_failed"
	EventLockFailed         EventType = "lock_failed"

	// Info events
	EventCircuitBreakerRecovered EventType = "circuit_breaker_recovered"
	EventServerStarted           EventType = "server_started"
	EventCacheCleared            EventType = "cache_cleared"
	EventCandidateSelected       EventType = "candidate_selected"
	EventLyricsLocked            EventType = "lyrics_locked"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

// EventBus manages event publishing and subscription
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler // handlers that receive all events
	mu          sync.RWMutex
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers:    make(map[EventType][]EventHandler),
		allHandlers: make([]EventHandler, 0),
	}
}

// Global event bus instance
var globalBus *EventBus
var busOnce sync.Once

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish sends an event to all subscribed handlers. Handlers run on their
// own goroutines.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// Helper functions for publishing common events

// PublishCircuitBreakerOpen publishes a circuit breaker open event
func PublishCircuitBreakerOpen(name string, failures int, cooldown time.Duration) {
	event := NewEvent(EventCircuitBreakerOpen, SeverityCritical,
		"Circuit breaker has opened due to consecutive failures").
		WithData("name", name).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String())
	GetEventBus().Publish(event)
}

// PublishCircuitBreakerRecovered publishes a circuit breaker recovery event
func PublishCircuitBreakerRecovered(name string) {
	event := NewEvent(EventCircuitBreakerRecovered, SeverityInfo,
		"Circuit breaker has recovered and is operational").
		WithData("name", name)
	GetEventBus().Publish(event)
}

// PublishHighFailureRate publishes a high failure rate warning
func PublishHighFailureRate(name string, failures, threshold int) {
	event := NewEvent(EventHighFailureRate, SeverityWarning,
		"High failure rate detected, circuit breaker may trip soon").
		WithData("name", name).
		WithData("failures", failures).
		WithData("threshold", threshold)
	GetEventBus().Publish(event)
}

// PublishBackupLyricsServed tells listeners the lyrics came from the
// last-resort source.
func PublishBackupLyricsServed(songKey, provider string) {
	event := NewEvent(EventBackupLyricsServed, SeverityWarning,
		"Lyrics were loaded from the backup source").
		WithData("song", songKey).
		WithData("provider", provider)
	GetEventBus().Publish(event)
}

// PublishAllProvidersFailed publishes when no provider returned lyrics.
func PublishAllProvidersFailed(songKey string, attempts int) {
	event := NewEvent(EventAllProvidersFailed, SeverityCritical,
		"No lyrics provider returned lyrics").
		WithData("song", songKey).
		WithData("attempts", attempts)
	GetEventBus().Publish(event)
}

// PublishTranslationFailed publishes when a language could not be translated.
func PublishTranslationFailed(songKey, lang string, err error) {
	event := NewEvent(EventTranslationFailed, SeverityWarning,
		"Translation failed, showing original lyrics").
		WithData("song", songKey).
		WithData("lang", lang).
		WithData("error", err.Error())
	GetEventBus().Publish(event)
}

// PublishTranslationExhausted publishes when the translator reports a quota
// or authorization problem.
func PublishTranslationExhausted(statusDetail string) {
	event := NewEvent(EventTranslationExhausted, SeverityCritical,
		"Translation service refused requests").
		WithData("detail", statusDetail)
	GetEventBus().Publish(event)
}

// PublishCacheWriteFailed publishes when a cache write fails
func PublishCacheWriteFailed(key string, err error) {
	event := NewEvent(EventCacheWriteFailed, SeverityWarning,
		"Cache write failed").
		WithData("key", key).
		WithData("error", err.Error())
	GetEventBus().Publish(event)
}

// PublishCacheCleared publishes when cache is cleared
func PublishCacheCleared(entries int) {
	event := NewEvent(EventCacheCleared, SeverityInfo,
		"Cache has been cleared").
		WithData("entries", entries)
	GetEventBus().Publish(event)
}

// PublishCandidateSelected publishes when a listener picks a candidate.
func PublishCandidateSelected(songKey, candidateID string) {
	event := NewEvent(EventCandidateSelected, SeverityInfo,
		"Lyrics candidate selected").
		WithData("song", songKey).
		WithData("candidate", candidateID)
	GetEventBus().Publish(event)
}

// PublishLyricsLocked publishes when a lock request is accepted.
func PublishLyricsLocked(songKey, request string, target string) {
	event := NewEvent(EventLyricsLocked, SeverityInfo,
		"Lyrics locked").
		WithData("song", songKey).
		WithData("request", request).
		WithData("target", target)
	GetEventBus().Publish(event)
}

// PublishSelectionFailed publishes when the remote rejects or misses a selection.
func PublishSelectionFailed(songKey, candidateID string, err error) {
	event := NewEvent(EventSelectionFailed, SeverityWarning,
		"Candidate selection failed").
		WithData("song", songKey).
		WithData("candidate", candidateID).
		WithData("error", err.Error())
	GetEventBus().Publish(event)
}

// PublishLockFailed publishes when a lock request is refused.
func PublishLockFailed(songKey, request string, err error) {
	event := NewEvent(EventLockFailed, SeverityWarning,
		"Lock request failed").
		WithData("song", songKey).
		WithData("request", request).
		WithData("error", err.Error())
	GetEventBus().Publish(event)
}

// PublishServerStarted publishes when server starts successfully
func PublishServerStarted(port string, providers []string) {
	event := NewEvent(EventServerStarted, SeverityInfo,
		"Server started successfully").
		WithData("port", port).
		WithData("providers", providers)
	GetEventBus().Publish(event)
}

// PublishServerStartupFailed publishes when server fails to start
func PublishServerStartupFailed(component string, err error) {
	event := NewEvent(EventServerStartupFailed, SeverityCritical,
		"Server failed to start").
		WithData("component", component).
		WithData("error", err.Error())
	GetEventBus().Publish(event)
}
