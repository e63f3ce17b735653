package notifier

import (
	"fmt"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	// Default cooldown between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
)

// AlertHandler turns operator-relevant events into notifications
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time // last alert time per event type
	cooldownDuration time.Duration
	minSeverity      Severity
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
	// MinSeverity drops less severe events. Default: warning
	MinSeverity Severity
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}
	minSeverity := config.MinSeverity
	if minSeverity == "" {
		minSeverity = SeverityWarning
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
		minSeverity:      minSeverity,
	}
}

// Start subscribes the handler to bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogNotifier, h.cooldownDuration, len(h.notifiers))
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// HandleEvent formats and sends one event, subject to severity and cooldown.
func (h *AlertHandler) HandleEvent(event *Event) {
	if severityRank(event.Severity) < severityRank(h.minSeverity) {
		return
	}

	subject, message := FormatAlert(event)
	if subject == "" {
		return
	}

	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogNotifier, event.Type)
		return
	}

	h.sendAlert(subject, message)
}

// shouldAlert checks if we should send an alert based on cooldown
func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	lastAlert, exists := h.cooldowns[eventType]
	if !exists || time.Since(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = time.Now()
		return true
	}
	return false
}

// FormatAlert renders an event as a notification. Unknown events yield an
// empty subject.
func FormatAlert(event *Event) (subject, message string) {
	str := func(key string) string {
		if v, ok := event.Data[key].(string); ok {
			return v
		}
		return ""
	}
	num := func(key string) int {
		if v, ok := event.Data[key].(int); ok {
			return v
		}
		return 0
	}

	switch event.Type {
	case EventCircuitBreakerOpen:
		subject = "Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %s circuit breaker has tripped after %d consecutive failures.\n\n"+
				"Calls will be skipped for %s.",
			str("name"), num("failures"), str("cooldown"))

	case EventAllProvidersFailed:
		subject = "Lyrics Providers Exhausted"
		message = fmt.Sprintf("All %d providers failed for %q.", num("attempts"), str("song"))

	case EventTranslationExhausted:
		subject = "Translation Service Refused"
		message = fmt.Sprintf("The translation service refused requests: %s", str("detail"))

	case EventServerStartupFailed:
		subject = "Server Startup Failed"
		message = fmt.Sprintf("Component %s failed to start: %s", str("component"), str("error"))

	case EventHighFailureRate:
		subject = "High Failure Rate"
		message = fmt.Sprintf("The %s circuit breaker has seen %d of %d allowed failures.",
			str("name"), num("failures"), num("threshold"))

	case EventBackupLyricsServed:
		subject = "Backup Lyrics Served"
		message = fmt.Sprintf("Lyrics for %q came from %s.", str("song"), str("provider"))

	case EventTranslationFailed:
		subject = "Translation Failed"
		message = fmt.Sprintf("Could not translate %q to %s: %s", str("song"), str("lang"), str("error"))

	case EventCacheWriteFailed:
		subject = "Cache Write Failed"
		message = fmt.Sprintf("Writing %s failed: %s", str("key"), str("error"))

	case EventSelectionFailed:
		subject = "Selection Failed"
		message = fmt.Sprintf("Choosing candidate %s for %q failed: %s", str("candidate"), str("song"), str("error"))

	case EventLockFailed:
		subject = "Lock Failed"
		message = fmt.Sprintf("Request %s for %q was refused: %s", str("request"), str("song"), str("error"))

	case EventCircuitBreakerRecovered:
		subject = "Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s circuit breaker is closed again.", str("name"))

	case EventServerStarted:
		subject = "Server Started"
		message = fmt.Sprintf("Listening on port %s.", str("port"))

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("%d entries removed.", num("entries"))

	case EventCandidateSelected:
		subject = "Candidate Selected"
		message = fmt.Sprintf("Candidate %s chosen for %q.", str("candidate"), str("song"))

	case EventLyricsLocked:
		subject = "Lyrics Locked"
		message = fmt.Sprintf("Request %s locked the %s lyrics of %q.", str("request"), str("target"), str("song"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

// sendAlert sends the alert through all configured notifiers
func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Debugf("%s No notifiers configured, skipping alert: %s", logcolors.LogNotifier, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogNotifier, subject)

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogNotifier, TypeName(n), err)
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		log.Infof("%s Alert sent successfully via %d/%d notifiers", logcolors.LogNotifier, successCount, len(h.notifiers))
	}
}

// ResetCooldown manually resets the cooldown for a specific event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}
