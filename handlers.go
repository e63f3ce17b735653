package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/services/notifier"
	"lyrics-sync-go/services/providers"
	"lyrics-sync-go/session"
	"lyrics-sync-go/stats"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxSessionBody = 64 << 10

// statusFor maps session errors onto HTTP statuses. Remote failures that
// reach a handler are the lyrics service refusing an action.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, candidates.ErrUnknownCandidate),
		errors.Is(err, candidates.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotLoaded),
		errors.Is(err, session.ErrStale),
		errors.Is(err, session.ErrAlreadyLocked):
		return http.StatusConflict
	case errors.Is(err, candidates.ErrEmptyCandidate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNoSelector):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func cacheStatus(r session.Result) string {
	switch {
	case r.Kind != session.Found:
		return ""
	case r.Cached:
		return "HIT"
	default:
		return "MISS"
	}
}

// openSession makes the posted song current and loads its lyrics.
func openSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSessionBody)).Decode(&req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, "Request body must be JSON: "+err.Error())
		return
	}

	id := session.Identity{
		Title:   strings.TrimSpace(req.Title),
		Artist:  strings.TrimSpace(req.Artist),
		VideoID: strings.TrimSpace(req.VideoID),
		URL:     strings.TrimSpace(req.URL),
	}
	if id.VideoID == "" && id.URL != "" {
		id.VideoID = providers.VideoIDFromURL(id.URL)
	}
	if !id.Valid() {
		Respond(w, r).Fail(http.StatusUnprocessableEntity, "Song title, video id or url not provided")
		return
	}

	gen := manager.Open(id)
	res, err := manager.Load(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrStale) {
			log.Infof("%s %q was replaced while loading", logcolors.LogSession, id.Key())
		} else {
			log.Warnf("%s Load of %q failed: %v", logcolors.LogSession, id.Key(), err)
		}
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}

	var runID string
	if snap, err := manager.Snapshot(); err == nil && snap.Generation == gen {
		runID = snap.RunID
	}

	resp := Respond(w, r).SetProvider(res.Provider).SetRun(runID).SetCacheStatus(cacheStatus(res))
	body := LyricsResponse{Song: id, RunID: runID, Result: res}
	if res.Kind == session.NotFound {
		resp.Error(http.StatusNotFound, body)
		return
	}
	resp.JSON(body)
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	snap, err := manager.Snapshot()
	if err != nil {
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}
	Respond(w, r).SetProvider(snap.Result.Provider).SetRun(snap.RunID).SetCacheStatus(cacheStatus(snap.Result)).JSON(lyricsResponse(snap))
}

// getHighlight samples the committed lyrics at ?t= seconds.
func getHighlight(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("t")
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		Respond(w, r).Fail(http.StatusBadRequest, fmt.Sprintf("Invalid playback time %q", raw))
		return
	}

	state, err := manager.Highlight(t)
	if err != nil {
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}
	Respond(w, r).JSON(state)
}

func getCandidates(w http.ResponseWriter, r *http.Request) {
	snap, err := manager.Snapshot()
	if err != nil {
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}
	Respond(w, r).SetRun(snap.RunID).JSON(candidatesResponse(snap))
}

func selectCandidate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := manager.SelectCandidate(r.Context(), id); err != nil {
		log.Warnf("%s Selecting %s: %v", logcolors.LogCandidates, id, err)
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}

	snap, err := manager.Snapshot()
	if err != nil {
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}
	Respond(w, r).SetRun(snap.RunID).JSON(map[string]interface{}{
		"message":    "Candidate applied",
		"lyrics":     lyricsResponse(snap),
		"candidates": candidatesResponse(snap),
	})
}

func lockRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := manager.Lock(r.Context(), id); err != nil {
		log.Warnf("%s Locking %s: %v", logcolors.LogLock, id, err)
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}

	snap, err := manager.Snapshot()
	if err != nil {
		Respond(w, r).Fail(statusFor(err), err.Error())
		return
	}
	Respond(w, r).SetRun(snap.RunID).JSON(map[string]interface{}{
		"message":    "Lock recorded",
		"candidates": candidatesResponse(snap),
	})
}

// getNotifications lists recent events, newest first. ?severity= filters.
func getNotifications(w http.ResponseWriter, r *http.Request) {
	events := recorder.Recent(notifier.Severity(r.URL.Query().Get("severity")))
	Respond(w, r).JSON(map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

func cacheStoreStatus(ctx context.Context) CacheStatusResponse {
	out := CacheStatusResponse{HitRate: stats.Get().CacheHitRate()}
	if lyricsStore == nil {
		out.Error = "cache not initialized"
		return out
	}
	st, err := lyricsStore.Stats(ctx)
	if err != nil {
		out.Error = err.Error()
	}
	out.Store = st
	return out
}

func getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()
	snapshot["cache_storage"] = cacheStoreStatus(r.Context())
	if providerChain != nil {
		snapshot["providers"] = providerChain.Names()
	}
	Respond(w, r).JSON(snapshot)
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
	}

	if providerChain == nil || len(providerChain.Names()) == 0 {
		health["status"] = "unhealthy"
		health["error"] = "no lyrics providers configured"
	} else {
		health["providers"] = providerChain.Names()
	}

	if cs := cacheStoreStatus(r.Context()); cs.Error != "" {
		health["cache_error"] = cs.Error
		if health["status"] == "ok" {
			health["status"] = "degraded"
		}
	} else {
		health["cache_backend"] = cs.Store.Backend
	}

	if b := breakerStatus(translateBreaker); b != nil {
		health["translation"] = b
		if b.State == circuitbreaker.StateOpen && health["status"] == "ok" {
			health["status"] = "degraded"
		}
	}

	if manager != nil {
		if snap, err := manager.Snapshot(); err == nil {
			health["session"] = map[string]interface{}{
				"song":  snap.Identity.Key(),
				"state": snap.Result.Kind,
			}
		}
	}

	Respond(w, r).JSON(health)
}

func getCacheStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(cacheStoreStatus(r.Context()))
}

func backupCache(w http.ResponseWriter, r *http.Request) {
	bolt, ok := lyricsStore.(*cache.BoltStore)
	if !ok {
		Respond(w, r).Fail(http.StatusNotImplemented, "Backups are only supported by the bolt backend")
		return
	}

	path, err := bolt.Backup()
	if err != nil {
		log.Errorf("%s Backup failed: %v", logcolors.LogCache, err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to backup cache: %v", err))
		return
	}

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Cache backed up successfully",
		"backup":  path,
	})
}

func restoreCache(w http.ResponseWriter, r *http.Request) {
	bolt, ok := lyricsStore.(*cache.BoltStore)
	if !ok {
		Respond(w, r).Fail(http.StatusNotImplemented, "Restore is only supported by the bolt backend")
		return
	}

	name := r.URL.Query().Get("backup")
	if name == "" {
		Respond(w, r).Fail(http.StatusBadRequest, "Missing 'backup' query parameter")
		return
	}

	if err := bolt.Restore(name); err != nil {
		log.Errorf("%s Failed to restore from backup %s: %v", logcolors.LogCache, name, err)
		Respond(w, r).Fail(http.StatusBadRequest, fmt.Sprintf("Failed to restore from backup: %v", err))
		return
	}

	log.Infof("%s Cache restored from backup: %s", logcolors.LogCache, name)
	Respond(w, r).JSON(map[string]interface{}{
		"message":       "Cache restored successfully",
		"restored_from": name,
		"cache":         cacheStoreStatus(r.Context()),
	})
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	n, err := lyricsStore.Clear(r.Context())
	if err != nil {
		log.Errorf("%s Clear failed: %v", logcolors.LogCache, err)
		Respond(w, r).Fail(http.StatusInternalServerError, fmt.Sprintf("Failed to clear cache: %v", err))
		return
	}

	notifier.PublishCacheCleared(n)
	log.Infof("%s Cleared %d entries", logcolors.LogCache, n)
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Cache cleared",
		"cleared": n,
	})
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	b := breakerStatus(translateBreaker)
	if b == nil {
		Respond(w, r).Fail(http.StatusNotFound, "Machine translation is not enabled")
		return
	}
	Respond(w, r).JSON(b)
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if translateBreaker == nil {
		Respond(w, r).Fail(http.StatusNotFound, "Machine translation is not enabled")
		return
	}
	translateBreaker.Reset()
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
		"breaker": breakerStatus(translateBreaker),
	})
}

// testNotifications sends a test message through every configured notifier.
func testNotifications(w http.ResponseWriter, r *http.Request) {
	if len(notifiers) == 0 {
		Respond(w, r).Error(http.StatusBadRequest, map[string]interface{}{
			"error": "No notifiers configured",
			"help": map[string]string{
				"telegram": "Set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID",
				"email":    "Set SMTP_HOST, SMTP_USERNAME, SMTP_PASSWORD, NOTIFIER_EMAIL_FROM and NOTIFIER_EMAIL_TO",
				"ntfy":     "Set NTFY_TOPIC",
			},
		})
		return
	}

	var song string
	if snap, err := manager.Snapshot(); err == nil {
		song = snap.Identity.Key()
	}
	subject := "🧪 Test: lyrics-sync alerts"
	message := fmt.Sprintf("Your notification setup is working.\n\nTime: %s\nCurrent song: %s\nRecent warnings: %d",
		time.Now().Format("2006-01-02 15:04:05"), orNone(song), len(recorder.Recent(notifier.SeverityWarning)))

	results := make(map[string]interface{})
	failed := 0
	for _, n := range notifiers {
		name := notifier.TypeName(n)
		if err := n.Send(subject, message); err != nil {
			results[name] = map[string]string{"status": "failed", "error": err.Error()}
			failed++
			log.Errorf("%s Test via %s failed: %v", logcolors.LogNotifier, name, err)
			continue
		}
		results[name] = map[string]string{"status": "success"}
	}

	body := map[string]interface{}{
		"message":    "Test notifications sent",
		"total":      len(notifiers),
		"successful": len(notifiers) - failed,
		"failed":     failed,
		"results":    results,
	}
	if failed > 0 {
		Respond(w, r).Error(http.StatusPartialContent, body)
		return
	}
	Respond(w, r).JSON(body)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "POST /session with {title, artist, videoId, url} to load lyrics, then poll /highlight?t=SECONDS",
		"endpoints": map[string]string{
			"POST /session":                "Open a song and load its lyrics",
			"GET /lyrics":                  "Lyrics of the current song",
			"GET /highlight?t=":            "Active line at a playback time",
			"GET /candidates":              "Alternate lyrics and lock requests",
			"POST /candidates/{id}/select": "Use an alternate lyrics candidate",
			"POST /locks/{id}":             "Finalize lyrics on the lyrics service",
			"GET /notifications?severity=": "Recent events",
			"GET /stats":                   "Server statistics",
			"GET /metrics":                 "Prometheus metrics",
			"GET /health":                  "Health status",
			"GET /cache":                   "Cache backend status",
			"POST /cache/backup":           "Back up the bolt cache",
			"POST /cache/restore?backup=":  "Restore the bolt cache",
			"POST /cache/clear":            "Clear the cache",
			"GET /circuit-breaker":         "Translation circuit breaker",
			"POST /circuit-breaker/reset":  "Close the translation circuit breaker",
			"POST /test-notifications":     "Send a test alert",
		},
	})
}
