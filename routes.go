package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Session endpoints
	router.HandleFunc("/session", openSession).Methods(http.MethodPost)
	router.HandleFunc("/lyrics", getLyrics).Methods(http.MethodGet)
	router.HandleFunc("/highlight", getHighlight).Methods(http.MethodGet)

	// Candidates and locks
	router.HandleFunc("/candidates", getCandidates).Methods(http.MethodGet)
	router.HandleFunc("/candidates/{id}/select", selectCandidate).Methods(http.MethodPost)
	router.HandleFunc("/locks/{id}", lockRequest).Methods(http.MethodPost)

	router.HandleFunc("/notifications", getNotifications).Methods(http.MethodGet)

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheStatus).Methods(http.MethodGet)
	router.HandleFunc("/cache/backup", backupCache).Methods(http.MethodPost)
	router.HandleFunc("/cache/restore", restoreCache).Methods(http.MethodPost)
	router.HandleFunc("/cache/clear", clearCache).Methods(http.MethodPost)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)
	router.Handle("/metrics", promhttp.Handler())

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods(http.MethodPost)

	router.HandleFunc("/test-notifications", testNotifications).Methods(http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
