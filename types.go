package main

import (
	"lyrics-sync-go/cache"
	"lyrics-sync-go/circuitbreaker"
	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/session"
)

// SessionRequest is the body of POST /session
type SessionRequest struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	VideoID string `json:"videoId"`
	URL     string `json:"url"`
}

// LyricsResponse is the current song and its lyrics
type LyricsResponse struct {
	Song  session.Identity `json:"song"`
	RunID string           `json:"runId"`
	session.Result
}

// CandidatesResponse describes the candidate and lock menus
type CandidatesResponse struct {
	Candidates  candidates.CandidateState `json:"candidates"`
	Locks       candidates.LockState      `json:"locks"`
	Config      candidates.Config         `json:"config"`
	Affordances candidates.Affordances    `json:"affordances"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// CacheStatusResponse is the cache section of /stats and /cache
type CacheStatusResponse struct {
	Store   cache.Stats `json:"store"`
	Error   string      `json:"error,omitempty"`
	HitRate float64     `json:"hit_rate_percent"`
}

// BreakerStatus is one circuit breaker in /health and /circuit-breaker
type BreakerStatus struct {
	circuitbreaker.Snapshot
	RetryIn string `json:"retry_in,omitempty"`
}

func lyricsResponse(snap session.Snapshot) LyricsResponse {
	return LyricsResponse{Song: snap.Identity, RunID: snap.RunID, Result: snap.Result}
}

func candidatesResponse(snap session.Snapshot) CandidatesResponse {
	return CandidatesResponse{
		Candidates:  snap.Candidates,
		Locks:       snap.Locks,
		Config:      snap.Config,
		Affordances: snap.Affordances,
	}
}

func breakerStatus(cb *circuitbreaker.CircuitBreaker) *BreakerStatus {
	if cb == nil {
		return nil
	}
	s := BreakerStatus{Snapshot: cb.Snapshot()}
	if s.Snapshot.RetryIn > 0 {
		s.RetryIn = s.Snapshot.RetryIn.String()
	}
	return &s
}
