package providers

import (
	"context"
	"errors"
	"net"
	"strings"

	"lyrics-sync-go/lyrics/candidates"
	"lyrics-sync-go/lyrics/lrc"
)

// Request identifies the song to fetch lyrics for. SourceURL and SourceID
// are the media page URL and its stable id when known.
type Request struct {
	Track     string `json:"track"`
	Artist    string `json:"artist"`
	SourceURL string `json:"sourceUrl,omitempty"`
	SourceID  string `json:"sourceId,omitempty"`
}

// Result is the uniform result from any lyrics provider
type Result struct {
	// LyricsText is LRC or plain text
	LyricsText string `json:"lyrics"`

	// Dynamic is character-timed data, index-parallel to the parsed LyricsText
	Dynamic []lrc.DynamicLine `json:"dynamicLines,omitempty"`

	HasSelectCandidates bool                   `json:"hasSelectCandidates,omitempty"`
	CandidatesURL       string                 `json:"candidatesUrl,omitempty"`
	Candidates          []candidates.Candidate `json:"candidates,omitempty"`
	Config              candidates.Config      `json:"config"`
	Requests            []candidates.Request   `json:"requests,omitempty"`

	// Provider is the name of the provider that returned these lyrics
	Provider string `json:"provider"`

	// Backup is set when the lyrics came from a last-resort source the
	// listener should be told about
	Backup bool `json:"backup,omitempty"`
}

// Empty reports whether the result carries no lyrics at all.
func (r *Result) Empty() bool {
	return r == nil || (strings.TrimSpace(r.LyricsText) == "" && len(r.Dynamic) == 0)
}

// Error taxonomy shared by every external collaborator.
var (
	ErrNetwork           = errors.New("network failure")
	ErrTimeout           = errors.New("timeout")
	ErrMalformedResponse = errors.New("malformed response")
	ErrContractViolation = errors.New("contract violation")
	ErrNotFound          = errors.New("not found")
)

// Kind returns a short label for err suitable for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrContractViolation):
		return "contract"
	case errors.Is(err, ErrNetwork), isNetError(err):
		return "network"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func isNetError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}
