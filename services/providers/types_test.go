package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lyrics-sync-go/lyrics/lrc"
)

func TestResult_Empty(t *testing.T) {
	tests := []struct {
		name     string
		result   *Result
		expected bool
	}{
		{"Nil result", nil, true},
		{"Blank text", &Result{LyricsText: "  \n"}, true},
		{"Text", &Result{LyricsText: "la"}, false},
		{"Dynamic only", &Result{Dynamic: []lrc.DynamicLine{{StartMs: 1, HasTime: true}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Empty(); got != tt.expected {
				t.Errorf("Empty() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Nil", nil, "success"},
		{"Timeout", fmt.Errorf("x: %w", ErrTimeout), "timeout"},
		{"Deadline", context.DeadlineExceeded, "timeout"},
		{"Not found", NewProviderError("lrclib", "no hits", ErrNotFound), "not_found"},
		{"Malformed", fmt.Errorf("%w: bad json", ErrMalformedResponse), "malformed"},
		{"Contract", ErrContractViolation, "contract"},
		{"Network", fmt.Errorf("%w: refused", ErrNetwork), "network"},
		{"Canceled", context.Canceled, "canceled"},
		{"Other", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.expected {
				t.Errorf("Kind() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		message  string
		err      error
		expected string
	}{
		{
			name:     "Without wrapped error",
			provider: "lrclib",
			message:  "search failed",
			err:      nil,
			expected: "lrclib: search failed",
		},
		{
			name:     "With wrapped error",
			provider: "lrchub",
			message:  "API request failed",
			err:      errors.New("connection timeout"),
			expected: "lrchub: API request failed: connection timeout",
		},
		{
			name:     "Empty message with wrapped error",
			provider: "github",
			message:  "",
			err:      errors.New("underlying error"),
			expected: "github: : underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := &ProviderError{
				Provider: tt.provider,
				Message:  tt.message,
				Err:      tt.err,
			}
			result := pe.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	t.Run("With wrapped error", func(t *testing.T) {
		pe := NewProviderError("lrchub", "operation failed", ErrTimeout)

		if pe.Unwrap() != ErrTimeout {
			t.Errorf("Unwrap() = %v, expected %v", pe.Unwrap(), ErrTimeout)
		}
		if !errors.Is(pe, ErrTimeout) {
			t.Error("errors.Is should find the underlying error")
		}
	})

	t.Run("Without wrapped error", func(t *testing.T) {
		pe := NewProviderError("lrchub", "no underlying", nil)
		if pe.Unwrap() != nil {
			t.Errorf("Unwrap() = %v, expected nil", pe.Unwrap())
		}
	})
}

func TestProviderError_ErrorsAs(t *testing.T) {
	var err error = fmt.Errorf("wrapped: %w", NewProviderError("lrclib", "test error", nil))

	var target *ProviderError
	if !errors.As(err, &target) {
		t.Fatal("errors.As should match ProviderError")
	}
	if target.Provider != "lrclib" {
		t.Errorf("Provider = %q, expected %q", target.Provider, "lrclib")
	}
}
