package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client performs HTTP calls for providers and maps failures onto the error
// taxonomy. The zero value uses http.DefaultClient.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Header    http.Header
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// GetJSON issues a GET request and decodes a JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return Decode(body, out)
}

// PostJSON sends payload as JSON and decodes the response into out. out may be nil.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out interface{}) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	body, err := c.Do(ctx, http.MethodPost, url, buf)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(body, out)
}

// GetText issues a GET request and returns the body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Do performs the request and returns the body of a 2xx response.
func (c *Client) Do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	status, body, err := c.Send(ctx, method, url, payload)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", ErrNotFound, status)
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: status %d: %s", ErrNetwork, status, snippet(body))
	}

	return body, nil
}

// Send performs the request and returns status and body whatever the status.
// Only transport failures are errors. Services that answer errors as JSON
// bodies are read through Send.
func (c *Client) Send(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", classify(ctx, err))
	}

	return resp.StatusCode, body, nil
}

// SendJSON encodes payload (when non-nil), sends it, and decodes whatever
// body comes back into out regardless of status.
func (c *Client) SendJSON(ctx context.Context, method, url string, payload, out interface{}) (int, error) {
	var buf []byte
	if payload != nil {
		var err error
		buf, err = json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	status, body, err := c.Send(ctx, method, url, buf)
	if err != nil {
		return status, err
	}
	return status, Decode(body, out)
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Decode unmarshals body, reporting failures as ErrMalformedResponse.
func Decode(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
