package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slowlooking/pkg/tracker"
	"slowlooking/pkg/version"
)

var (
	defaultUserAgent = fmt.Sprintf("SlowLooking/%s", version.Version)
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// StatusError is returned for HTTP responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client performs provider HTTP calls and tracks their outcome. Each call is
// a single attempt; callers decide whether to try again.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
}

// New creates a new Client.
func New(t *tracker.Tracker, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tracker:    t,
	}
}

// Post performs a POST request with the given content type.
func (c *Client) Post(ctx context.Context, u string, body []byte, contentType string) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, body, map[string]string{"Content-Type": contentType})
}

// PostWithHeaders performs a POST request with custom headers.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, u, body, headers)
}

// GetWithHeaders performs a GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers)
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsedURL.Host)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	uaMatch := false
	for k, v := range headers {
		req.Header.Set(k, v)
		if http.CanonicalHeaderKey(k) == "User-Agent" {
			uaMatch = true
		}
	}
	if !uaMatch {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	out, err := c.execute(req)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, err
	}
	c.tracker.TrackAPISuccess(provider)
	return out, nil
}

func (c *Client) execute(req *http.Request) ([]byte, error) {
	slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Warn("API error", "status", resp.StatusCode, "url", req.URL.Redacted())
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	return body, nil
}

func normalizeProvider(host string) string {
	switch {
	case strings.HasSuffix(host, "anthropic.com"):
		return "anthropic"
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini"
	case strings.HasSuffix(host, "openai.com"):
		return "openai"
	}
	return host
}
