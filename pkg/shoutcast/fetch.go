package shoutcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxStatsBytes bounds the stats page body.
const maxStatsBytes = 1 << 20

const defaultUserAgent = "celestiaradio/1.0"

// StatsClient fetches stats pages.
type StatsClient struct {
	client    *http.Client
	userAgent string
}

// NewStatsClient returns a client whose requests give up after timeout.
// A zero timeout waits forever.
func NewStatsClient(timeout time.Duration, userAgent string) *StatsClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &StatsClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch performs a single GET of rawURL and returns the whole body as text.
// It does not retry. Every failure wraps ErrNetwork.
func (c *StatsClient) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url: %v", ErrNetwork, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", ErrNetwork, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status code: %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatsBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if len(body) > maxStatsBytes {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrNetwork, maxStatsBytes)
	}

	return string(body), nil
}
