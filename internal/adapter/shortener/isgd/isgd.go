// Package isgd delegates URL shortening to the public is.gd service.
package isgd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://is.gd/create.php"
	defaultTimeout  = 10 * time.Second
	userAgent       = "Mozilla/5.0 (compatible; shortlink/1.0)"
	maxBodySize     = 4 << 10
)

// ErrRejected is returned when is.gd answers with an error message instead of a short URL.
var ErrRejected = errors.New("is.gd rejected the url")

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New returns a client for endpoint. An empty endpoint means DefaultEndpoint
// and a non-positive timeout means ten seconds.
func New(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Shorten asks is.gd for a short URL pointing to originalURL.
func (c *Client) Shorten(ctx context.Context, originalURL string) (string, error) {
	const op = "adapter.shortener.isgd.Client.Shorten"

	q := url.Values{}
	q.Set("format", "simple")
	q.Set("url", originalURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	text := strings.TrimSpace(string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, text)
	}

	if text == "" || strings.HasPrefix(text, "Error") {
		return "", fmt.Errorf("%s: %w: %s", op, ErrRejected, text)
	}

	return text, nil
}
