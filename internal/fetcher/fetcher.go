// Package fetcher performs the network GET for a single source.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"newshub/internal/model"
)

const (
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	acceptRSS   = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
	acceptHTML  = "text/html, application/xhtml+xml, application/xml;q=0.9, */*;q=0.8"
	maxBodySize = 5 * 1024 * 1024
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads raw feed or page content. It never retries; failures
// are reported upward and surface in the owning source's summary.
type Fetcher struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{
		client:  client,
		timeout: 15 * time.Second,
	}
}

// SetTimeout overrides the default per-request timeout.
func (f *Fetcher) SetTimeout(d time.Duration) {
	f.timeout = d
}

// Fetch downloads the raw body from url, with an Accept header tuned to
// the source's declared type. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string, typ model.SourceType) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if typ == model.TypeHTML {
		req.Header.Set("Accept", acceptHTML)
	} else {
		req.Header.Set("Accept", acceptRSS)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
