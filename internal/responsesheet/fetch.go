package responsesheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves response-sheet content by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultFetchMaxBytes = 10 << 20
)

// HTTPFetcher performs a single GET with no retry.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultFetchMaxBytes
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", "scorecheck/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	// One byte past the cap distinguishes "exactly maxBytes" from truncated.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("%w: response exceeds %d bytes", ErrFetch, f.maxBytes)
	}
	return string(body), nil
}
