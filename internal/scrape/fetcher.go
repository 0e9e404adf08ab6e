package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/oivindhaug/resultatbank/internal/config"
)

const (
	requestTimeout = 15 * time.Second
	userAgent      = "resultatbank/1.0"
)

// Fetcher retrieves per-year medal pages. Requests pass through a rate
// limiter so a full-history run stays polite to the federation's server,
// and transient failures are retried with exponential backoff.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxRetries uint64
}

// NewFetcher creates a fetcher from scrape configuration.
func NewFetcher(cfg config.ScrapeConfig) *Fetcher {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Fetcher{
		client:     &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    cfg.BaseURL,
		maxRetries: uint64(cfg.MaxRetries), //nolint:gosec // G115: validated non-negative
	}
}

// NewFetcherWithHTTPClient creates a fetcher with a custom HTTP client
// (for testing).
func NewFetcherWithHTTPClient(cfg config.ScrapeConfig, client *http.Client) *Fetcher {
	f := NewFetcher(cfg)
	f.client = client
	return f
}

// FetchYear downloads one year's medal page. Server errors and transport
// failures are retried; a 4xx response is permanent and fails immediately.
func (f *Fetcher) FetchYear(ctx context.Context, year int) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/medaljer/%d", f.baseURL, year)

	var body []byte
	backoff := retry.WithMaxRetries(f.maxRetries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("fetching %s: %w", reqURL, err))
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			return retry.RetryableError(fmt.Errorf("server error %d from %s", resp.StatusCode, reqURL))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("reading response body: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
