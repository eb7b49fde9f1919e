// Package workflow queries the external workflow-automation endpoint
// for additional search results. The endpoint is a black box: its
// failures and payload quirks are absorbed at this boundary so the rest
// of the service only ever sees a flat record list.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"filmseek/movie"
)

const maxBodySize = 10 << 20 // 10MB cap on endpoint responses

// Client fetches results from the workflow webhook URL.
type Client struct {
	url     string
	client  *http.Client
	retries uint
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRetries sets transient-failure retries. Default: 2.
func WithRetries(n uint) Option {
	return func(c *Client) { c.retries = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the webhook URL. An empty URL yields a
// client whose Fetch always returns no results.
func New(webhookURL string, opts ...Option) *Client {
	c := &Client{
		url:     webhookURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 2,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch queries the endpoint with query and max_results parameters and
// normalizes whatever shape comes back. Callers treat any error as zero
// external results; primary-site results are never blocked on this.
func (c *Client) Fetch(ctx context.Context, query string, maxResults int) ([]movie.Record, error) {
	if c.url == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s?query=%s&max_results=%d", c.url, url.QueryEscape(query), maxResults)

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("workflow: new request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.client.Do(req)
			if err != nil {
				return fmt.Errorf("workflow: request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("workflow: status %d", resp.StatusCode)
			}
			body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
			if err != nil {
				return fmt.Errorf("workflow: read body: %w", err)
			}
			return nil
		},
		retry.Attempts(c.retries+1),
		retry.Context(ctx),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	records := Normalize(body)
	c.logger.Debug("workflow: fetched", "query", query, "records", len(records))
	return records, nil
}
