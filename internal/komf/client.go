// Package komf triggers metadata enrichment on a Komf instance. All
// operations are best effort: the reader keeps working when Komf is
// down or absent.
package komf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const requestAttempts = 2

// Client talks to one Komf server.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(serverURL string) (*Client, error) {
	base := strings.TrimRight(serverURL, "/")
	if base == "" {
		return nil, fmt.Errorf("komf server URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid komf server URL %q: %v", serverURL, err)
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: base,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)

			if resp.StatusCode >= 500 {
				return fmt.Errorf("komf returned %d for %s", resp.StatusCode, path)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("komf returned %d for %s", resp.StatusCode, path))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.LastErrorOnly(true),
	)
}

// Ping checks that the Komf instance is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/api/v1/providers"); err != nil {
		return fmt.Errorf("komf connection check: %w", err)
	}
	return nil
}

// MatchSeries asks Komf to auto-identify a series against its metadata
// providers.
func (c *Client) MatchSeries(ctx context.Context, libraryID, seriesID string) error {
	path := "/api/v1/match/library/" + url.PathEscape(libraryID) + "/series/" + url.PathEscape(seriesID)
	if err := c.do(ctx, http.MethodPost, path); err != nil {
		return fmt.Errorf("komf match series %s: %w", seriesID, err)
	}
	return nil
}

// ResetSeries clears Komf-applied metadata for a series.
func (c *Client) ResetSeries(ctx context.Context, libraryID, seriesID string) error {
	path := "/api/v1/reset/library/" + url.PathEscape(libraryID) + "/series/" + url.PathEscape(seriesID)
	if err := c.do(ctx, http.MethodPost, path); err != nil {
		return fmt.Errorf("komf reset series %s: %w", seriesID, err)
	}
	return nil
}
