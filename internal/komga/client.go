// Package komga is a client for the Komga media server covering what
// the reader needs: book metadata, page lists, sibling navigation, page
// images and read-progress writes.
package komga

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	gocache "github.com/patrickmn/go-cache"
)

const (
	metadataTTL     = 5 * time.Minute
	cleanupInterval = 10 * time.Minute
	requestAttempts = 3
	retryBaseDelay  = 200 * time.Millisecond
)

// Config carries connection settings. Either Username/Password (basic
// auth) or APIKey (X-API-Key header) must be set for a secured server.
type Config struct {
	ServerURL string
	Username  string
	Password  string
	APIKey    string
}

// Client talks to one Komga server. Metadata responses are cached with
// a TTL so paging back and forth does not hammer the server; page image
// bytes are never cached here (the reader's own caches hold decoded
// images).
type Client struct {
	http     *http.Client
	baseURL  string
	config   Config
	metadata *gocache.Cache
}

func NewClient(config Config) (*Client, error) {
	base := strings.TrimRight(config.ServerURL, "/")
	if base == "" {
		return nil, fmt.Errorf("komga server URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid komga server URL %q: %v", config.ServerURL, err)
	}
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  base,
		config:   config,
		metadata: gocache.New(metadataTTL, cleanupInterval),
	}, nil
}

// statusError carries the HTTP status for callers that branch on it
// (404 means "no sibling", not a failure).
type statusError struct {
	status int
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("komga returned %d for %s", e.status, e.url)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	} else if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
	return req, nil
}

// do performs the request with retries on transport errors and 5xx.
// Client errors (4xx) are returned as-is on the first attempt.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	err := retry.Do(
		func() error {
			var reader io.Reader
			if body != nil {
				reader = strings.NewReader(string(body))
			}
			req, err := c.newRequest(ctx, method, path, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				statusErr := &statusError{status: resp.StatusCode, url: req.URL.String()}
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return statusErr
				}
				return retry.Unrecoverable(statusErr)
			}

			result, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.Delay(retryBaseDelay),
		retry.LastErrorOnly(true),
	)
	return result, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding komga response from %s: %v", path, err)
	}
	return nil
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/libraries", nil); err != nil {
		return fmt.Errorf("komga connection check: %w", err)
	}
	return nil
}
