// Package fetch retrieves archive pages over HTTP and paces requests.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the harvester to the archive.
const DefaultUserAgent = "ffharvest/1.0"

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves the raw bytes of a page. Implementations return a
// *TransportError when the page could not be retrieved.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond caps the request rate. Zero means no ceiling; the
	// harvest pipeline paces requests itself.
	RequestsPerSecond float64

	// HTTPClient overrides the underlying client. Timeout is ignored when
	// it is set.
	HTTPClient *http.Client
}

// Client is a Fetcher backed by net/http. It issues one GET per call.
type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewClient creates a client from opts, filling in defaults for empty
// values.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		http:      httpClient,
		userAgent: opts.UserAgent,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return c
}

// Fetch performs a GET on url and returns the response body. Any status
// other than 200 is a failure.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, TLS: isTLSFailure(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return body, nil
}
