//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps an http.Client with a per-call timeout and fixed request headers.
type Client struct {
	// http is the underlying transport client.
	http *http.Client
	// userAgent is sent with every request.
	userAgent string

	// callTimeout bounds metadata calls; streaming downloads are not bounded.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for metadata calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// ErrBadHTTPStatus is returned when a server answers with anything but 200 OK.
var ErrBadHTTPStatus = errors.New("unexpected http status")

// NewClient creates a client using http.DefaultClient unless overridden.
func NewClient(opts ...Option) *Client {
	client := &Client{
		http: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetJSON fetches url within the call timeout and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	body, err := c.open(callCtx, url, "application/vnd.github+json")
	if err != nil {
		return err
	}

	defer func() {
		_ = body.Close()
	}()

	if err = json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}

	return nil
}

// Open starts a streaming GET of url. The caller must close the returned body.
// Only ctx bounds the transfer; the call timeout is not applied.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return c.open(ctx, url, "")
}

func (c *Client) open(ctx context.Context, url, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}

	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	response, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, fmt.Errorf("%s, %s: %w", url, response.Status, ErrBadHTTPStatus)
	}

	return response.Body, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
