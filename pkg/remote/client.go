// Package remote fetches subtrees from the node endpoint and follows the live
// element feed.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

const (
	// DefaultTimeout bounds a single subtree request.
	DefaultTimeout = 10 * time.Second
	// MaxBodySize caps the response body read from the endpoint.
	MaxBodySize = 16 << 20
)

// ErrNotFound is returned when the endpoint has no node with the given id.
var ErrNotFound = errors.New("node not found")

// ErrBodyTooLarge is returned when a response exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("response too large")

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// SubtreeSource returns the subtree rooted at a node.
type SubtreeSource interface {
	Subtree(ctx context.Context, id string) ([]element.Element, error)
}

// Client requests subtrees with GET <base>/node?ID=<id>.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	maxBody int64
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. hc itself is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the HTTP
// client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient returns a client for the endpoint at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: DefaultTimeout}, maxBody: MaxBodySize}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		return nil, errors.New("nil http client")
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// BaseURL returns the endpoint base.
func (c *Client) BaseURL() string { return c.base.String() }

// Subtree fetches the subtree rooted at id. Concurrent calls for the same id
// share one request.
func (c *Client) Subtree(ctx context.Context, id string) ([]element.Element, error) {
	v, err, shared := c.group.Do(id, func() (any, error) {
		return c.fetch(ctx, id)
	})
	debug.LogIf(shared, "remote: shared subtree fetch for %s", id)
	if err != nil {
		return nil, err
	}
	// Callers sharing a result must not alias each other's slices.
	return element.Clone(v.([]element.Element)), nil
}

// NodeURL returns the request URL for id.
func (c *Client) NodeURL(id string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/node"
	u.RawQuery = url.Values{"ID": {id}}.Encode()
	return u.String()
}

func (c *Client) fetch(ctx context.Context, id string) ([]element.Element, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.NodeURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch subtree %s: %w", id, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subtree %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("fetch subtree %s: reading body: %w", id, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("fetch subtree %s: %w: response exceeds %d bytes", id, ErrBodyTooLarge, c.maxBody)
	}
	debug.LogTiming("remote.fetch "+id, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch subtree %s: %w", id, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch subtree %s: %w", id, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		})
	}

	els, err := element.Parse(body)
	if errors.Is(err, element.ErrEmptyInput) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subtree %s: %w", id, err)
	}
	return els, nil
}
