package feedclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const maxBodySize = 4 << 20

// Identity supplies the current viewer's bearer token. An empty token sends
// the request unauthenticated.
type Identity interface {
	Token() string
}

type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the posts API. Reads are idempotent and go through a
// retrying client; mutations are sent exactly once.
type Client struct {
	baseURL  string
	identity Identity
	reads    *retryablehttp.Client
	writes   *http.Client
}

type Option func(*Client)

// WithHTTPClient routes both reads and writes through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.reads.HTTPClient = hc
		c.writes = hc
	}
}

// WithRetry sets how often and how patiently reads are retried.
func WithRetry(max int, minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.reads.RetryMax = max
		c.reads.RetryWaitMin = minWait
		c.reads.RetryWaitMax = maxWait
	}
}

func NewClient(baseURL string, identity Identity, opts ...Option) *Client {
	reads := retryablehttp.NewClient()
	reads.Logger = nil
	reads.RetryMax = 2
	// Once retries run out the last response is returned as is, so an API
	// error body still reaches the caller.
	reads.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		identity: identity,
		reads:    reads,
		writes:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) get(ctx context.Context, path string) (*response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req.Header)
	resp, err := c.reads.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return readResponse(resp)
}

func (c *Client) send(ctx context.Context, method, path string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req.Header)
	resp, err := c.writes.Do(req)
	if err != nil {
		return nil, err
	}
	return readResponse(resp)
}

func (c *Client) authorize(h http.Header) {
	h.Set("Accept", "application/json")
	if c.identity == nil {
		return
	}
	if token := c.identity.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func readResponse(resp *http.Response) (*response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

func postPath(id string) string {
	return "/api/posts/" + url.PathEscape(id)
}

func likePath(id string) string {
	return "/api/posts/like/" + url.PathEscape(id)
}

func userPostsPath(username string) string {
	return "/api/posts/user/" + url.PathEscape(username)
}

const feedPath = "/api/posts/feed"
