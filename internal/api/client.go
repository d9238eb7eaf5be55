package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/kitchen-ops/internal/version"
)

// APIKeyHeader carries the optional third-party API key.
const APIKeyHeader = "X-API-Key"

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
)

// Client talks to the kitchen backend REST API rooted at baseURL (for example
// http://localhost:5000/api). Only idempotent requests are retried.
type Client struct {
	baseURL    string
	header     http.Header
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the backend at baseURL. A trailing slash is dropped.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header: http.Header{
			"Accept":     {"application/json"},
			"User-Agent": {"kitchend/" + version.Version},
		},
		httpClient:   &http.Client{Timeout: defaultTimeout},
		logger:       slog.Default(),
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithAPIKey sends key in the X-API-Key header. An empty key sends no header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		if key == "" {
			c.header.Del(APIKeyHeader)
			return
		}
		c.header.Set(APIKeyHeader, key)
	}
}

// WithUserAgent overrides the User-Agent sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.header.Set("User-Agent", ua)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times an idempotent request is retried and the initial backoff.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger. nil keeps the default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to share a transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
