package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client is a retrying JSON HTTP client shared by all pull sources.
// Unlike a per-API client it carries no base URL; each source passes
// full endpoint URLs.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a REST client with default timeout and retries.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithProxyRotation routes each outbound request through the proxy URL
// returned by next. An empty string means a direct connection.
func WithProxyRotation(next func() string) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			Proxy: func(*http.Request) (*url.URL, error) {
				raw := next()
				if raw == "" {
					return nil, nil
				}
				return url.Parse(raw)
			},
		}
	}
}
