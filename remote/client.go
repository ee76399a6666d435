// Package remote provides an HTTP implementation of batch.Requester, used to send verb
// operations such as "create" or "delete" to a JSON API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/value"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when the remote service answers with a status code >= 400.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Option is a functional option for configuring a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	headers    map[string]string
	debug      bool
	creds      *clientcredentials.Config
	httpClient *http.Client
	lggr       logger.Logger
}

// WithTimeout sets the timeout of every request. Defaults to DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) {
		c.headers = headers
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *clientConfig) {
		c.debug = debug
	}
}

// WithClientCredentials authenticates every request with an OAuth2 access token obtained
// through the client credentials flow.
func WithClientCredentials(cfg clientcredentials.Config) Option {
	return func(c *clientConfig) {
		c.creds = &cfg
	}
}

// WithHTTPClient sets the underlying HTTP client. With client credentials it is also used
// to fetch tokens.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLogger routes the debug and error output of the HTTP client to lggr.
func WithLogger(lggr logger.Logger) Option {
	return func(c *clientConfig) {
		c.lggr = lggr
	}
}

// Client sends batch requests to a remote JSON API. It implements batch.Requester.
type Client struct {
	baseURL string
	client  *resty.Client
}

var _ batch.Requester = (*Client)(nil)

// NewClient creates a Client sending requests to endpoints relative to baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("remote base URL is required")
	}

	cfg := clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := cfg.httpClient
	if cfg.creds != nil {
		ctx := context.Background()
		if hc != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		}
		hc = cfg.creds.Client(ctx)
	}

	var rc *resty.Client
	if hc != nil {
		rc = resty.NewWithClient(hc)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(cfg.timeout).
		SetHeaders(cfg.headers).
		SetHeader("Accept", "application/json").
		SetDebug(cfg.debug)
	if cfg.lggr != nil {
		rc.SetLogger(cfg.lggr)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  rc,
	}, nil
}

// BaseURL returns the URL endpoints are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request implements batch.Requester. The payload is sent as a JSON body unless it is
// null. An empty response body decodes to a null value.
//
// Status codes >= 400 are returned as *StatusError. Those that cannot succeed on a retry
// are marked unrecoverable so that a retry policy stops early.
func (c *Client) Request(ctx context.Context, req batch.Request) (value.Value, error) {
	r := c.client.R().SetContext(ctx)
	if !req.Data.IsNull() {
		body, err := json.Marshal(req.Data)
		if err != nil {
			return value.Value{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := r.Execute(req.Method, req.Endpoint)
	if err != nil {
		return value.Value{}, fmt.Errorf("failed to send %s %s: %w", req.Method, req.Endpoint, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		serr := &StatusError{
			Method:     req.Method,
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		}
		if !serr.Temporary() {
			return value.Value{}, batch.NewUnrecoverableError(serr)
		}

		return value.Value{}, serr
	}

	out := value.Null()
	if body := resp.Body(); len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return value.Value{}, fmt.Errorf("failed to decode response of %s %s: %w", req.Method, req.Endpoint, err)
		}
	}

	return out, nil
}
