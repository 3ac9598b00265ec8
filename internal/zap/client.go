// Package zap is a client for the scanning engine's JSON control API.
//
// Every call is a GET against /JSON/<component>/<action|view>/<name>/ with
// the API key in the X-ZAP-API-Key header. Read-only views are retried on
// transport failures and 5xx responses; actions are sent exactly once.
package zap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

const apiKeyHeader = "X-ZAP-API-Key"

// Client talks to one engine instance.
type Client struct {
	baseURL       *url.URL
	apiKey        string
	httpClient    *http.Client
	logger        *slog.Logger
	retries       uint
	retryInterval time.Duration
	limiter       *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry sets how many times a view is attempted and the initial backoff.
func WithRetry(attempts uint, initial time.Duration) Option {
	return func(c *Client) {
		c.retries = attempts
		c.retryInterval = initial
	}
}

// WithRateLimit caps calls to rps per second with the given burst. A
// non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewClient creates a client for the engine API rooted at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, scanerr.Configf("zap.api_url", "invalid URL %q: %v", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, scanerr.Configf("zap.api_url", "unsupported scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:       u,
		apiKey:        apiKey,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        slog.Default(),
		retries:       3,
		retryInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) endpoint(kind, component, name string) string {
	return fmt.Sprintf("%s/%s/%s", component, kind, name)
}

// do performs one call and decodes the top-level JSON object.
func (c *Client) do(ctx context.Context, kind, component, name string, params url.Values) (map[string]json.RawMessage, error) {
	endpoint := c.endpoint(kind, component, name)

	u := *c.baseURL
	u.Path = fmt.Sprintf("%s/JSON/%s/", u.Path, endpoint)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &scanerr.ExternalServiceError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &scanerr.ExternalServiceError{Endpoint: endpoint, Err: err}
		}
	}

	c.logger.Debug("engine call", "endpoint", endpoint, "params", params.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &scanerr.ExternalServiceError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &scanerr.ExternalServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			err = fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		} else {
			err = fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
		}
		return nil, &scanerr.ExternalServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &scanerr.ExternalServiceError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("malformed response: %w", err),
		}
	}
	return decoded, nil
}

// view performs a read-only call, retrying transient failures.
func (c *Client) view(ctx context.Context, component, name string, params url.Values) (map[string]json.RawMessage, error) {
	op := func() (map[string]json.RawMessage, error) {
		body, err := c.do(ctx, "view", component, name, params)
		if err == nil {
			return body, nil
		}
		var ext *scanerr.ExternalServiceError
		if ctx.Err() != nil || (errors.As(err, &ext) && ext.StatusCode != 0 && ext.StatusCode < 500) {
			return nil, backoff.Permanent(err)
		}
		c.logger.Debug("retrying engine view", "component", component, "view", name, "error", err)
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(max(c.retries, 1)))
}

// action performs a state-changing call that answers {"Result":"OK"}.
func (c *Client) action(ctx context.Context, component, name string, params url.Values) error {
	body, err := c.do(ctx, "action", component, name, params)
	if err != nil {
		return err
	}
	result, err := stringField(body, "Result")
	if err != nil {
		return &scanerr.ExternalServiceError{Endpoint: c.endpoint("action", component, name), StatusCode: http.StatusOK, Err: err}
	}
	if result != "OK" {
		return &scanerr.ExternalServiceError{
			Endpoint:   c.endpoint("action", component, name),
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("unexpected result %q", result),
		}
	}
	return nil
}

// actionValue performs an action that answers with a single named value.
func (c *Client) actionValue(ctx context.Context, component, name, key string, params url.Values) (string, error) {
	body, err := c.do(ctx, "action", component, name, params)
	if err != nil {
		return "", err
	}
	v, err := stringField(body, key)
	if err != nil {
		return "", &scanerr.ExternalServiceError{Endpoint: c.endpoint("action", component, name), StatusCode: http.StatusOK, Err: err}
	}
	return v, nil
}

func (c *Client) viewInt(ctx context.Context, component, name, key string, params url.Values) (int, error) {
	body, err := c.view(ctx, component, name, params)
	if err != nil {
		return 0, err
	}
	raw, err := stringField(body, key)
	if err == nil {
		var n int
		n, err = strconv.Atoi(raw)
		if err == nil {
			return n, nil
		}
	}
	return 0, &scanerr.ExternalServiceError{Endpoint: c.endpoint("view", component, name), StatusCode: http.StatusOK, Err: err}
}

// stringField extracts key from a decoded object. The engine encodes most
// scalars as strings but numbers are accepted too.
func stringField(body map[string]json.RawMessage, key string) (string, error) {
	raw, ok := body[key]
	if !ok {
		return "", fmt.Errorf("response has no %q field", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("field %q is not a scalar: %s", key, string(raw))
}

func boolParam(b bool) string {
	return strconv.FormatBool(b)
}
