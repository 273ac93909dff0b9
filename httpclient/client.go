// Package httpclient is the generic JSON request executor underneath the auth
// API client. It maps non-2xx statuses onto a typed error taxonomy, logs
// sanitized request/response metadata and records Prometheus metrics.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every request when no custom http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// Client executes JSON requests against a single base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (timeouts, transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit throttles outbound requests to rps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithMetrics records request metrics to the given collector.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a Client for baseURL. The logger is the capability every call
// site logs through; pass a disabled logger to silence the client.
func New(baseURL string, logger zerolog.Logger, options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// RequestOptions carries the per-call request parameters.
type RequestOptions struct {
	Headers map[string]string
	Body    any
}

// Response is a successful (2xx) exchange. Data is the parsed JSON body, nil
// when the body was empty or malformed.
type Response struct {
	Status   int
	Duration time.Duration
	Data     json.RawMessage
}

// Decode unmarshals the response data into v. A null response body leaves v
// untouched and is not an error.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Request executes method against endpoint. It serializes opts.Body as JSON,
// merges Content-Type with caller headers and measures the call. Non-2xx
// statuses and transport failures come back as *Error.
func (c *Client) Request(ctx context.Context, method, endpoint string, opts RequestOptions) (*Response, error) {
	url := c.baseURL + endpoint
	requestID := uuid.New().String()

	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, networkError(err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	c.logRequest(requestID, method, url, headers, opts.Body)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, networkError(err)
		}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, networkError(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(start)
		netErr := networkError(err)
		c.metrics.recordError(method, endpoint, KindNetwork)
		c.logger.Error().
			Str("request_id", requestID).
			Str("method", method).
			Str("url", url).
			Dur("duration", duration).
			Err(err).
			Msg("request failed")
		return nil, netErr
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.recordError(method, endpoint, KindNetwork)
		return nil, networkError(err)
	}

	// A body that is not valid JSON is logged and treated as null data, it
	// never fails the call on its own.
	var data json.RawMessage
	if len(body) > 0 {
		if json.Valid(body) {
			data = body
		} else {
			c.logger.Warn().
				Str("request_id", requestID).
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("failed to parse JSON response")
		}
	}

	c.logResponse(requestID, method, url, resp.StatusCode, duration, len(body))
	c.metrics.record(method, endpoint, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(resp.StatusCode, body)
		c.metrics.recordError(method, endpoint, apiErr.Kind)
		return nil, apiErr
	}

	return &Response{
		Status:   resp.StatusCode,
		Duration: duration,
		Data:     data,
	}, nil
}

// Get executes a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, endpoint, RequestOptions{Headers: headers})
}

// Post executes a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, endpoint, RequestOptions{Body: body})
}

// Put executes a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, endpoint, RequestOptions{Body: body})
}

// Delete executes a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, headers map[string]string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, RequestOptions{Headers: headers})
}

func (c *Client) logRequest(requestID, method, url string, headers map[string]string, body any) {
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", url).
		Interface("headers", sanitizeHeaders(headers)).
		Interface("body", sanitizeBody(body)).
		Msg("api request")
}

func (c *Client) logResponse(requestID, method, url string, status int, duration time.Duration, size int) {
	var evt *zerolog.Event
	switch {
	case status >= 400:
		evt = c.logger.Error()
	case status >= 300:
		evt = c.logger.Warn()
	default:
		evt = c.logger.Info()
	}
	evt.
		Str("request_id", requestID).
		Str("method", method).
		Str("url", url).
		Int("status", status).
		Dur("duration", duration).
		Int("response_size", size).
		Msg("api response")
}

// sanitizeHeaders redacts credential-bearing header values before logging.
func sanitizeHeaders(headers map[string]string) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for k, v := range headers {
		if k == "Authorization" {
			v = "Bearer ***"
		}
		sanitized[k] = v
	}
	return sanitized
}

// sanitizeBody redacts any password field in a logged request body. Bodies
// that do not round-trip through JSON objects are logged as-is.
func sanitizeBody(body any) any {
	if body == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return body
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return body
	}
	if _, ok := asMap["password"]; ok {
		asMap["password"] = "***"
	}
	return asMap
}
