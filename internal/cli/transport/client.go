// Package transport is the single shared HTTP client of the agency CLI.
//
// Besides a default header map it carries two interceptor registries. Request
// interceptors run, in installation order, on every outgoing request after the
// default headers were applied. Response interceptors run, in installation
// order, after every round trip and receive the normalized error (nil on
// success); whatever the last one returns is what the caller observes.
//
// Interceptors are snapshotted under the client's lock and invoked outside it,
// so an interceptor may install or eject interceptors itself.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brightline-agency/agency/internal/metrics"
)

// RequestInterceptor may mutate an outgoing request. A returned error aborts
// the call with KindRequest.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes a completed round trip. resp is nil when no
// response arrived. The returned error replaces err for later interceptors
// and for the caller.
type ResponseInterceptor func(req *http.Request, resp *http.Response, err error) error

// InterceptorID identifies an installed interceptor for ejection
type InterceptorID uint64

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// Client is the shared API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	headers  http.Header
	nextID   InterceptorID
	requests []requestEntry
	response []responseEntry
}

type requestEntry struct {
	id InterceptorID
	fn RequestInterceptor
}

type responseEntry struct {
	id InterceptorID
	fn ResponseInterceptor
}

// New creates a client for the given base URL
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("component", "transport").Logger(),
		metrics:    m,
		headers:    headers,
	}
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a default header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// DeleteHeader removes a default header
func (c *Client) DeleteHeader(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(key)
}

// Header returns the current value of a default header
func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get(key)
}

// UseRequest installs a request interceptor
func (c *Client) UseRequest(fn RequestInterceptor) InterceptorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.requests = append(c.requests, requestEntry{id: c.nextID, fn: fn})
	c.metrics.InterceptorInstalls.WithLabelValues(metrics.SlotRequest).Inc()
	return c.nextID
}

// EjectRequest removes a request interceptor; it reports whether id was installed
func (c *Client) EjectRequest(id InterceptorID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, entry := range c.requests {
		if entry.id == id {
			c.requests = append(c.requests[:i:i], c.requests[i+1:]...)
			c.metrics.InterceptorEjects.WithLabelValues(metrics.SlotRequest).Inc()
			return true
		}
	}
	return false
}

// UseResponse installs a response interceptor
func (c *Client) UseResponse(fn ResponseInterceptor) InterceptorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.response = append(c.response, responseEntry{id: c.nextID, fn: fn})
	c.metrics.InterceptorInstalls.WithLabelValues(metrics.SlotResponse).Inc()
	return c.nextID
}

// EjectResponse removes a response interceptor; it reports whether id was installed
func (c *Client) EjectResponse(id InterceptorID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, entry := range c.response {
		if entry.id == id {
			c.response = append(c.response[:i:i], c.response[i+1:]...)
			c.metrics.InterceptorEjects.WithLabelValues(metrics.SlotResponse).Inc()
			return true
		}
	}
	return false
}

// ReplaceResponse swaps the response interceptor old for fn in one step, so no
// call observes the registry without either of them. fn takes old's position;
// when old is not installed fn is appended.
func (c *Client) ReplaceResponse(old InterceptorID, fn ResponseInterceptor) InterceptorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	entry := responseEntry{id: c.nextID, fn: fn}
	c.metrics.InterceptorInstalls.WithLabelValues(metrics.SlotResponse).Inc()

	for i := range c.response {
		if c.response[i].id == old {
			c.response[i] = entry
			c.metrics.InterceptorEjects.WithLabelValues(metrics.SlotResponse).Inc()
			return entry.id
		}
	}
	c.response = append(c.response, entry)
	return entry.id
}

// ResponseInterceptors returns the number of live response interceptors
func (c *Client) ResponseInterceptors() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.response)
}

// Get issues a GET and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Patch issues a PATCH with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Do performs an API call. body is JSON encoded when non-nil; out, when
// non-nil, receives the decoded JSON response. Failures are *Error values.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		c.observe(method, KindRequest, start)
		return err
	}

	resp, respBody, callErr := c.roundTrip(req, method, path)

	c.mu.RLock()
	interceptors := make([]responseEntry, len(c.response))
	copy(interceptors, c.response)
	c.mu.RUnlock()

	finalErr := callErr
	for _, entry := range interceptors {
		finalErr = entry.fn(req, resp, finalErr)
	}

	c.observe(method, KindOf(finalErr), start)

	if finalErr != nil {
		c.logger.Debug().
			Err(finalErr).
			Str("method", method).
			Str("path", path).
			Str("request_id", req.Header.Get(RequestIDHeader)).
			Msg("API call failed")
		return finalErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{
				Kind:    KindResponse,
				Method:  method,
				Path:    path,
				Status:  resp.StatusCode,
				Message: "failed to decode response",
				Err:     err,
			}
		}
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, requestError(method, path, fmt.Errorf("failed to marshal request: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, requestError(method, path, fmt.Errorf("failed to create request: %w", err))
	}

	c.mu.RLock()
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	interceptors := make([]requestEntry, len(c.requests))
	copy(interceptors, c.requests)
	c.mu.RUnlock()

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, entry := range interceptors {
		if err := entry.fn(req); err != nil {
			return nil, requestError(method, path, err)
		}
	}

	return req, nil
}

// roundTrip sends req and normalizes transport failures and error statuses.
// The returned response body has been read; resp.Body is replaced with a
// re-readable copy for interceptors.
func (c *Client) roundTrip(req *http.Request, method, path string) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, connectivityError(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, connectivityError(method, path, fmt.Errorf("failed to read response: %w", err))
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, data, statusError(method, path, resp.StatusCode, data)
	}

	return resp, data, nil
}

func (c *Client) observe(method string, kind Kind, start time.Time) {
	outcome := "ok"
	if kind != 0 {
		outcome = kind.String()
	}
	c.metrics.Requests.WithLabelValues(method, outcome).Inc()
	c.metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
