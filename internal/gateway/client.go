package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/internal/present"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultBaseURL        = "http://localhost:8080/api"
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 1 << 20

	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestID      = "X-Request-ID"
)

// TokenSource yields the bearer token for the next request; empty means anonymous.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Response is what interceptors observe after each call.
type Response struct {
	Method     string
	Route      string
	Status     int
	Authorized bool
	Err        *pkgerrors.Error
}

// Interceptor runs after every response, successful or not, in registration order.
type Interceptor func(ctx context.Context, resp Response)

// Client talks to the remote order/auth/product service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logg       *logger.Logger
	metrics    *metrics.ClientMetrics
	navigator  present.Navigator
	notifier   present.Notifier
	loginPath  string

	mu           sync.RWMutex
	interceptors []Interceptor
	onUnauth     []func(ctx context.Context)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the default HTTP client's timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithNavigator enables the login redirect on 401.
func WithNavigator(nav present.Navigator) Option {
	return func(c *Client) { c.navigator = nav }
}

// WithNotifier enables notices for 403 and 5xx responses.
func WithNotifier(n present.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLoginPath overrides the redirect target for 401 responses.
func WithLoginPath(path string) Option {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.loginPath = path
		}
	}
}

// NewClient builds the gateway. The built-in auth-failure interceptor is
// always first in the chain.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(base, "/"),
		logg:       logger.Nop(),
		loginPath:  present.PathLogin,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	client.interceptors = []Interceptor{client.handleAuthFailures}
	return client, nil
}

// Use appends an interceptor to the chain.
func (c *Client) Use(i Interceptor) {
	if i == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, i)
}

// OnUnauthorized registers a callback run when an authenticated call gets a 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauth = append(c.onUnauth, fn)
}

// handleAuthFailures implements the global reaction to auth and server errors.
// Anonymous 401s (bad credentials on login) are left to the caller.
func (c *Client) handleAuthFailures(ctx context.Context, resp Response) {
	switch {
	case resp.Status == http.StatusUnauthorized && resp.Authorized:
		c.mu.RLock()
		callbacks := append([]func(context.Context){}, c.onUnauth...)
		c.mu.RUnlock()
		for _, fn := range callbacks {
			fn(ctx)
		}
		if c.navigator != nil && c.navigator.CurrentPath() != c.loginPath {
			c.navigator.Navigate(present.Navigation{Path: c.loginPath, ReturnTo: c.navigator.CurrentPath()})
		}
	case resp.Status == http.StatusForbidden:
		c.notify(present.Error("You do not have permission to do that."))
	case resp.Status >= http.StatusInternalServerError:
		c.notify(present.Error("The store is having trouble right now. Please try again."))
	case resp.Status == 0 && resp.Err != nil && resp.Err.Code() == pkgerrors.CodeDependency:
		c.notify(present.Error("Could not reach the store. Check your connection and try again."))
	}
}

func (c *Client) notify(n present.Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

type request struct {
	method  string
	route   string
	path    string
	query   url.Values
	body    any
	headers map[string]string

	// anonymous requests never carry the bearer token.
	anonymous bool
}

func call[T any](ctx context.Context, c *Client, r request) (res Result[T]) {
	if c == nil {
		return failure[T](0, pkgerrors.New(pkgerrors.CodeDependency, "api client not configured"))
	}
	started := time.Now()
	token := ""
	if c.tokens != nil && !r.anonymous {
		token = strings.TrimSpace(c.tokens.Token())
	}
	requestID := uuid.NewString()
	ctx = c.logg.WithFields(ctx, map[string]any{"request_id": requestID, "route": r.route})

	defer func() {
		res.Authorized = token != ""
		c.metrics.ObserveRequest(r.route, res.Status, time.Since(started))
		if res.Err != nil {
			c.metrics.IncRequestError(r.route, string(res.Err.Code()))
		}
		c.mu.RLock()
		chain := append([]Interceptor{}, c.interceptors...)
		c.mu.RUnlock()
		resp := Response{Method: r.method, Route: r.route, Status: res.Status, Authorized: res.Authorized, Err: res.Err}
		for _, interceptor := range chain {
			interceptor(ctx, resp)
		}
	}()

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return failure[T](0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request"))
		}
		body = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(r.path, "/")
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return failure[T](0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request"))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range r.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gateway.transport_failed")
		return failure[T](0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not reach the store"))
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, responseBodyReadLimit))
	if err != nil {
		return failure[T](httpResp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response"))
	}
	c.logg.Debug(c.logg.WithField(ctx, "status", httpResp.StatusCode), "gateway.response")

	return decodeResult[T](httpResp.StatusCode, raw)
}

func decodeResult[T any](status int, raw []byte) Result[T] {
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if status >= 400 {
				return failure[T](status, errorFromEnvelope(status, &envelope{Error: strings.TrimSpace(string(raw))}))
			}
			return failure[T](status, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode response"))
		}
	}
	if status >= 400 || !env.Success {
		return failure[T](status, errorFromEnvelope(status, &env))
	}

	res := Result[T]{Status: status, Message: env.Message, Pagination: env.Pagination}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return res
	}
	if err := json.Unmarshal(env.Data, &res.Value); err != nil {
		return failure[T](status, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode response data"))
	}
	return res
}
