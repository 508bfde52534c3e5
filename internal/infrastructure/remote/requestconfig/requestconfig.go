package requestconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

const PackageVersion = "0.3.0"

// This interface is primarily used to describe an [*http.Client], but also
// supports custom HTTP implementations.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestConfig represents all the state related to one request.
//
// Editing the variables inside RequestConfig directly is unstable api. Prefer
// composing the RequestOption instead if possible.
type RequestConfig struct {
	MaxRetries     int
	RequestTimeout time.Duration
	Context        context.Context
	Method         string
	// Route is the low-cardinality name of the endpoint, e.g. "/rooms/{id}".
	Route       string
	BaseURL     *url.URL
	HTTPClient  HTTPDoer
	Headers     http.Header
	Middlewares []middleware
	// If ResponseBodyInto is a *[]byte the raw body is copied into it.
	ResponseBodyInto *[]byte
	Body             []byte

	path string
}

// middleware is exactly the same type as the Middleware type found in the [option] package,
// but it is redeclared here for circular dependency issues.
type middleware = func(*http.Request, middlewareNext) (*http.Response, error)

// middlewareNext is exactly the same type as the MiddlewareNext type found in the [option] package,
// but it is redeclared here for circular dependency issues.
type middlewareNext = func(*http.Request) (*http.Response, error)

type RequestOption interface {
	Apply(*RequestConfig) error
}

type RequestOptionFunc func(*RequestConfig) error

func (s RequestOptionFunc) Apply(r *RequestConfig) error {
	return s(r)
}

// Error is returned for every response outside the 2xx range.
type Error struct {
	StatusCode int
	Method     string
	Route      string
	RequestID  string
	Body       []byte
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Sprintf("%s %s: %d %s %s", e.Method, e.Route, e.StatusCode, http.StatusText(e.StatusCode), msg)
}

type routeKey struct{}

// RouteFromContext returns the route name of the request being executed.
func RouteFromContext(ctx context.Context) string {
	route, _ := ctx.Value(routeKey{}).(string)
	return route
}

func getDefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", fmt.Sprintf("Forum/Client %s (%s; %s)", PackageVersion, runtime.GOOS, runtime.GOARCH))
	h.Set("Accept", "application/json")
	return h
}

func NewRequestConfig(ctx context.Context, method, path string, body []byte, dst *[]byte, opts ...RequestOption) (*RequestConfig, error) {
	cfg := &RequestConfig{
		Context:          ctx,
		Method:           method,
		Route:            path,
		HTTPClient:       http.DefaultClient,
		Headers:          getDefaultHeaders(),
		ResponseBodyInto: dst,
		Body:             body,
		path:             path,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.Apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.BaseURL == nil {
		return nil, errors.New("requestconfig: base URL is not set")
	}
	return cfg, nil
}

func (cfg *RequestConfig) url() (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(cfg.path, "/"))
	if err != nil {
		return nil, fmt.Errorf("requestconfig: invalid path %q: %w", cfg.path, err)
	}

	base := *cfg.BaseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref), nil
}

func (cfg *RequestConfig) newRequest(ctx context.Context) (*http.Request, error) {
	u, err := cfg.url()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range cfg.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if cfg.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	return req, nil
}

func retryable(method string, status int, err error) bool {
	if method != http.MethodGet {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return status >= 500
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 100 * time.Millisecond
}

// Execute performs the request, retrying idempotent calls on transport
// failures and 5xx responses up to MaxRetries times.
func (cfg *RequestConfig) Execute() error {
	handler := cfg.HTTPClient.Do
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		mw, next := cfg.Middlewares[i], handler
		handler = func(req *http.Request) (*http.Response, error) {
			return mw(req, next)
		}
	}

	ctx := context.WithValue(cfg.Context, routeKey{}, cfg.Route)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		status, err := cfg.do(ctx, handler)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(cfg.Method, status, err) {
			return err
		}
	}
	return lastErr
}

func (cfg *RequestConfig) do(ctx context.Context, handler middlewareNext) (int, error) {
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	req, err := cfg.newRequest(ctx)
	if err != nil {
		return 0, err
	}

	res, err := handler(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.StatusCode, &Error{
			StatusCode: res.StatusCode,
			Method:     cfg.Method,
			Route:      cfg.Route,
			RequestID:  req.Header.Get("X-Request-ID"),
			Body:       data,
		}
	}

	if cfg.ResponseBodyInto != nil {
		*cfg.ResponseBodyInto = data
	}
	return res.StatusCode, nil
}

func ExecuteNewRequest(ctx context.Context, method, path string, body []byte, dst *[]byte, opts ...RequestOption) error {
	cfg, err := NewRequestConfig(ctx, method, path, body, dst, opts...)
	if err != nil {
		return err
	}
	return cfg.Execute()
}
