package option

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
)

// RequestOption is an option for the requests made by the forum client.
type RequestOption = requestconfig.RequestOption

type Middleware = func(*http.Request, MiddlewareNext) (*http.Response, error)
type MiddlewareNext = func(*http.Request) (*http.Response, error)

func WithBaseURL(base string) RequestOption {
	u, err := url.Parse(base)
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if err != nil {
			return fmt.Errorf("requestoption: WithBaseURL failed to parse url %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("requestoption: base url %q must be absolute", base)
		}
		r.BaseURL = u
		return nil
	})
}

func WithHTTPClient(client requestconfig.HTTPDoer) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if client == nil {
			return fmt.Errorf("requestoption: custom http client cannot be nil")
		}
		r.HTTPClient = client
		return nil
	})
}

// WithMiddleware appends middlewares; the first one added is the outermost.
func WithMiddleware(middlewares ...Middleware) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Middlewares = append(r.Middlewares, middlewares...)
		return nil
	})
}

func WithHeader(key, value string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Headers.Set(key, value)
		return nil
	})
}

func WithMaxRetries(retries int) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		if retries < 0 {
			return fmt.Errorf("requestoption: cannot have fewer than 0 retries")
		}
		r.MaxRetries = retries
		return nil
	})
}

// WithRequestTimeout bounds each attempt, not the whole call.
func WithRequestTimeout(dur time.Duration) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.RequestTimeout = dur
		return nil
	})
}

func WithRoute(route string) RequestOption {
	return requestconfig.RequestOptionFunc(func(r *requestconfig.RequestConfig) error {
		r.Route = route
		return nil
	})
}
