package option

import (
	"net/http"
	"net/http/httputil"
	"regexp"
	"time"

	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/forum/internal/infrastructure/remote/requestconfig"
)

var sensitiveHeaderRegex = regexp.MustCompile(`(?im)^(Authorization|Cookie|Set-Cookie|X-Api-Key): .+$`)
var sensitiveBodyRegex = regexp.MustCompile(`("password"\s*:\s*)"[^"]*"`)

func redactSensitive(s string) string {
	s = sensitiveHeaderRegex.ReplaceAllString(s, "$1: [REDACTED]")
	return sensitiveBodyRegex.ReplaceAllString(s, `$1"[REDACTED]"`)
}

// WithDebugLog dumps every request and response at debug level.
func WithDebugLog(logger logging.Logger) RequestOption {
	if logger == nil {
		logger = logging.NewNop()
	}

	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		if dump, err := httputil.DumpRequestOut(r, true); err == nil {
			logger.Debugf("REQUEST:\n%s\n", redactSensitive(string(dump)))
		}

		resp, err := next(r)

		if resp != nil {
			if dump, err := httputil.DumpResponse(resp, true); err == nil {
				logger.Debugf("RESPONSE:\n%s\n", redactSensitive(string(dump)))
			}
		}

		if err != nil {
			logger.Debugf("REQUEST ERROR: %v", err)
		}

		return resp, err
	})
}

// WithRateLimit makes each request wait for a slot keyed by host.
func WithRateLimit(limiter *ratelimiter.FixedWindow, logger logging.Logger) RequestOption {
	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		if ok, retryAfter := limiter.Allow(r.URL.Host); !ok {
			if logger != nil {
				logger.Debug(logging.Remote, logging.RateLimiting, "throttling outbound request", map[logging.ExtraKey]any{
					logging.Path:    r.URL.Path,
					logging.Latency: retryAfter.String(),
				})
			}
			if err := limiter.Wait(r.Context(), r.URL.Host); err != nil {
				return nil, err
			}
		}
		return next(r)
	})
}

// WithMetrics records one observation per attempt.
func WithMetrics(m *metrics.Metrics) RequestOption {
	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		start := time.Now()
		resp, err := next(r)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		m.RemoteRequest(r.Method, requestconfig.RouteFromContext(r.Context()), status, time.Since(start))
		return resp, err
	})
}

// WithRequestLog logs failed round trips with their request id.
func WithRequestLog(logger logging.Logger) RequestOption {
	return WithMiddleware(func(r *http.Request, next MiddlewareNext) (*http.Response, error) {
		start := time.Now()
		resp, err := next(r)

		extra := map[logging.ExtraKey]any{
			logging.Method:    r.Method,
			logging.Path:      requestconfig.RouteFromContext(r.Context()),
			logging.RequestID: r.Header.Get("X-Request-ID"),
			logging.Latency:   time.Since(start).String(),
		}
		switch {
		case err != nil:
			extra[logging.ErrorMessage] = err.Error()
			logger.Warn(logging.Remote, logging.Request, "request failed", extra)
		case resp.StatusCode >= 500:
			extra[logging.StatusCode] = resp.StatusCode
			logger.Warn(logging.Remote, logging.Request, "server error", extra)
		default:
			extra[logging.StatusCode] = resp.StatusCode
			logger.Debug(logging.Remote, logging.Request, "request completed", extra)
		}
		return resp, err
	})
}
