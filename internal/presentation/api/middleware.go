package api

import (
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/forum/internal/infrastructure/json"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
)

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}
		if allow, retryAfter := app.ratelimiter.Allow(key); !allow {
			app.logger.Warn(logging.General, logging.RateLimiting, "debug server rate limit exceeded", map[logging.ExtraKey]any{
				logging.Path:   r.URL.Path,
				logging.Method: r.Method,
			})
			json.WriteRateLimitError(w, int(math.Ceil(retryAfter.Seconds())))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)

		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}
		extra := map[logging.ExtraKey]any{
			logging.Method:     r.Method,
			logging.Path:       r.URL.Path,
			logging.StatusCode: status,
			logging.Latency:    time.Since(start).Milliseconds(),
			logging.RequestID:  middleware.GetReqID(r.Context()),
		}

		switch {
		case status >= 500:
			app.logger.Error(logging.General, logging.DebugServer, "request completed with server error", extra)
		case status >= 400:
			app.logger.Warn(logging.General, logging.DebugServer, "request completed with client error", extra)
		default:
			app.logger.Debug(logging.General, logging.DebugServer, "request completed", extra)
		}
	})
}
