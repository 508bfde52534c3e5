// Package api serves the client's local debug surface: health, prometheus
// metrics and a read-only view of the published state.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/forum/internal/infrastructure/configs"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/forum/internal/presentation/handler/health"
	roomsHandler "github.com/hilthontt/forum/internal/presentation/handler/rooms"
	sessionHandler "github.com/hilthontt/forum/internal/presentation/handler/session"
)

type Application struct {
	config         configs.DebugServerConfig
	roomsHandler   *roomsHandler.Handler
	sessionHandler *sessionHandler.Handler
	healthHandler  *healthHandler.Handler
	metrics        *metrics.Metrics
	logger         logging.Logger
	ratelimiter    *ratelimiter.FixedWindow
}

func NewApplication(
	config configs.DebugServerConfig,
	roomsHandler *roomsHandler.Handler,
	sessionHandler *sessionHandler.Handler,
	healthHandler *healthHandler.Handler,
	metrics *metrics.Metrics,
	logger logging.Logger,
	ratelimiter *ratelimiter.FixedWindow,
) *Application {
	return &Application{
		config:         config,
		roomsHandler:   roomsHandler,
		sessionHandler: sessionHandler,
		healthHandler:  healthHandler,
		metrics:        metrics,
		logger:         logger,
		ratelimiter:    ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Use(app.loggerMiddleware)
	if app.ratelimiter != nil {
		r.Use(app.rateLimiterMiddleware)
	}

	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetHealth)
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	r.Route("/state", func(r chi.Router) {
		r.Get("/rooms", app.roomsHandler.ListRoomsHandler)
		r.Get("/room", app.roomsHandler.GetOpenRoomHandler)
		r.Get("/session", app.sessionHandler.GetSessionHandler)
	})

	return r
}

func (app *Application) Addr() string {
	return fmt.Sprintf("%s:%d", app.config.Host, app.config.Port)
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.Addr(),
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.healthHandler.SetHealthy(false)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.DebugServer, "debug server has started", map[logging.ExtraKey]any{
		logging.Path: srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.DebugServer, "debug server has stopped", map[logging.ExtraKey]any{
		logging.Path: srv.Addr,
	})
	return nil
}
