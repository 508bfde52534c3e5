package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hilthontt/forum/internal/application/usecases/answers"
	"github.com/hilthontt/forum/internal/application/usecases/detail"
	"github.com/hilthontt/forum/internal/application/usecases/directory"
	"github.com/hilthontt/forum/internal/application/usecases/session"
	"github.com/hilthontt/forum/internal/application/usecases/votes"
	"github.com/hilthontt/forum/internal/domain"
	"github.com/hilthontt/forum/internal/infrastructure/broadcast"
	"github.com/hilthontt/forum/internal/infrastructure/configs"
	"github.com/hilthontt/forum/internal/infrastructure/logging"
	"github.com/hilthontt/forum/internal/infrastructure/metrics"
	"github.com/hilthontt/forum/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/forum/internal/infrastructure/remote"
	"github.com/hilthontt/forum/internal/infrastructure/remote/option"
	"github.com/hilthontt/forum/internal/infrastructure/repository"
	"github.com/hilthontt/forum/internal/infrastructure/tracing"
	"github.com/hilthontt/forum/internal/infrastructure/ws"
	"github.com/hilthontt/forum/internal/presentation/api"
	healthHandler "github.com/hilthontt/forum/internal/presentation/handler/health"
	roomsHandler "github.com/hilthontt/forum/internal/presentation/handler/rooms"
	sessionHandler "github.com/hilthontt/forum/internal/presentation/handler/session"
	"github.com/hilthontt/forum/internal/presentation/views"
)

const (
	serviceName            = "forum-client"
	debugRequestsPerMinute = 120
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("forum", flag.ExitOnError)
	offline := fs.Bool("offline", false, "use a seeded in-memory store instead of the server")
	configPath := configs.DetermineConfigPath(fs, os.Args[1:])

	cfg, err := configs.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing.Enabled, tracing.NewConfig(serviceName, cfg.Tracing))
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn(logging.General, logging.Shutdown, "tracer shutdown failed", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		store domain.RemoteStore
		feed  *ws.Feed
		cli   *client
	)
	if *offline {
		mem := repository.NewStore(0)
		if err := mem.Seed(ctx); err != nil {
			return err
		}
		store = mem
	} else {
		httpClient, err := remote.NewHTTPClient()
		if err != nil {
			return err
		}
		opts := []option.RequestOption{
			option.WithHTTPClient(httpClient),
			option.WithBaseURL(cfg.Remote.BaseURL),
			option.WithRequestTimeout(cfg.Remote.RequestTimeout),
			option.WithMaxRetries(cfg.Remote.MaxRetries),
			option.WithMetrics(m),
			option.WithRequestLog(logger),
		}
		if rl := cfg.Remote.RateLimit; rl.RequestsPerTimeFrame > 0 {
			limiter := ratelimiter.NewFixedWindow(rl.RequestsPerTimeFrame, rl.TimeFrame)
			defer limiter.Close()
			opts = append(opts, option.WithRateLimit(limiter, logger))
		}
		if cfg.Remote.Debug {
			opts = append(opts, option.WithDebugLog(logger))
		}
		rc, err := remote.NewClient(opts...)
		if err != nil {
			return err
		}
		store = rc

		if cfg.Live.Enabled {
			feed, err = ws.NewFeed(ws.Options{
				BaseURL:          cfg.Remote.BaseURL,
				HandshakeTimeout: cfg.Live.HandshakeTimeout,
				Jar:              httpClient.Jar,
				Logger:           logger,
				OnInvalidate: func(roomID int64) {
					if cli != nil {
						cli.invalidate(ctx, roomID)
					}
				},
			})
			if err != nil {
				return err
			}
			defer feed.Close()
		}
	}

	sess := session.New(store, logger, broadcast.WithPublishHook(m.PublishHook))
	defer sess.Close()

	dir := directory.New(store, sess, logger, directory.Options{
		FetchConcurrency: cfg.Sync.FetchConcurrency,
		Metrics:          m,
	})
	defer dir.Close()

	room := detail.New(store, logger, detail.Options{
		Enricher: votes.NewReconciler(store, sess, cfg.Sync.FetchConcurrency),
		Metrics:  m,
	})
	defer room.Close()

	console := views.NewConsole(os.Stdout)
	cli = &client{
		console: console,
		logger:  logger,
		session: sess,
		dir:     dir,
		room:    room,
		votes:   votes.NewEngine(store, sess, room, logger, m),
		answers: answers.New(store, room, logger),
		feed:    feed,
	}

	var scope views.Scope
	defer scope.Close()
	sv := views.NewSessionView(console, sess)
	scope.Add(sv.Close)
	scope.Add(cli.closeWatch)
	scope.Add(cli.detachRoomView)

	if cfg.DebugServer.Enabled {
		limiter := ratelimiter.NewFixedWindow(debugRequestsPerMinute, time.Minute)
		defer limiter.Close()
		app := api.NewApplication(
			cfg.DebugServer,
			roomsHandler.NewHandler(dir, room),
			sessionHandler.NewHandler(sess),
			healthHandler.NewHandler(),
			m,
			logger,
			limiter,
		)
		go func() {
			if err := app.Run(ctx, app.Mount()); err != nil {
				logger.Error(logging.General, logging.DebugServer, "debug server failed", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	}

	logger.Info(logging.General, logging.Startup, "forum client started", map[logging.ExtraKey]any{
		logging.AppName: serviceName,
		logging.Path:    configPath,
	})

	if err := sess.Refresh(ctx); err != nil {
		console.Printf("warning: %v\n", err)
	}
	if err := dir.LoadRooms(ctx); err != nil {
		console.Printf("warning: %v\n", err)
	}

	cli.loop(ctx, os.Stdin)

	logger.Info(logging.General, logging.Shutdown, "forum client stopping", nil)
	return nil
}
