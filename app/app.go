package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/beatclash/beatclash/app/modules/competition"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	"github.com/beatclash/beatclash/config"
	"github.com/beatclash/beatclash/internal/eventbus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
)

const shutdownTimeout = 30 * time.Second

// App wires the database, event bus, scheduler and HTTP API together.
type App struct {
	Config            *config.Config
	Logger            *slog.Logger
	DB                *bun.DB
	EventBus          *eventbus.EventBus
	Router            *message.Router
	Registry          *prometheus.Registry
	CompetitionModule *competition.Module
	Server            *http.Server

	wg sync.WaitGroup
}

// NewLogger returns a JSON logger in production and a text logger elsewhere.
func NewLogger(cfg config.ObservabilityConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Environment, "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", cfg.ServiceName))
}

// OpenDB opens a bun connection over pgdriver.
func OpenDB(dsn string) *bun.DB {
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(pgdb, pgdialect.New())
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Observability)
	logger.InfoContext(ctx, "Initializing application",
		slog.String("environment", cfg.Observability.Environment),
		slog.String("scheduler_backend", cfg.Scheduler.Backend),
	)

	if cfg.JWT.Secret == "" {
		logger.WarnContext(ctx, "JWT secret is empty, API tokens can be forged")
	}

	db := OpenDB(cfg.Postgres.DSN)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	bus, err := eventbus.New(cfg.NATS.URL, map[string][]string{
		competitionevents.CompetitionStreamName: {competitionevents.CompetitionSubjects},
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	logger.InfoContext(ctx, "Event bus initialized", slog.String("backend", bus.Backend()))

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	module, err := competition.NewCompetitionModule(ctx, competition.Deps{
		Config:     cfg,
		Logger:     logger,
		Tracer:     otel.Tracer(cfg.Observability.ServiceName),
		Registry:   registry,
		DB:         db,
		Publisher:  bus.Publisher,
		Subscriber: bus.Subscriber,
		Router:     router,
	})
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize competition module: %w", err)
	}

	a := &App{
		Config:            cfg,
		Logger:            logger,
		DB:                db,
		EventBus:          bus,
		Router:            router,
		Registry:          registry,
		CompetitionModule: module,
	}
	a.Server = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the event router, the competition module and the HTTP server, then blocks
// until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	routerErr := make(chan error, 1)
	go func() {
		if err := a.Router.Run(ctx); err != nil {
			routerErr <- fmt.Errorf("watermill router stopped: %w", err)
		}
	}()

	select {
	case <-a.Router.Running():
	case err := <-routerErr:
		return err
	case <-ctx.Done():
		return nil
	}

	a.wg.Add(1)
	go a.CompetitionModule.Run(ctx, &a.wg)

	serverErr := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting HTTP server", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case err := <-routerErr:
		return err
	}
}

// Close shuts everything down in reverse start order.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Logger.Info("Shutting down application...")
	var errs []error

	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if a.CompetitionModule != nil {
		if err := a.CompetitionModule.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.wg.Wait()

	if a.EventBus != nil {
		if err := a.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus close: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("Application shut down with errors", slog.Any("error", err))
		return err
	}
	a.Logger.Info("Application shut down gracefully")
	return nil
}
