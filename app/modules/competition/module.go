package competition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitionhandlers "github.com/beatclash/beatclash/app/modules/competition/infrastructure/handlers"
	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	competitionrouter "github.com/beatclash/beatclash/app/modules/competition/infrastructure/router"
	competitionscheduler "github.com/beatclash/beatclash/app/modules/competition/infrastructure/scheduler"
	"github.com/beatclash/beatclash/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the shared resources the module is built from.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Registry   prometheus.Registerer
	DB         *bun.DB
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Router     *message.Router
}

// Module represents the competition module.
type Module struct {
	Service     competitionservice.Service
	Handlers    competitionhandlers.Handlers
	Driver      *competitionscheduler.Driver
	Scheduler   competitionscheduler.Backend
	EventRouter *competitionrouter.EventRouter

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewCompetitionModule creates and initializes a new competition module.
func NewCompetitionModule(ctx context.Context, deps Deps) (*Module, error) {
	cfg := deps.Config
	logger := deps.Logger

	logger.InfoContext(ctx, "competition.NewCompetitionModule initializing")

	// 1. Initialize Repository
	repo := competitiondb.NewRepository(deps.DB)

	// 2. Initialize Metrics
	var metrics competitionmetrics.CompetitionMetrics = competitionmetrics.NoOpMetrics{}
	if deps.Registry != nil {
		metrics = competitionmetrics.NewPrometheusMetrics(deps.Registry, cfg.Observability.ServiceName)
	}

	// 3. Initialize Service
	service := competitionservice.NewCompetitionService(
		repo,
		logger,
		metrics,
		deps.Tracer,
		deps.DB,
		competitionservice.WithPublisher(deps.Publisher),
		competitionservice.WithOptions(ServiceOptions(cfg.Competition)),
	)

	// 4. Initialize Scheduler
	driver := competitionscheduler.NewDriver(
		service,
		competitionscheduler.DefaultJobs(competitionscheduler.Timing{
			CheckFrequency: cfg.Scheduler.CheckFrequency(),
			Round1Voting:   cfg.Competition.Round1Voting(),
			Round2Voting:   cfg.Competition.Round2Voting(),
		}),
		metrics,
		logger,
		competitionscheduler.WithPageSize(cfg.Scheduler.PageSize),
		competitionscheduler.WithMonthlyCreation(cfg.Competition.AutoCreateMonthly),
	)

	handlerOpts := []competitionhandlers.Option{
		competitionhandlers.WithHealthCheck("database", deps.DB.PingContext),
	}

	var backend competitionscheduler.Backend
	switch cfg.Scheduler.Backend {
	case config.SchedulerBackendTicker:
		backend = competitionscheduler.NewTickerBackend(driver, logger)
	default:
		rb, err := competitionscheduler.NewRiverBackend(ctx, deps.DB, driver, competitionscheduler.RiverConfig{
			DSN:        cfg.Postgres.DSN,
			MaxWorkers: cfg.Scheduler.MaxWorkers,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize river scheduler: %w", err)
		}
		backend = rb
		handlerOpts = append(handlerOpts,
			competitionhandlers.WithHealthCheck("river", rb.HealthCheck),
			competitionhandlers.WithJobHistory(rb),
		)
	}

	// 5. Initialize Handlers
	handlers := competitionhandlers.NewCompetitionHandlers(service, driver, metrics, logger, deps.Tracer, handlerOpts...)

	// 6. Initialize Router
	eventRouter := competitionrouter.NewEventRouter(logger, deps.Router, deps.Subscriber, deps.Registry)
	if err := eventRouter.Configure(ctx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure competition router: %w", err)
	}

	return &Module{
		Service:     service,
		Handlers:    handlers,
		Driver:      driver,
		Scheduler:   backend,
		EventRouter: eventRouter,
		logger:      logger,
	}, nil
}

// ServiceOptions maps the competition settings onto the service rules.
func ServiceOptions(c config.CompetitionConfig) competitionservice.Options {
	return competitionservice.Options{
		MinSubmissions:          c.MinSubmissions,
		GroupSize:               c.GroupSize,
		AdvancePerGroup:         c.AdvancePerGroup,
		Round1Voting:            c.Round1Voting(),
		Round2Voting:            c.Round2Voting(),
		MonthlySubmissionWindow: c.MonthlySubmissionWindow,
	}
}

// Run starts the scheduler and blocks until ctx is cancelled or Close is called.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting competition module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	// The scheduler outlives ctx so Close can drain running jobs.
	if err := m.Scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		m.logger.ErrorContext(ctx, "Failed to start competition scheduler", slog.Any("error", err))
		return
	}

	<-ctx.Done()
	m.logger.Info("Competition module goroutine stopped")
}

// Close shuts down the competition module. ctx bounds how long running jobs may take to finish.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping competition module")

	if m.Scheduler != nil {
		if err := m.Scheduler.Stop(ctx); err != nil {
			m.logger.Error("Error stopping competition scheduler", slog.Any("error", err))
			return fmt.Errorf("error stopping competition scheduler: %w", err)
		}
	}

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.EventRouter != nil {
		if err := m.EventRouter.Close(); err != nil {
			m.logger.Error("Error closing EventRouter from module", slog.Any("error", err))
			return fmt.Errorf("error closing EventRouter: %w", err)
		}
	}

	m.logger.Info("Competition module stopped")
	return nil
}
