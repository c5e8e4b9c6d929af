package competitionscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
	"github.com/uptrace/bun"
)

const (
	// QueueName is the River queue lifecycle jobs run on.
	QueueName = "competition"

	defaultJobTimeout = 10 * time.Minute
)

// LifecycleJobArgs is the River payload for one scheduled job invocation.
type LifecycleJobArgs struct {
	Job JobName `json:"job"`
}

// Kind returns the job type identifier for River
func (LifecycleJobArgs) Kind() string { return "competition_lifecycle" }

// LifecycleWorker hands River jobs to the driver.
type LifecycleWorker struct {
	river.WorkerDefaults[LifecycleJobArgs]
	driver  *Driver
	timeout time.Duration
}

// NewLifecycleWorker creates the River worker for lifecycle jobs.
func NewLifecycleWorker(driver *Driver, timeout time.Duration) *LifecycleWorker {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &LifecycleWorker{driver: driver, timeout: timeout}
}

func (w *LifecycleWorker) Timeout(*river.Job[LifecycleJobArgs]) time.Duration {
	return w.timeout
}

// Work runs the job once. Per-competition failures are already counted by the driver and
// retried on the next periodic slot, so only whole-job failures are returned to River.
func (w *LifecycleWorker) Work(ctx context.Context, job *river.Job[LifecycleJobArgs]) error {
	_, err := w.driver.Run(ctx, job.Args.Job)
	return err
}

// RiverConfig holds the River backend settings.
type RiverConfig struct {
	DSN        string
	MaxWorkers int
	JobTimeout time.Duration
}

// JobInfo describes a lifecycle job row in River's job table.
type JobInfo struct {
	ID          int64  `json:"id"`
	Job         string `json:"job"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}

var _ Backend = (*RiverBackend)(nil)

// RiverBackend schedules jobs as River periodic jobs on Postgres.
type RiverBackend struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	db      *bun.DB
	logger  *slog.Logger
	metrics competitionmetrics.CompetitionMetrics
}

// insertOpts keeps at most one pending or running row per job so a slow run suppresses
// the next periodic insert.
func insertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// PeriodicJobs builds one River periodic job per registered job.
func PeriodicJobs(driver *Driver) []*river.PeriodicJob {
	jobs := driver.Jobs()
	out := make([]*river.PeriodicJob, 0, len(jobs))
	for _, j := range jobs {
		name := j.Name
		out = append(out, river.NewPeriodicJob(
			j.Schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return LifecycleJobArgs{Job: name}, insertOpts()
			},
			&river.PeriodicJobOpts{RunOnStart: name != JobMonthlyCompetition},
		))
	}
	return out
}

// NewRiverBackend opens a pgx pool and builds a River client running the driver's jobs.
func NewRiverBackend(ctx context.Context, bunDB *bun.DB, driver *Driver, cfg RiverConfig, logger *slog.Logger, metrics competitionmetrics.CompetitionMetrics) (*RiverBackend, error) {
	ctxLogger := logger.With(
		slog.String("operation", "new_river_scheduler"),
		slog.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing River scheduler")

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewLifecycleWorker(driver, cfg.JobTimeout))

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: maxWorkers},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(driver),
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("River scheduler initialized", slog.Int("periodic_jobs", len(driver.jobs)))
	return &RiverBackend{
		client:  riverClient,
		pool:    pool,
		db:      bunDB,
		logger:  ctxLogger,
		metrics: metrics,
	}, nil
}

// Start starts the River client.
func (s *RiverBackend) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	s.logger.Info("River scheduler started")
	return nil
}

// Stop waits for running jobs to finish, then closes the pool.
func (s *RiverBackend) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))
	s.logger.Info("River scheduler stopped")
	return nil
}

// HealthCheck pings the River pool.
func (s *RiverBackend) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("river pool unhealthy: %w", err)
	}
	return nil
}

// RecentJobs lists the latest lifecycle job rows, newest first.
func (s *RiverBackend) RecentJobs(ctx context.Context, limit int) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64             `bun:"id"`
		State       string            `bun:"state"`
		Args        map[string]string `bun:"args"`
		ScheduledAt *time.Time        `bun:"scheduled_at"`
		CreatedAt   time.Time         `bun:"created_at"`
		Attempt     int16             `bun:"attempt"`
		MaxAttempts int16             `bun:"max_attempts"`
	}

	if limit <= 0 {
		limit = 50
	}
	var rows []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "state", "args", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", LifecycleJobArgs{}.Kind()).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		s.logger.Error("Failed to query lifecycle jobs", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query lifecycle jobs: %w", err)
	}

	out := make([]JobInfo, len(rows))
	for i, r := range rows {
		scheduledAt := ""
		if r.ScheduledAt != nil {
			scheduledAt = r.ScheduledAt.Format(time.RFC3339)
		}
		out[i] = JobInfo{
			ID:          r.ID,
			Job:         r.Args["job"],
			State:       r.State,
			ScheduledAt: scheduledAt,
			CreatedAt:   r.CreatedAt.Format(time.RFC3339),
			Attempt:     int(r.Attempt),
			MaxAttempts: int(r.MaxAttempts),
		}
	}
	return out, nil
}

// MigrateRiver applies River's schema migrations and returns the versions it ran.
func MigrateRiver(ctx context.Context, dsn string) ([]int, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return nil, fmt.Errorf("failed to run River migrations: %w", err)
	}

	versions := make([]int, len(res.Versions))
	for i, v := range res.Versions {
		versions[i] = v.Version
	}
	return versions, nil
}
