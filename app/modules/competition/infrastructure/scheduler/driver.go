package competitionscheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
)

const defaultPageSize = 50

// ErrUnknownJob is returned by Run for a name no job is registered under.
var ErrUnknownJob = errors.New("unknown scheduler job")

// Clock is the time source for the driver and the ticker backend.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now().UTC() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RunReport summarises one job invocation.
type RunReport struct {
	Job       JobName       `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Scanned   int           `json:"scanned"`
	Due       int           `json:"due"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   bool          `json:"skipped"`
}

type jobState struct {
	job     Job
	running atomic.Bool
}

// Driver runs lifecycle jobs against the competition service. Each job is
// non-reentrant: an invocation that finds the previous one still running is skipped.
type Driver struct {
	svc           competitionservice.Service
	metrics       competitionmetrics.CompetitionMetrics
	logger        *slog.Logger
	clock         Clock
	pageSize      int
	createMonthly bool
	jobs          map[JobName]*jobState

	mu   sync.Mutex
	last map[JobName]RunReport
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock overrides the time source.
func WithClock(c Clock) DriverOption {
	return func(d *Driver) { d.clock = c }
}

// WithPageSize sets how many competitions are read per page.
func WithPageSize(n int) DriverOption {
	return func(d *Driver) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// WithMonthlyCreation enables the monthly_competition job.
func WithMonthlyCreation(enabled bool) DriverOption {
	return func(d *Driver) { d.createMonthly = enabled }
}

// NewDriver builds a driver for the given jobs. The monthly creation job is always registered
// and does nothing unless enabled.
func NewDriver(svc competitionservice.Service, jobs []Job, metrics competitionmetrics.CompetitionMetrics, logger *slog.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		svc:      svc,
		metrics:  metrics,
		logger:   logger,
		clock:    SystemClock{},
		pageSize: defaultPageSize,
		jobs:     make(map[JobName]*jobState, len(jobs)+1),
		last:     make(map[JobName]RunReport),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, j := range jobs {
		d.jobs[j.Name] = &jobState{job: j}
	}
	if _, ok := d.jobs[JobMonthlyCompetition]; !ok {
		d.jobs[JobMonthlyCompetition] = &jobState{job: Job{
			Name:     JobMonthlyCompetition,
			Schedule: Monthly(5 * time.Minute),
		}}
	}
	return d
}

// Jobs returns the registered jobs sorted by name.
func (d *Driver) Jobs() []Job {
	out := make([]Job, 0, len(d.jobs))
	for _, st := range d.jobs {
		out = append(out, st.job)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// LastReports returns the most recent report of every job that has run.
func (d *Driver) LastReports() []RunReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]RunReport, 0, len(d.last))
	for _, r := range d.last {
		out = append(out, r)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Job < out[k].Job })
	return out
}

// Run executes one invocation of the named job. A skipped invocation returns a report
// with Skipped set and no error. The error is non-nil only when the job cannot run at all;
// per-competition failures are counted in the report.
func (d *Driver) Run(ctx context.Context, name JobName) (RunReport, error) {
	st, ok := d.jobs[name]
	if !ok {
		return RunReport{Job: name}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	logger := d.logger.With(slog.String("job", string(name)))
	report := RunReport{Job: name, StartedAt: d.clock.Now()}

	if !st.running.CompareAndSwap(false, true) {
		report.Skipped = true
		d.metrics.RecordJobSkipped(ctx, string(name))
		logger.InfoContext(ctx, "Job still running, skipping invocation")
		return report, nil
	}
	defer st.running.Store(false)

	start := time.Now()
	var err error
	if name == JobMonthlyCompetition {
		err = d.runMonthly(ctx, logger, &report)
	} else {
		err = d.runLifecycle(ctx, logger, st.job, &report)
	}
	report.Duration = time.Since(start)

	d.metrics.RecordJobRun(ctx, string(name), report.Processed, report.Failed, report.Duration)
	d.mu.Lock()
	d.last[name] = report
	d.mu.Unlock()

	if err != nil {
		logger.ErrorContext(ctx, "Job run failed", slog.Any("error", err))
		return report, err
	}
	logger.InfoContext(ctx, "Job run finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("due", report.Due),
		slog.Int("processed", report.Processed),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

func (d *Driver) runLifecycle(ctx context.Context, logger *slog.Logger, job Job, report *RunReport) error {
	// Collect every candidate before acting: transitions move competitions out of the
	// status being paged.
	candidates, err := d.candidates(ctx, job)
	if err != nil {
		return err
	}
	report.Scanned = len(candidates)

	now := d.clock.Now()
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if job.Due != nil && !job.Due(c, now) {
			continue
		}
		report.Due++

		if err := job.Run(ctx, d.svc, c.ID); err != nil {
			report.Failed++
			attrs := []any{slog.String("competition_id", c.ID.String()), slog.Any("error", err)}
			if errors.Is(err, competitionservice.ErrInvalidStateTransition) || errors.Is(err, competitionservice.ErrInsufficientData) {
				logger.WarnContext(ctx, "Competition not advanced", attrs...)
			} else {
				logger.ErrorContext(ctx, "Competition job failed", attrs...)
			}
			continue
		}
		report.Processed++
	}
	return nil
}

func (d *Driver) candidates(ctx context.Context, job Job) ([]*competitiondb.Competition, error) {
	var all []*competitiondb.Competition
	for page := 1; ; page++ {
		batch, err := d.svc.ListCompetitionsByStatus(ctx, string(job.Status), page, d.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s competitions: %w", job.Status, err)
		}
		all = append(all, batch...)
		if len(batch) < d.pageSize {
			return all, nil
		}
	}
}

func (d *Driver) runMonthly(ctx context.Context, logger *slog.Logger, report *RunReport) error {
	if !d.createMonthly {
		logger.DebugContext(ctx, "Monthly competition creation disabled")
		return nil
	}
	report.Scanned, report.Due = 1, 1
	res, err := d.svc.CreateMonthlyCompetition(ctx, d.clock.Now())
	if err != nil {
		report.Failed = 1
		return err
	}
	report.Processed = 1
	if res.Created {
		logger.InfoContext(ctx, "Monthly competition created",
			slog.String("competition_id", res.Competition.ID.String()),
			slog.String("title", res.Competition.Title),
		)
	}
	return nil
}
