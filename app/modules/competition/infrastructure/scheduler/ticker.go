package competitionscheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Backend drives the registered jobs on their schedules.
type Backend interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ Backend = (*TickerBackend)(nil)

// TickerBackend schedules jobs with in-process timers. Lifecycle jobs run once at start;
// the monthly job waits for its first slot.
type TickerBackend struct {
	driver *Driver
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickerBackend creates a ticker backend using the driver's clock.
func NewTickerBackend(driver *Driver, logger *slog.Logger) *TickerBackend {
	return &TickerBackend{
		driver: driver,
		clock:  driver.clock,
		logger: logger.With(slog.String("component", "ticker_scheduler")),
	}
}

// Start launches one loop per job and returns immediately.
func (t *TickerBackend) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return errors.New("ticker backend already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel

	for _, job := range t.driver.Jobs() {
		t.wg.Add(1)
		go t.loop(runCtx, job)
	}
	t.logger.Info("Ticker scheduler started", slog.Int("jobs", len(t.driver.jobs)))
	return nil
}

func (t *TickerBackend) loop(ctx context.Context, job Job) {
	defer t.wg.Done()

	if job.Name != JobMonthlyCompetition {
		t.run(ctx, job.Name)
	}
	for {
		now := t.clock.Now()
		wait := job.Schedule.Next(now).Sub(now)
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(wait):
			t.run(ctx, job.Name)
		}
	}
}

func (t *TickerBackend) run(ctx context.Context, name JobName) {
	if ctx.Err() != nil {
		return
	}
	if _, err := t.driver.Run(ctx, name); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Error("Scheduled job failed", slog.String("job", string(name)), slog.Any("error", err))
	}
}

// Stop cancels every loop and waits for in-flight runs, bounded by ctx.
func (t *TickerBackend) Stop(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.logger.Info("Ticker scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
