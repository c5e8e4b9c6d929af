package competitionservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	competitiondomain "github.com/beatclash/beatclash/app/modules/competition/domain"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	competitiondb "github.com/beatclash/beatclash/app/modules/competition/infrastructure/repositories"
	"github.com/beatclash/beatclash/internal/eventbus"
	"github.com/beatclash/beatclash/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "CompetitionService"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CompetitionService implements the Service interface.
type CompetitionService struct {
	repo      competitiondb.Repository
	logger    *slog.Logger
	metrics   competitionmetrics.CompetitionMetrics
	tracer    trace.Tracer
	db        *bun.DB
	publisher message.Publisher
	clock     Clock
	opts      Options
}

// Option customises a CompetitionService.
type Option func(*CompetitionService)

// WithPublisher publishes lifecycle events after each committed transaction.
func WithPublisher(p message.Publisher) Option {
	return func(s *CompetitionService) { s.publisher = p }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *CompetitionService) { s.clock = c }
}

// WithOptions sets the competition rules.
func WithOptions(o Options) Option {
	return func(s *CompetitionService) { s.opts = o }
}

// NewCompetitionService creates a new CompetitionService.
func NewCompetitionService(
	repo competitiondb.Repository,
	logger *slog.Logger,
	metrics competitionmetrics.CompetitionMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	options ...Option,
) *CompetitionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CompetitionService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		clock:   SystemClock{},
		opts:    DefaultOptions(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func (s *CompetitionService) now() time.Time {
	return s.clock.Now().UTC()
}

// -----------------------------------------------------------------------------
// Outbox
// -----------------------------------------------------------------------------

type pendingEvent struct {
	topic   string
	payload any
}

type statusChange struct {
	from, to competitiondomain.Status
}

// outbox collects what a transaction wants announced. It is flushed only after commit.
type outbox struct {
	events  []pendingEvent
	changes []statusChange
}

func (o *outbox) add(topic string, payload any) {
	o.events = append(o.events, pendingEvent{topic: topic, payload: payload})
}

func (o *outbox) statusChanged(id uuid.UUID, from, to competitiondomain.Status, manual bool, at time.Time) {
	o.changes = append(o.changes, statusChange{from: from, to: to})
	o.add(competitionevents.StatusChangedV1, competitionevents.StatusChangedPayload{
		CompetitionID: id,
		From:          from.String(),
		To:            to.String(),
		Manual:        manual,
		ChangedAt:     at,
	})
}

func (o *outbox) reset() {
	if o == nil {
		return
	}
	o.events = nil
	o.changes = nil
}

// flush records transition metrics and publishes pending events. Publishing is
// best effort: the state change is already committed.
func (s *CompetitionService) flush(ctx context.Context, box *outbox) {
	if box == nil {
		return
	}
	defer box.reset()

	for _, c := range box.changes {
		if s.metrics != nil {
			s.metrics.RecordTransition(ctx, c.from.String(), c.to.String())
		}
	}
	if s.publisher == nil {
		return
	}
	for _, ev := range box.events {
		msg, err := eventbus.NewJSONMessage(ctx, ev.payload)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to build event", slog.String("topic", ev.topic), slog.Any("error", err))
			continue
		}
		if err := s.publisher.Publish(ev.topic, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish event", slog.String("topic", ev.topic), slog.Any("error", err))
		}
	}
}

// failureOrError routes domain errors into a failure result and leaves everything
// else as an infrastructure error.
func failureOrError[S any](err error) (results.OperationResult[S, error], error) {
	if IsDomainError(err) {
		return results.FailureResult[S, error](err), nil
	}
	return results.OperationResult[S, error]{}, err
}

// unwrap turns an operation result into the public (value, error) pair.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if !result.IsSuccess() {
		return zero, errors.New("operation returned no result")
	}
	return *result.Success, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *CompetitionService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {

	// Start span
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.DebugContext(ctx, "Operation triggered", slog.String("operation", operationName), slog.String("identifier", identifier))

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	// Handle Infrastructure Error
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	// Handle Domain Failure
	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}

	return result, nil
}

// errRollback aborts a transaction whose operation returned a domain failure.
var errRollback = errors.New("rollback on domain failure")

// runInTx runs fn in a transaction. A failure result rolls the transaction back; a
// success commits it and flushes box.
func runInTx[S any, F any](
	s *CompetitionService,
	ctx context.Context,
	box *outbox,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {

	if s.db == nil {
		result, err := fn(ctx, nil)
		if err != nil || !result.IsSuccess() {
			box.reset()
			return result, err
		}
		s.flush(ctx, box)
		return result, nil
	}

	var result results.OperationResult[S, F]

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		if txErr == nil && result.IsFailure() {
			return errRollback
		}
		return txErr
	})
	if errors.Is(err, errRollback) {
		box.reset()
		return result, nil
	}
	if err != nil {
		box.reset()
		return result, err
	}

	s.flush(ctx, box)
	return result, nil
}
