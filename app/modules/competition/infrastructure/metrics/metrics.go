package competitionmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CompetitionMetrics records service, transition and scheduler activity.
type CompetitionMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordTransition(ctx context.Context, from, to string)
	RecordJobRun(ctx context.Context, job string, processed, failed int, duration time.Duration)
	RecordJobSkipped(ctx context.Context, job string)
	RecordEventObserved(ctx context.Context, topic string)
}

// PrometheusMetrics implements CompetitionMetrics with prometheus collectors.
type PrometheusMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
	jobCompetitions   *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	jobSkips          *prometheus.CounterVec
	events            *prometheus.CounterVec
}

var _ CompetitionMetrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competition",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"service", "operation", "outcome"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "competition",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competition",
			Name:      "transitions_total",
			Help:      "Committed status transitions.",
		}, []string{"from", "to"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Completed scheduler job runs.",
		}, []string{"job"}),
		jobCompetitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_competitions_total",
			Help:      "Competitions handled by scheduler jobs by outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduler job run latency.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		jobSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_skipped_total",
			Help:      "Job triggers skipped because the previous run was still active.",
		}, []string{"job"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competition",
			Name:      "events_observed_total",
			Help:      "Lifecycle events seen by the audit consumer.",
		}, []string{"topic"}),
	}

	reg.MustRegister(
		m.operations,
		m.operationDuration,
		m.transitions,
		m.jobRuns,
		m.jobCompetitions,
		m.jobDuration,
		m.jobSkips,
		m.events,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "attempt").Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "success").Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.operations.WithLabelValues(service, operation, "failure").Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.operationDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTransition(_ context.Context, from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *PrometheusMetrics) RecordJobRun(_ context.Context, job string, processed, failed int, duration time.Duration) {
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobCompetitions.WithLabelValues(job, "processed").Add(float64(processed))
	m.jobCompetitions.WithLabelValues(job, "failed").Add(float64(failed))
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordJobSkipped(_ context.Context, job string) {
	m.jobSkips.WithLabelValues(job).Inc()
}

func (m *PrometheusMetrics) RecordEventObserved(_ context.Context, topic string) {
	m.events.WithLabelValues(topic).Inc()
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

var _ CompetitionMetrics = NoOpMetrics{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordTransition(context.Context, string, string)                       {}
func (NoOpMetrics) RecordJobRun(context.Context, string, int, int, time.Duration)          {}
func (NoOpMetrics) RecordJobSkipped(context.Context, string)                               {}
func (NoOpMetrics) RecordEventObserved(context.Context, string)                            {}
