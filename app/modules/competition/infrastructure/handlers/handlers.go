package competitionhandlers

import (
	"log/slog"

	competitionservice "github.com/beatclash/beatclash/app/modules/competition/application"
	competitionmetrics "github.com/beatclash/beatclash/app/modules/competition/infrastructure/metrics"
	"go.opentelemetry.io/otel/trace"
)

// CompetitionHandlers implements the Handlers interface.
type CompetitionHandlers struct {
	service competitionservice.Service
	jobs    JobRunner
	metrics competitionmetrics.CompetitionMetrics
	logger  *slog.Logger
	tracer  trace.Tracer

	history JobHistory
	checks  map[string]HealthCheckFunc
}

// Option configures CompetitionHandlers.
type Option func(*CompetitionHandlers)

// WithJobHistory adds persisted job rows to the job listing.
func WithJobHistory(hist JobHistory) Option {
	return func(h *CompetitionHandlers) { h.history = hist }
}

// WithHealthCheck adds a named dependency check to the health endpoint.
func WithHealthCheck(name string, check HealthCheckFunc) Option {
	return func(h *CompetitionHandlers) {
		if h.checks == nil {
			h.checks = make(map[string]HealthCheckFunc)
		}
		h.checks[name] = check
	}
}

// NewCompetitionHandlers creates a new CompetitionHandlers instance.
func NewCompetitionHandlers(
	service competitionservice.Service,
	jobs JobRunner,
	metrics competitionmetrics.CompetitionMetrics,
	logger *slog.Logger,
	tracer trace.Tracer,
	opts ...Option,
) Handlers {
	h := &CompetitionHandlers{
		service: service,
		jobs:    jobs,
		metrics: metrics,
		logger:  logger,
		tracer:  tracer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
