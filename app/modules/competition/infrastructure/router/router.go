package competitionrouter

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	competitionevents "github.com/beatclash/beatclash/app/modules/competition/domain/events"
	competitionhandlers "github.com/beatclash/beatclash/app/modules/competition/infrastructure/handlers"
	"github.com/prometheus/client_golang/prometheus"
)

// EventRouter registers the lifecycle event audit consumer on a watermill router.
type EventRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewEventRouter creates a new EventRouter. A nil registry disables router metrics.
func NewEventRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	registry prometheus.Registerer,
) *EventRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "beatclash", "events")
		metricsBuilder = &b
	}

	return &EventRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		metricsBuilder: metricsBuilder,
	}
}

// Configure sets up the router with handlers.
func (r *EventRouter) Configure(_ context.Context, handlers competitionhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}
	r.Router.AddMiddleware(middleware.Recoverer)

	topics := competitionevents.AllTopics()
	for _, topic := range topics {
		r.Router.AddNoPublisherHandler(
			"competition.audit."+topic,
			topic,
			r.subscriber,
			handlers.HandleLifecycleEvent,
		)
	}

	r.logger.Info("Competition event handlers registered", slog.Int("topics", len(topics)))
	return nil
}

// Run blocks until the router stops or ctx is cancelled.
func (r *EventRouter) Run(ctx context.Context) error {
	return r.Router.Run(ctx)
}

// Close shuts down the router.
func (r *EventRouter) Close() error {
	return r.Router.Close()
}
