package app

import (
	"net/http"

	competitionhandlers "github.com/beatclash/beatclash/app/modules/competition/infrastructure/handlers"
	competitionrouter "github.com/beatclash/beatclash/app/modules/competition/infrastructure/router"
	bcjwt "github.com/beatclash/beatclash/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Handler builds the HTTP API: the competition routes plus /metrics.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}))

	var limiter *competitionhandlers.IPRateLimiter
	if a.Config.HTTP.RateLimitPerSecond > 0 {
		limiter = competitionhandlers.NewIPRateLimiter(rate.Limit(a.Config.HTTP.RateLimitPerSecond), a.Config.HTTP.RateLimitBurst)
	}

	tokens := bcjwt.NewService(a.Config.JWT.Secret, a.Config.JWT.DefaultTTL)
	competitionrouter.RegisterRoutes(r, a.CompetitionModule.Handlers, tokens, limiter)
	return r
}
