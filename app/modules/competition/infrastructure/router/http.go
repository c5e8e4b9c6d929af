package competitionrouter

import (
	competitionhandlers "github.com/beatclash/beatclash/app/modules/competition/infrastructure/handlers"
	bcjwt "github.com/beatclash/beatclash/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the competition API on r.
func RegisterRoutes(r chi.Router, h competitionhandlers.Handlers, tokens bcjwt.Service, limiter *competitionhandlers.IPRateLimiter) {
	r.Get("/healthz", h.HandleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		if limiter != nil {
			r.Use(competitionhandlers.RateLimitMiddleware(limiter))
		}
		r.Use(competitionhandlers.AuthMiddleware(tokens))

		admin := competitionhandlers.RequireRole(bcjwt.RoleAdmin)

		r.Route("/competitions", func(r chi.Router) {
			r.With(admin).Get("/", h.HandleListCompetitions)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetCompetition)
				r.With(admin).Put("/status", h.HandleUpdateStatus)
				r.With(competitionhandlers.RequireRole(bcjwt.RoleAdmin, bcjwt.RoleJudge)).Post("/judgments", h.HandleSubmitJudgment)
				r.With(admin).Post("/judgments/convert", h.HandleConvertJudgments)
				r.Post("/votes", h.HandleSubmitVotes)
				r.With(competitionhandlers.RequireRole(bcjwt.RoleAdmin, bcjwt.RoleCreator)).Post("/picks", h.HandleRecordPicks)
			})
		})

		r.Route("/scheduler/jobs", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.HandleListJobs)
			r.Post("/{job}/run", h.HandleRunJob)
		})
	})
}
