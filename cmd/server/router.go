package main

import (
	"log/slog"
	"net/http"

	"github.com/cardforge/cardforge-api/internal/api"
	apiMiddleware "github.com/cardforge/cardforge-api/internal/api/middleware"
	"github.com/cardforge/cardforge-api/internal/quota"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/service/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// newRouter builds the application router with all routes and middleware.
func newRouter(
	jobService service.JobService,
	ledger *quota.Ledger,
	jwtService auth.JWTService,
	log *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	jobHandler := api.NewJobHandler(jobService, log)
	quotaHandler := api.NewQuotaHandler(ledger, log)
	authMiddleware := apiMiddleware.NewAuthMiddleware(jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/jobs", jobHandler.SubmitJob)
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/stats", jobHandler.GetStats)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Post("/jobs/{id}/cancel", jobHandler.CancelJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)

			r.Get("/quota", quotaHandler.GetQuota)
			r.Get("/quota/check", quotaHandler.CheckProcessing)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.Any("error", err))
		}
	})

	return r
}
