package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(app *App) http.Handler {
	if app.Logger == nil {
		app.Logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	if app.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/ocr", func(r chi.Router) {
			r.Post("/upload", app.UploadHandler)
			r.Post("/duplicates/check", app.CheckDuplicatesHandler)

			r.Post("/review-sessions", app.CreateReviewSessionHandler)
			r.Get("/review-sessions/{id}", app.GetReviewSessionHandler)
			r.Post("/review-sessions/{id}/approve", app.ApproveReviewSessionHandler)
			r.Post("/review-sessions/{id}/reject", app.RejectReviewSessionHandler)
		})

		r.Route("/suppliers/patterns", func(r chi.Router) {
			r.Post("/analyze", app.AnalyzePatternsHandler)
			r.Post("/learn", app.LearnPatternHandler)
			r.Get("/{name}", app.GetSupplierPatternHandler)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", app.CreateProjectHandler)
			r.Get("/", app.ListProjectsHandler)
			r.Get("/{id}", app.GetProjectHandler)
			r.Get("/{id}/positions.xlsx", app.ExportPositionsHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/cleanup-temp", app.CleanupTempHandler)
			r.Post("/budget-sync", app.BudgetSyncHandler)
		})
	})

	return r
}
