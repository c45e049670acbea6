package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bulssi/profile-api/internal/api"
	apiMiddleware "github.com/bulssi/profile-api/internal/api/middleware"
	"github.com/bulssi/profile-api/internal/platform/logger"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(apiMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	analysisHandler := api.NewAnalysisHandler(app.analysisService, app.config.Storage.MaxUploadBytes)

	r.Post("/process-video", analysisHandler.SubmitVideo)
	r.Get("/tasks/{taskID}", analysisHandler.GetTask)
	r.Post("/analyze-video", analysisHandler.AnalyzeVideo)
	r.Get("/health", analysisHandler.Health)

	return r
}

// loggerMiddleware makes the application logger the base of every
// request-scoped logger.
func (app *application) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogger(r.Context(), app.logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
