package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/fokal/curator/internal/api/middleware"
	"github.com/fokal/curator/internal/service"
)

// NewRouter builds the application router with all routes and middleware.
func NewRouter(curator *service.Curator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(logger))

	imageHandler := NewImageHandler(curator, logger)
	strategyHandler := NewStrategyHandler(curator, logger)
	systemHandler := NewSystemHandler(curator, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/images", imageHandler.SubmitImages)
		r.Post("/images/{id}/mark", imageHandler.MarkImage)
		r.Delete("/images/{id}/mark", imageHandler.UnmarkImage)
		r.Get("/images/{id}/narrative", imageHandler.GetNarrative)

		r.Post("/viewport", imageHandler.UpdateViewport)

		r.Get("/strategy", strategyHandler.GetStrategies)
		r.Put("/strategy", strategyHandler.SetStrategy)

		r.Get("/stats", systemHandler.GetStats)
		r.Get("/events", systemHandler.GetEvents)
		r.Post("/export", systemHandler.Export)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
