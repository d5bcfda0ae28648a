package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"sheet-agent/internal/config"
	"sheet-agent/internal/handler"
	"sheet-agent/internal/middleware"
	"sheet-agent/internal/workbook"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, svc *workbook.Service) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handler.Health)

	h := handler.New(svc)
	r.Route("/workbooks", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/query", h.Query)
	})

	return r
}
