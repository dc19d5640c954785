package router

import (
	"github.com/adityasasidhar/Document-ocr/internal/handler"
	mw "github.com/adityasasidhar/Document-ocr/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// New wires the web app routes. The diagnostics route is only mounted on
// serverless deployments.
func New(h *handler.Handler, diagnostics bool) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.Recoverer(h.InternalError))
	r.Use(mw.Logger)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/", h.Index)
	r.Post("/upload", h.Upload)
	r.Get("/download/{filename}", h.Download)
	r.Get("/health", h.Health)
	r.Get("/fix-dirs", h.FixDirs)
	if diagnostics {
		r.Get("/test", h.Test)
	}

	return r
}
