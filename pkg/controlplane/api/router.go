package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/pkg/controlplane/api/handlers"
)

// NewRouter configures the chi router with middleware and routes.
func NewRouter(catalog handlers.Catalog, ready handlers.ReadinessFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(catalog, ready)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	cat := handlers.NewCatalogHandler(catalog)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/peers", cat.Peers)
		r.Get("/documents", cat.Documents)
		r.Get("/stats", cat.Stats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.NotFound(w, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "the status API is read-only")
	})

	return r
}

// requestLogger logs every request through the internal logger. Probe
// traffic is logged at DEBUG.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}
		if strings.HasPrefix(r.URL.Path, "/health") {
			logger.Debug("API request completed", args...)
			return
		}
		logger.Info("API request completed", args...)
	})
}
