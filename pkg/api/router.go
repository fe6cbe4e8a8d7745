package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/pkg/api/handlers"
)

// Deps are the collaborators the status endpoints report on.
type Deps struct {
	// Stats provides the connection and transfer counters.
	Stats handlers.StatsSource

	// StorageRoot is checked by the readiness probe.
	StorageRoot string

	// Ready reports whether the file server is listening. Optional.
	Ready handlers.ReadyFunc

	// Registry is exposed on /metrics. nil disables the endpoint.
	Registry *prometheus.Registry
}

// NewRouter creates the chi router with middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /stats - Performance counters
//   - GET /metrics - Prometheus exposition (when a registry is set)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := handlers.NewHealthHandler(deps.StorageRoot, deps.Ready)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Get("/stats", handlers.NewStatsHandler(deps.Stats).Get)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{
			Registry: deps.Registry,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger: start at
// DEBUG, completion at DEBUG for probes and scrapes, INFO otherwise.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("Status request started",
			"request_id", requestID,
			"method", r.Method,
			logger.KeyPath, r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", requestID,
			"method", r.Method,
			logger.KeyPath, r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		}
		switch r.URL.Path {
		case "/metrics", "/health", "/health/", "/health/ready":
			logger.Debug("Status request completed", args...)
		default:
			logger.Info("Status request completed", args...)
		}
	})
}
