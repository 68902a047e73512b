package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/pkg/metrics"
)

// NewRouter builds the chi router with the middleware stack and routes.
//
// Routes:
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (pings the directory)
//   - GET /api/v1/avatars/{address} - Rendered avatar
//   - GET /api/v1/cache/stats - Cache and worker pool statistics
//   - DELETE /api/v1/cache - Drop every cached avatar
//   - DELETE /api/v1/cache/{address} - Drop one cached avatar
//   - GET {metricsPath} - Prometheus metrics, when enabled
func NewRouter(avatars Avatars, directory HealthChecker, cfg Config) http.Handler {
	cfg.applyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	healthHandler := NewHealthHandler(directory)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, cfg.MetricsPath, metrics.Handler())
	}

	avatarHandler := NewAvatarHandler(avatars)
	cacheHandler := NewCacheHandler(avatars)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/avatars/{address}", avatarHandler.Get)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", cacheHandler.Stats)
			r.Delete("/", cacheHandler.Purge)
			r.Delete("/{address}", cacheHandler.Invalidate)
		})
	})

	return r
}

func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs each request through the internal logger. Health
// checks are logged at DEBUG so orchestrator polling stays out of the logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyClientIP, r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			logger.KeyRequestID, requestID,
			logger.KeyMethod, r.Method,
			logger.KeyPath, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyBytes, ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		}
		if src := ww.Header().Get(HeaderAvatarSource); src != "" {
			logArgs = append(logArgs, logger.KeySource, src)
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
