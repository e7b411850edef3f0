package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"marketlens/pkg/marketlens"
)

const maxRequestBodyBytes = 1 << 20

// Options configures NewRouter.
type Options struct {
	Core   *marketlens.Core
	Logger *slog.Logger
	// AccessKey guards the analyze routes. Empty disables the check.
	AccessKey string
	// CORSOrigins is the browser origin allow-list. Empty allows any origin
	// without credentials.
	CORSOrigins []string
	// ProviderName is reported by the health endpoint.
	ProviderName string
	// StreamHeartbeat is the keepalive interval for analysis streams. Zero
	// uses 15s.
	StreamHeartbeat time.Duration
}

// NewRouter builds the HTTP API router.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil && opts.Core != nil {
		logger = opts.Core.Logger()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))
	r.Use(limitBody(maxRequestBodyBytes))

	h := &handler{
		core:         opts.Core,
		logger:       logger,
		providerName: opts.ProviderName,
		heartbeat:    opts.StreamHeartbeat,
	}
	if h.heartbeat <= 0 {
		h.heartbeat = defaultStreamHeartbeat
	}

	r.Get("/api/health", h.health)
	r.Get("/api/market", h.getMarket)

	r.Group(func(r chi.Router) {
		r.Use(accessKeyMiddleware(opts.AccessKey))
		r.Post("/api/analyze", h.analyze)
		r.Post("/api/analyze/stream", h.analyzeStream)
	})

	return r
}

type handler struct {
	core         *marketlens.Core
	logger       *slog.Logger
	providerName string
	heartbeat    time.Duration
}

func corsOptions(origins []string) cors.Options {
	options := cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
	if len(origins) == 0 {
		options.AllowedOrigins = []string{"*"}
		return options
	}
	options.AllowedOrigins = origins
	options.AllowCredentials = true
	return options
}

func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
