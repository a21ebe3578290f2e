// Package httptransport assembles the public HTTP surface: the shared
// middleware chain plus every module's routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"landtrust/pkg/platform/middleware/request"
	"landtrust/pkg/platform/middleware/requesttime"
)

// Routes is implemented by every module handler.
type Routes interface {
	Register(r chi.Router)
}

// RouterConfig holds what NewRouter wires together.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *request.Metrics
	MetricsHandler http.Handler
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Modules        []Routes
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Latency(cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(request.BodyLimit(cfg.MaxBodyBytes))
	}
	r.Use(request.ContentTypeJSON)

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	for _, m := range cfg.Modules {
		m.Register(r)
	}
	return r
}
