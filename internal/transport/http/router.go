// Package httptransport exposes payment signing, scan evaluation, and key
// export over HTTP.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"seqrpay/internal/platform/health"
	"seqrpay/internal/platform/middleware"
)

// RouterConfig collects everything mounted on the public router.
type RouterConfig struct {
	Handler *Handler
	Health  *health.Handler
	// Metrics serves /metrics when set.
	Metrics        http.Handler
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)
		cfg.Handler.Register(r)
	})
	return r
}
