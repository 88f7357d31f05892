// Package httpapi assembles the HTTP surface: shared middleware, health and
// metrics endpoints, and the domain handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrcore/internal/platform/metrics"
	dErrors "hrcore/pkg/domain-errors"
	"hrcore/pkg/platform/httputil"
	"hrcore/pkg/platform/middleware/metadata"
	request "hrcore/pkg/platform/middleware/request"
	"hrcore/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by domain handlers.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options wires the router's collaborators. Metrics and Health are optional.
type Options struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Health         HealthCheck
	Handlers       []Registrar
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(opts.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(opts.Logger))
	r.Use(request.ContentTypeJSON)
	if opts.RequestTimeout > 0 {
		r.Use(request.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", handleHealth(opts.Logger, opts.Health))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}
	for _, h := range opts.Handlers {
		h.Register(r)
	}
	return r
}

func handleHealth(logger *slog.Logger, check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if check != nil {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"request_id", request.GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unavailable"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
