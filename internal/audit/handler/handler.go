package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditsvc "hrcore/internal/audit"
	"hrcore/internal/platform/metrics"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/httputil"
	authmw "hrcore/pkg/platform/middleware/auth"
	request "hrcore/pkg/platform/middleware/request"
)

// Service defines the audit-log read operations.
type Service interface {
	List(ctx context.Context, req auditsvc.ListRequest) (*audit.PageResult, error)
	Get(ctx context.Context, id string) (*audit.Envelope, error)
}

// Handler serves the audit trail.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator authmw.JWTValidator
}

// New creates a new audit-log Handler.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator authmw.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the audit-log routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(metrics.LatencyMiddleware(h.metrics))
		r.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
		r.Get("/audit-logs", h.handleList)
		r.Get("/audit-logs/{id}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := auditsvc.ParseListRequest(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid audit log query",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, env)
}
