package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrcore/internal/platform/metrics"
	"hrcore/internal/salary/models"
	"hrcore/pkg/platform/audit/emitter"
	"hrcore/pkg/platform/httputil"
	authmw "hrcore/pkg/platform/middleware/auth"
	request "hrcore/pkg/platform/middleware/request"
)

// Service defines the salary operations the handler exposes.
type Service interface {
	Create(ctx context.Context, salary models.Salary) (*models.Salary, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Salary, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Salary, error)
}

// ErrorRecorder turns failures into audited error descriptors.
type ErrorRecorder interface {
	EmitError(ctx context.Context, err error, contextMessage string) (emitter.ErrorDescriptor, error)
}

// Handler serves salary grades.
type Handler struct {
	logger       *slog.Logger
	service      Service
	errors       ErrorRecorder
	metrics      *metrics.Metrics
	jwtValidator authmw.JWTValidator
}

// New creates a new salary Handler.
func New(
	service Service,
	errors ErrorRecorder,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator authmw.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		errors:       errors,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the salary routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(metrics.LatencyMiddleware(h.metrics))
		r.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/salaries", h.handleCreate)
		r.Get("/salaries/{id}", h.handleGet)
		r.Patch("/salaries/{id}", h.handleUpdate)
		r.Delete("/salaries/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSalaryRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		h.writeFailure(w, r, err, "salary.create")
		return
	}
	req.Normalize()

	salary, err := h.service.Create(r.Context(), req.ToModel())
	if err != nil {
		h.writeFailure(w, r, err, "salary.create")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, salary)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	salary, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, r, err, "salary.get")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, salary)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch models.Patch
	if err := decodeJSON(r.Body, &patch); err != nil {
		h.writeFailure(w, r, err, "salary.update")
		return
	}

	salary, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeFailure(w, r, err, "salary.update")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, salary)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeFailure(w, r, err, "salary.delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFailure records err as an ERROR envelope and answers with its
// descriptor. A failed audit write is logged; the client still gets the
// descriptor, without an auditId.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error, operation string) {
	ctx := r.Context()
	desc, emitErr := h.errors.EmitError(ctx, err, operation)
	if emitErr != nil {
		h.logger.ErrorContext(ctx, "failed to audit error",
			"request_id", request.GetRequestID(ctx),
			"operation", operation,
			"error", emitErr,
		)
	}
	h.logger.WarnContext(ctx, "salary request failed",
		"request_id", request.GetRequestID(ctx),
		"operation", operation,
		"code", desc.Code,
		"error", err,
	)
	httputil.WriteJSON(w, httputil.StatusFor(desc.Code), desc)
}
