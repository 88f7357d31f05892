// Package service runs salary-grade mutations through the audit pipeline.
//
// Every mutation is audited synchronously. When the audit write fails, the
// mutation is undone and the caller gets CodeUnavailable, so no salary change
// exists without its envelope.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"hrcore/internal/platform/metrics"
	"hrcore/internal/salary/models"
	dErrors "hrcore/pkg/domain-errors"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/emitter"
	"hrcore/pkg/platform/audit/merge"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/platform/sentinel"
)

// Store persists salary grades. FindByID and Delete return
// sentinel.ErrNotFound for unknown IDs.
type Store interface {
	Save(ctx context.Context, salary *models.Salary) error
	FindByID(ctx context.Context, id string) (*models.Salary, error)
	Delete(ctx context.Context, id string) error
}

// Service orchestrates salary-grade changes and their audit trail.
type Service struct {
	salaries Store
	audit    *emitter.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(salaries Store, auditEmitter *emitter.Emitter, opts ...Option) *Service {
	s := &Service{
		salaries: salaries,
		audit:    auditEmitter,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new grade under a fresh ID and audits it.
func (s *Service) Create(ctx context.Context, salary models.Salary) (*models.Salary, error) {
	if err := salary.Validate(); err != nil {
		return nil, err
	}
	salary.ID = uuid.NewString()

	if err := s.salaries.Save(ctx, &salary); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save salary")
	}
	if _, err := s.audit.RecordCreate(ctx, models.EntityType, salary.ID, &salary); err != nil {
		s.rollback(ctx, salary.ID, func() error { return s.salaries.Delete(ctx, salary.ID) })
		return nil, auditFailure(err)
	}

	s.metrics.IncSalaryMutation(string(audit.ActionCreate))
	return &salary, nil
}

// Update merges patch onto the stored grade. Absent (nil) patch fields keep
// their value; the ID cannot be changed.
func (s *Service) Update(ctx context.Context, id string, patch models.Patch) (*models.Salary, error) {
	if patch.ID != nil && *patch.ID != id {
		return nil, dErrors.New(dErrors.CodeValidation, "id cannot be changed")
	}
	patch.ID = nil

	before, err := s.salaries.FindByID(ctx, id)
	if err != nil {
		return nil, wrapSalaryErr(err)
	}
	after, err := applyPatch(before, patch)
	if err != nil {
		return nil, err
	}
	if err := after.Validate(); err != nil {
		return nil, err
	}

	if err := s.salaries.Save(ctx, after); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save salary")
	}
	envelope, err := s.audit.RecordUpdate(ctx, models.EntityType, id, before, after)
	if err != nil {
		s.rollback(ctx, id, func() error { return s.salaries.Save(ctx, before) })
		return nil, auditFailure(err)
	}
	for _, warning := range envelope.ContractWarnings() {
		s.logger.WarnContext(ctx, "audit contract warning",
			"entity_type", models.EntityType,
			"entity_id", id,
			"warning", warning,
		)
	}

	s.metrics.IncSalaryMutation(string(audit.ActionUpdate))
	return after, nil
}

// Delete removes the grade and audits its last state.
func (s *Service) Delete(ctx context.Context, id string) error {
	before, err := s.salaries.FindByID(ctx, id)
	if err != nil {
		return wrapSalaryErr(err)
	}
	if err := s.salaries.Delete(ctx, id); err != nil {
		return wrapSalaryErr(err)
	}
	if _, err := s.audit.RecordDelete(ctx, models.EntityType, id, before); err != nil {
		s.rollback(ctx, id, func() error { return s.salaries.Save(ctx, before) })
		return auditFailure(err)
	}

	s.metrics.IncSalaryMutation(string(audit.ActionDelete))
	return nil
}

// Get returns one grade and records the read in the access log. A read whose
// access entry cannot be stored is refused.
func (s *Service) Get(ctx context.Context, id string) (*models.Salary, error) {
	salary, err := s.salaries.FindByID(ctx, id)
	if err != nil {
		return nil, wrapSalaryErr(err)
	}
	if _, err := s.audit.EmitView(ctx, id, models.EntityType); err != nil {
		return nil, auditFailure(err)
	}
	return salary, nil
}

// applyPatch merges patch onto a copy of current.
func applyPatch(current *models.Salary, patch models.Patch) (*models.Salary, error) {
	base, err := value.From(current)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to capture salary")
	}
	changes, err := value.From(patch)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to capture patch")
	}
	merged, err := merge.Apply(base, changes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "patch does not match salary shape")
	}
	after, err := models.FromValue(merged)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebuild salary")
	}
	return after, nil
}

func (s *Service) rollback(ctx context.Context, id string, undo func() error) {
	if err := undo(); err != nil {
		s.logger.ErrorContext(ctx, "failed to roll back unaudited salary mutation",
			"entity_id", id,
			"error", err,
		)
	}
}

func wrapSalaryErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "salary not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "salary store failure")
}

func auditFailure(err error) error {
	if errors.Is(err, audit.ErrStoreUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit salary change")
}
