// Package audit serves the stored audit trail to API clients.
package audit

import (
	"context"
	"errors"
	"log/slog"

	dErrors "hrcore/pkg/domain-errors"
	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/sentinel"
)

// Service is the read side of the audit trail. Envelopes are immutable, so
// there is no write path here; writes go through the emitter.
type Service struct {
	store  audit.Store
	logger *slog.Logger
}

func NewService(store audit.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns one page of envelopes, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) (*audit.PageResult, error) {
	page, err := s.store.List(ctx, req.ToPage())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit logs",
			"entity_type", req.EntityType,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return page, nil
}

// Get returns one envelope by ID.
func (s *Service) Get(ctx context.Context, id string) (*audit.Envelope, error) {
	env, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "audit log not found")
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load audit log",
			"audit_id", id,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return env, nil
}
