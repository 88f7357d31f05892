// Package emitter builds audit envelopes and persists them synchronously.
//
// Emission is fail-closed: each call makes exactly one store write and returns
// the store's error to the caller. Nothing is retried or buffered; whether the
// triggering business mutation should also fail is the caller's decision.
package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/redact"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/requestcontext"
)

// SystemActor is recorded when neither the entry nor the context names an actor.
const SystemActor = "system"

const tracerName = "hrcore/pkg/platform/audit/emitter"

// Entry is what a call site knows about one mutation.
type Entry struct {
	Action     audit.Action
	EntityType string
	EntityID   string
	OldData    value.Value
	NewData    value.Value
	Changes    *diff.Delta
	// Actor defaults to requestcontext.Actor(ctx).
	Actor string
}

// Emitter turns entries into redacted envelopes and stores them.
type Emitter struct {
	store   audit.Store
	policy  *redact.Policy
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures the Emitter.
type Option func(*Emitter)

// WithPolicy sets the per-entity-type redaction policy.
func WithPolicy(policy *redact.Policy) Option {
	return func(e *Emitter) {
		e.policy = policy
	}
}

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Emitter) {
		e.metrics = m
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Emitter) {
		e.tracer = t
	}
}

// New creates an emitter writing to store.
func New(store audit.Store, opts ...Option) *Emitter {
	e := &Emitter{
		store:  store,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit normalizes, redacts and persists one envelope.
//
// Store failures are returned wrapped in audit.ErrStoreUnavailable. An UPDATE
// missing old or new data is still stored; see Envelope.ContractWarnings.
func (e *Emitter) Emit(ctx context.Context, entry Entry) (*audit.Envelope, error) {
	ctx, span := e.tracer.Start(ctx, "audit.emit", trace.WithAttributes(
		attribute.String("audit.action", string(entry.Action)),
		attribute.String("audit.entity_type", entry.EntityType),
	))
	defer span.End()

	envelope := &audit.Envelope{
		EntityType:  entry.EntityType,
		Action:      entry.Action,
		EntityID:    entry.EntityID,
		OldData:     entry.OldData,
		NewData:     entry.NewData,
		Changes:     entry.Changes,
		PerformedBy: resolveActor(ctx, entry.Actor),
	}
	if envelope.EntityID == "" {
		envelope.EntityID = inferEntityID(entry.EntityType, entry.NewData, entry.OldData)
	}
	if err := envelope.Validate(); err != nil {
		return nil, e.reject(ctx, span, err)
	}
	if envelope.Normalize() && e.logger != nil {
		e.logger.DebugContext(ctx, "audit envelope normalized",
			"action", envelope.Action,
			"entity_type", envelope.EntityType,
		)
	}
	if err := e.redact(envelope); err != nil {
		return nil, e.reject(ctx, span, err)
	}
	if err := checkFinite(envelope); err != nil {
		return nil, e.reject(ctx, span, err)
	}

	start := time.Now()
	stored, err := e.store.Create(ctx, envelope)
	if err != nil {
		if e.metrics != nil {
			e.metrics.IncPersistFailures()
		}
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit persistence failed",
				"action", envelope.Action,
				"entity_type", envelope.EntityType,
				"entity_id", envelope.EntityID,
				"error", err,
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit store write failed")
		return nil, fmt.Errorf("%w: %w", audit.ErrStoreUnavailable, err)
	}

	if e.metrics != nil {
		e.metrics.ObservePersistDuration(time.Since(start).Seconds())
		e.metrics.IncEmitted(string(stored.Action))
	}
	span.SetAttributes(attribute.String("audit.id", stored.ID))
	return stored, nil
}

// EmitView records an access-log entry for a read of one entity.
func (e *Emitter) EmitView(ctx context.Context, entityID, entityType string) (*audit.Envelope, error) {
	access := value.NewRecord().
		Set("timestamp", value.Timestamp(requestcontext.Now(ctx).UTC())).
		Set("entity", value.String(entityType)).
		Set("requestId", value.String(requestcontext.RequestID(ctx)))
	return e.Emit(ctx, Entry{
		Action:     audit.ActionView,
		EntityType: entityType,
		EntityID:   entityID,
		NewData:    value.Object(access),
	})
}

// redact masks the policy's fields for the envelope's entity type in place.
// Every tree is replaced by a fresh copy, so the caller's values are never
// aliased by the stored envelope.
func (e *Emitter) redact(envelope *audit.Envelope) error {
	fields := e.policy.For(envelope.EntityType)

	var err error
	if envelope.OldData, err = redact.Apply(envelope.OldData, fields); err != nil {
		return fmt.Errorf("redact old data: %w", err)
	}
	if envelope.NewData, err = redact.Apply(envelope.NewData, fields); err != nil {
		return fmt.Errorf("redact new data: %w", err)
	}
	if envelope.Changes != nil {
		masked, err := redact.Apply(value.Object(envelope.Changes.Record()), fields)
		if err != nil {
			return fmt.Errorf("redact changes: %w", err)
		}
		rec, _ := masked.AsRecord()
		envelope.Changes = diff.FromRecord(rec)
	}
	return nil
}

// checkFinite rejects NaN and infinite numbers before the store sees them.
func checkFinite(envelope *audit.Envelope) error {
	if err := value.Finite(envelope.OldData); err != nil {
		return fmt.Errorf("old data: %w", err)
	}
	if err := value.Finite(envelope.NewData); err != nil {
		return fmt.Errorf("new data: %w", err)
	}
	if envelope.Changes != nil {
		if err := value.Finite(value.Object(envelope.Changes.Record())); err != nil {
			return fmt.Errorf("changes: %w", err)
		}
	}
	return nil
}

func (e *Emitter) reject(ctx context.Context, span trace.Span, err error) error {
	if e.metrics != nil {
		e.metrics.IncRejected()
	}
	if e.logger != nil {
		e.logger.ErrorContext(ctx, "audit envelope rejected", "error", err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "audit envelope rejected")
	return fmt.Errorf("emit audit envelope: %w", err)
}

func resolveActor(ctx context.Context, actor string) string {
	if actor != "" {
		return actor
	}
	if actor = requestcontext.Actor(ctx); actor != "" {
		return actor
	}
	return SystemActor
}
