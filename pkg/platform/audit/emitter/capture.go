package emitter

import (
	"context"
	"fmt"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/value"
)

// The Record* helpers run the per-mutation pipeline for call sites holding Go
// values: convert snapshots, diff (UPDATE only), then Emit, which redacts and
// stores. Snapshots are converted through their JSON form, so struct tags name
// the audited fields.

// RecordCreate audits a creation; after is the created entity.
func (e *Emitter) RecordCreate(ctx context.Context, entityType, entityID string, after any) (*audit.Envelope, error) {
	newData, err := value.From(after)
	if err != nil {
		return nil, fmt.Errorf("capture created %s: %w", entityType, err)
	}
	return e.Emit(ctx, Entry{
		Action:     audit.ActionCreate,
		EntityType: entityType,
		EntityID:   entityID,
		NewData:    newData,
	})
}

// RecordUpdate audits an update. When both snapshots are present the changes
// are computed with diff.Compute; when one is nil the envelope is stored
// without changes and carries a contract warning for the caller to log.
func (e *Emitter) RecordUpdate(ctx context.Context, entityType, entityID string, before, after any) (*audit.Envelope, error) {
	oldData, err := value.From(before)
	if err != nil {
		return nil, fmt.Errorf("capture %s before update: %w", entityType, err)
	}
	newData, err := value.From(after)
	if err != nil {
		return nil, fmt.Errorf("capture %s after update: %w", entityType, err)
	}

	var changes *diff.Delta
	if !oldData.IsNull() && !newData.IsNull() {
		if changes, err = diff.Compute(oldData, newData); err != nil {
			return nil, fmt.Errorf("diff %s: %w", entityType, err)
		}
	}
	return e.Emit(ctx, Entry{
		Action:     audit.ActionUpdate,
		EntityType: entityType,
		EntityID:   entityID,
		OldData:    oldData,
		NewData:    newData,
		Changes:    changes,
	})
}

// RecordDelete audits a deletion; before is the entity as it was.
func (e *Emitter) RecordDelete(ctx context.Context, entityType, entityID string, before any) (*audit.Envelope, error) {
	oldData, err := value.From(before)
	if err != nil {
		return nil, fmt.Errorf("capture deleted %s: %w", entityType, err)
	}
	return e.Emit(ctx, Entry{
		Action:     audit.ActionDelete,
		EntityType: entityType,
		EntityID:   entityID,
		OldData:    oldData,
	})
}
