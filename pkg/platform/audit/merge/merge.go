// Package merge applies partial updates onto records.
package merge

import (
	"fmt"

	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/value"
)

// Apply copies every non-null field of patch onto base and returns base.
// Null fields in patch are treated as absent and leave base untouched.
//
// The merge is shallow: a present nested record in patch replaces base's nested
// record wholesale. base is modified in place; callers must not keep using the
// value they passed in except through the result.
func Apply(base, patch value.Value) (value.Value, error) {
	baseRec, ok := base.AsRecord()
	if !ok {
		return value.Null(), fmt.Errorf("%w: merge base is %s, want record", value.ErrShapeMismatch, base.Kind())
	}
	patchRec, ok := patch.AsRecord()
	if !ok {
		return value.Null(), fmt.Errorf("%w: merge patch is %s, want record", value.ErrShapeMismatch, patch.Kind())
	}
	if !value.SameShape(baseRec, patchRec) {
		return value.Null(), fmt.Errorf("%w: fields %v vs %v", value.ErrShapeMismatch, baseRec.Names(), patchRec.Names())
	}

	for name, field := range patchRec.All() {
		if field.IsNull() {
			continue
		}
		baseRec.Set(name, field)
	}
	return base, nil
}

// ApplyDelta writes every entry of d onto base and returns base. Unlike Apply,
// a delta entry is present by construction, so a null entry clears the field.
// Every delta field must exist in base.
func ApplyDelta(base value.Value, d *diff.Delta) (value.Value, error) {
	baseRec, ok := base.AsRecord()
	if !ok {
		return value.Null(), fmt.Errorf("%w: merge base is %s, want record", value.ErrShapeMismatch, base.Kind())
	}
	for name := range d.Record().All() {
		if !baseRec.Has(name) {
			return value.Null(), fmt.Errorf("%w: delta field %q not in base", value.ErrShapeMismatch, name)
		}
	}
	for name, field := range d.Record().All() {
		baseRec.Set(name, field)
	}
	return base, nil
}
