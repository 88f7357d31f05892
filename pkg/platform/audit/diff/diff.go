// Package diff computes flat field-level deltas between two records.
package diff

import (
	"encoding/json"
	"fmt"

	"hrcore/pkg/platform/audit/value"
)

// Delta maps field names to their new values. Only fields that changed are present.
type Delta struct {
	rec *value.Record
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{rec: value.NewRecord()}
}

// FromRecord builds a delta whose entries are the fields of r.
func FromRecord(r *value.Record) *Delta {
	if r == nil {
		return NewDelta()
	}
	return &Delta{rec: r}
}

// Set records a changed field.
func (d *Delta) Set(name string, v value.Value) *Delta {
	d.rec.Set(name, v)
	return d
}

func (d *Delta) Get(name string) (value.Value, bool) {
	if d == nil {
		return value.Null(), false
	}
	return d.rec.Get(name)
}

func (d *Delta) Len() int {
	if d == nil {
		return 0
	}
	return d.rec.Len()
}

func (d *Delta) IsEmpty() bool { return d.Len() == 0 }

// Names returns changed field names in the order of the new record.
func (d *Delta) Names() []string {
	if d == nil {
		return nil
	}
	return d.rec.Names()
}

// Record exposes the delta as a record value so it can be redacted or applied
// as a patch. The record is shared with the delta.
func (d *Delta) Record() *value.Record {
	if d == nil {
		return value.NewRecord()
	}
	return d.rec
}

func (d *Delta) MarshalJSON() ([]byte, error) {
	return value.Object(d.Record()).MarshalJSON()
}

func (d *Delta) UnmarshalJSON(data []byte) error {
	var v value.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.IsNull() {
		d.rec = value.NewRecord()
		return nil
	}
	rec, ok := v.AsRecord()
	if !ok {
		return fmt.Errorf("decode delta: expected record, got %s", v.Kind())
	}
	d.rec = rec
	return nil
}

// Compute returns the fields of newV whose values are not deeply equal to the
// same field in oldV. Both inputs must be records with the same field names.
//
// Nested records are not descended into: a changed nested record appears as a
// single entry holding the whole new nested value.
func Compute(oldV, newV value.Value) (*Delta, error) {
	oldRec, ok := oldV.AsRecord()
	if !ok {
		return nil, fmt.Errorf("%w: diff old value is %s, want record", value.ErrShapeMismatch, oldV.Kind())
	}
	newRec, ok := newV.AsRecord()
	if !ok {
		return nil, fmt.Errorf("%w: diff new value is %s, want record", value.ErrShapeMismatch, newV.Kind())
	}
	if !value.SameShape(oldRec, newRec) {
		return nil, fmt.Errorf("%w: fields %v vs %v", value.ErrShapeMismatch, oldRec.Names(), newRec.Names())
	}

	delta := NewDelta()
	for name, after := range newRec.All() {
		before, _ := oldRec.Get(name)
		if !value.Equal(before, after) {
			delta.Set(name, after)
		}
	}
	return delta, nil
}
