// Package redact masks sensitive fields anywhere in a value tree.
package redact

import (
	"fmt"
	"slices"

	"hrcore/pkg/platform/audit/value"
)

// Marker replaces the value of every redacted field.
const Marker = "****"

// MaxDepth bounds how deep Apply descends before giving up.
const MaxDepth = 512

// FieldSet is an immutable set of field names. Matching is exact and
// case-sensitive, regardless of where the field sits in the tree.
type FieldSet struct {
	names map[string]struct{}
}

func NewFieldSet(names ...string) FieldSet {
	set := FieldSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		set.names[n] = struct{}{}
	}
	return set
}

func (f FieldSet) Contains(name string) bool {
	_, ok := f.names[name]
	return ok
}

func (f FieldSet) Len() int { return len(f.names) }

// Names returns the members sorted.
func (f FieldSet) Names() []string {
	out := make([]string, 0, len(f.names))
	for n := range f.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set holding the members of both.
func (f FieldSet) Union(other FieldSet) FieldSet {
	return NewFieldSet(append(f.Names(), other.Names()...)...)
}

// Apply returns a copy of v with every field named in fields replaced by Marker.
// The result never shares records or sequences with v.
//
// A record that (directly or indirectly) contains itself fails with
// value.ErrUnsupportedShape.
func Apply(v value.Value, fields FieldSet) (value.Value, error) {
	w := walker{fields: fields, path: make(map[*value.Record]struct{})}
	return w.walk(v, 0)
}

type walker struct {
	fields FieldSet
	path   map[*value.Record]struct{}
}

func (w walker) walk(v value.Value, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return value.Null(), fmt.Errorf("%w: nesting deeper than %d", value.ErrUnsupportedShape, MaxDepth)
	}
	switch v.Kind() {
	case value.KindRecord:
		rec, _ := v.AsRecord()
		if _, seen := w.path[rec]; seen {
			return value.Null(), fmt.Errorf("%w: record contains itself", value.ErrUnsupportedShape)
		}
		w.path[rec] = struct{}{}
		defer delete(w.path, rec)

		out := value.NewRecord()
		for name, field := range rec.All() {
			if w.fields.Contains(name) {
				out.Set(name, value.String(Marker))
				continue
			}
			masked, err := w.walk(field, depth+1)
			if err != nil {
				return value.Null(), err
			}
			out.Set(name, masked)
		}
		return value.Object(out), nil
	case value.KindSequence:
		items, _ := v.AsSequence()
		out := make([]value.Value, len(items))
		for i, item := range items {
			masked, err := w.walk(item, depth+1)
			if err != nil {
				return value.Null(), err
			}
			out[i] = masked
		}
		return value.Sequence(out...), nil
	default:
		return v, nil
	}
}
