// Package value is the introspectable data model the audit engines operate on.
//
// A Value is a closed tagged union: a Record (ordered named fields), a Sequence,
// or a scalar (bool, number, string, time, null). Callers convert entities into
// Values before diffing, redacting or merging, so the engines never need to know
// concrete Go types.
package value

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrShapeMismatch is returned when two records that must share a shape do not.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnsupportedShape is returned when a value cannot be traversed, e.g. a record
	// that contains itself.
	ErrUnsupportedShape = errors.New("unsupported shape")
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindTime
	KindRecord
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one node of a value tree. The zero Value is Null.
//
// Numbers hold either an exact int64 (Int, or an integer literal when parsed)
// or a float64. Both are KindNumber and compare by numeric value.
type Value struct {
	kind  Kind
	b     bool
	n     float64
	i     int64
	exact bool
	s     string
	t     time.Time
	rec   *Record
	seq   []Value
}

func Null() Value                 { return Value{} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Number(n float64) Value      { return Value{kind: KindNumber, n: n} }
func Int(n int64) Value           { return Value{kind: KindNumber, n: float64(n), i: n, exact: true} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Timestamp(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Sequence builds a sequence value. The slice is copied.
func Sequence(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Object wraps a record. A nil record yields Null.
func Object(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRecord, rec: r}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsRecord() bool { return v.kind == KindRecord }

// IsZero reports whether v is Null. It lets envelope fields use `omitzero`.
func (v Value) IsZero() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)        { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool)   { return v.n, v.kind == KindNumber }
func (v Value) AsInt() (int64, bool)        { return v.i, v.kind == KindNumber && v.exact }
func (v Value) AsString() (string, bool)    { return v.s, v.kind == KindString }
func (v Value) AsTime() (time.Time, bool)   { return v.t, v.kind == KindTime }
func (v Value) AsRecord() (*Record, bool)   { return v.rec, v.kind == KindRecord }
func (v Value) AsSequence() ([]Value, bool) { return v.seq, v.kind == KindSequence }

// Len returns the number of fields of a record or elements of a sequence.
func (v Value) Len() int {
	switch v.kind {
	case KindRecord:
		return v.rec.Len()
	case KindSequence:
		return len(v.seq)
	default:
		return 0
	}
}

// Record is an ordered set of named fields.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

// Set assigns a field, keeping the original position when it already exists.
func (r *Record) Set(name string, v Value) *Record {
	r.fields.Set(name, v)
	return r
}

func (r *Record) Get(name string) (Value, bool) {
	return r.fields.Get(name)
}

func (r *Record) Has(name string) bool {
	_, ok := r.fields.Get(name)
	return ok
}

func (r *Record) Delete(name string) {
	r.fields.Delete(name)
}

func (r *Record) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	names := make([]string, 0, r.Len())
	for name := range r.All() {
		names = append(names, name)
	}
	return names
}

// All iterates fields in insertion order.
func (r *Record) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if r == nil || r.fields == nil {
			return
		}
		for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// SameShape reports whether a and b carry the same set of field names.
// Field order and field kinds are not part of the shape: a nullable field may be
// null on one side and populated on the other.
func SameShape(a, b *Record) bool {
	if a.Len() != b.Len() {
		return false
	}
	for name := range a.All() {
		if !b.Has(name) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v. Records and sequences are never shared with
// the input.
func Clone(v Value) Value {
	switch v.kind {
	case KindRecord:
		out := NewRecord()
		for name, field := range v.rec.All() {
			out.Set(name, Clone(field))
		}
		return Object(out)
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, item := range v.seq {
			seq[i] = Clone(item)
		}
		return Value{kind: KindSequence, seq: seq}
	default:
		return v
	}
}

// Equal reports deep structural equality. Record field order is ignored;
// sequence order is not. Times compare by instant. Integers compare exactly
// and NaN equals NaN, so Equal(v, v) holds for every v.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return numbersEqual(a, b)
	case KindString:
		return a.s == b.s
	case KindTime:
		return a.t.Equal(b.t)
	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if a.rec == b.rec {
			return true
		}
		if a.rec.Len() != b.rec.Len() {
			return false
		}
		for name, av := range a.rec.All() {
			bv, ok := b.rec.Get(name)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numbersEqual(a, b Value) bool {
	switch {
	case a.exact && b.exact:
		return a.i == b.i
	case a.exact:
		return floatEqualsInt(b.n, a.i)
	case b.exact:
		return floatEqualsInt(a.n, b.i)
	case math.IsNaN(a.n) || math.IsNaN(b.n):
		return math.IsNaN(a.n) && math.IsNaN(b.n)
	default:
		return a.n == b.n
	}
}

// floatEqualsInt holds only when f is integral and converts to i without loss.
func floatEqualsInt(f float64, i int64) bool {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return false
	}
	return int64(f) == i
}

// Finite reports ErrUnsupportedShape for the first NaN or infinite number in v.
// Such numbers have no JSON form and cannot be stored.
func Finite(v Value) error {
	return finite(v, "", 0)
}

func finite(v Value, path string, depth int) error {
	if depth > maxCodecDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedShape, maxCodecDepth)
	}
	switch v.kind {
	case KindNumber:
		if !v.exact && (math.IsNaN(v.n) || math.IsInf(v.n, 0)) {
			return fmt.Errorf("%w: non-finite number at %q", ErrUnsupportedShape, path)
		}
	case KindSequence:
		for i, item := range v.seq {
			if err := finite(item, fmt.Sprintf("%s[%d]", path, i), depth+1); err != nil {
				return err
			}
		}
	case KindRecord:
		for name, field := range v.rec.All() {
			child := name
			if path != "" {
				child = path + "." + name
			}
			if err := finite(field, child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
