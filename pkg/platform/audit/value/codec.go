package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxCodecDepth bounds encoding so a record that contains itself fails
// instead of recursing forever.
const maxCodecDepth = 512

// From converts Go data into a Value using its JSON representation, so struct
// tags decide field names and order. Values and *Records pass through as-is.
func From(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Record:
		return Object(x), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Null(), fmt.Errorf("encode %T: %w", v, err)
	}
	return Parse(data)
}

// MustFrom is From for values known to be JSON-encodable, such as literals in tests.
func MustFrom(v any) Value {
	out, err := From(v)
	if err != nil {
		panic(err)
	}
	return out
}

// Parse decodes a JSON document into a Value, keeping object key order.
// Timestamps arrive as strings; JSON has no time type.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null(), fmt.Errorf("parse value: trailing data")
	}
	return v, nil
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), fmt.Errorf("parse value: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return parseNumber(t)
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			rec := NewRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), fmt.Errorf("parse field name: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("parse field name: unexpected %v", keyTok)
				}
				field, err := decode(dec)
				if err != nil {
					return Null(), err
				}
				rec.Set(key, field)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), fmt.Errorf("parse record end: %w", err)
			}
			return Object(rec), nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := decode(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), fmt.Errorf("parse sequence end: %w", err)
			}
			return Value{kind: KindSequence, seq: items}, nil
		}
	}
	return Null(), fmt.Errorf("parse value: unexpected token %v", tok)
}

// parseNumber keeps integer literals exact. Integers beyond int64 and
// fractional or exponent forms become float64.
func parseNumber(num json.Number) (Value, error) {
	text := num.String()
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Null(), fmt.Errorf("parse number %q: %w", text, err)
	}
	return Number(n), nil
}

// MarshalJSON renders records as objects in field order and times as RFC 3339.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func encode(buf *bytes.Buffer, v Value, depth int) error {
	if depth > maxCodecDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedShape, maxCodecDepth)
	}
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if v.exact {
			buf.WriteString(strconv.FormatInt(v.i, 10))
			break
		}
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return fmt.Errorf("%w: non-finite number %v", ErrUnsupportedShape, v.n)
		}
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindTime:
		buf.WriteByte('"')
		buf.WriteString(v.t.Format(time.RFC3339Nano))
		buf.WriteByte('"')
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.seq {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		i := 0
		for name, field := range v.rec.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			key, err := json.Marshal(name)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encode(buf, field, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedShape, v.kind)
	}
	return nil
}

// Interface converts v back into plain Go data: map[string]any, []any,
// bool, int64, float64, string, time.Time or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.exact {
			return v.i
		}
		return v.n
	case KindString:
		return v.s
	case KindTime:
		return v.t
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindRecord:
		out := make(map[string]any, v.rec.Len())
		for name, field := range v.rec.All() {
			out[name] = field.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders v as compact JSON, for logs and error messages.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(b)
}
