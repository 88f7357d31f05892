package value_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"hrcore/pkg/platform/audit/value"
)

var equalValues = cmp.Comparer(value.Equal)

type ValueSuite struct {
	suite.Suite
}

func TestValueSuite(t *testing.T) {
	suite.Run(t, new(ValueSuite))
}

func salaryRecord() *value.Record {
	return value.NewRecord().
		Set("id", value.String("abc")).
		Set("step", value.Int(1)).
		Set("amount", value.Number(1000)).
		Set("salaryData", value.Sequence(
			value.Object(value.NewRecord().Set("step", value.Int(1))),
		))
}

func (s *ValueSuite) TestZeroValueIsNull() {
	var v value.Value
	s.True(v.IsNull())
	s.True(v.IsZero())
	s.Equal(value.KindNull, v.Kind())
	s.True(value.Object(nil).IsNull())
}

func (s *ValueSuite) TestRecordKeepsInsertionOrder() {
	rec := value.NewRecord().
		Set("b", value.Int(1)).
		Set("a", value.Int(2)).
		Set("b", value.Int(3))

	s.Equal([]string{"b", "a"}, rec.Names())
	got, ok := rec.Get("b")
	s.Require().True(ok)
	s.True(value.Equal(value.Int(3), got))
}

func (s *ValueSuite) TestEqual() {
	s.Run("ignores record field order", func() {
		a := value.Object(value.NewRecord().Set("x", value.Int(1)).Set("y", value.String("z")))
		b := value.Object(value.NewRecord().Set("y", value.String("z")).Set("x", value.Int(1)))
		s.True(value.Equal(a, b))
	})
	s.Run("respects sequence order", func() {
		a := value.Sequence(value.Int(1), value.Int(2))
		b := value.Sequence(value.Int(2), value.Int(1))
		s.False(value.Equal(a, b))
	})
	s.Run("integers and floats with the same value are equal", func() {
		s.True(value.Equal(value.Int(1000), value.Number(1000.0)))
	})
	s.Run("times compare by instant", func() {
		utc := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		other := utc.In(time.FixedZone("UTC+2", 2*60*60))
		s.True(value.Equal(value.Timestamp(utc), value.Timestamp(other)))
	})
	s.Run("different kinds are never equal", func() {
		s.False(value.Equal(value.String("1"), value.Int(1)))
		s.False(value.Equal(value.Null(), value.String("")))
	})
	s.Run("nested records are compared deeply", func() {
		a := value.Object(salaryRecord())
		b := value.Object(salaryRecord())
		s.True(value.Equal(a, b))

		changed := salaryRecord().Set("salaryData", value.Sequence(
			value.Object(value.NewRecord().Set("step", value.Int(2))),
		))
		s.False(value.Equal(a, value.Object(changed)))
	})
}

func (s *ValueSuite) TestSameShape() {
	a := value.NewRecord().Set("step", value.Int(1)).Set("amount", value.Null())
	b := value.NewRecord().Set("amount", value.Number(1.5)).Set("step", value.Int(2))
	s.True(value.SameShape(a, b), "nullable fields and order do not affect shape")

	c := value.NewRecord().Set("step", value.Int(1))
	s.False(value.SameShape(a, c))

	d := value.NewRecord().Set("step", value.Int(1)).Set("tranche", value.Int(0))
	s.False(value.SameShape(a, d))
}

func (s *ValueSuite) TestCloneDoesNotShare() {
	original := value.Object(salaryRecord())
	clone := value.Clone(original)
	s.True(value.Equal(original, clone))

	cloneRec, _ := clone.AsRecord()
	cloneRec.Set("id", value.String("changed"))
	origRec, _ := original.AsRecord()
	id, _ := origRec.Get("id")
	s.True(value.Equal(value.String("abc"), id))
}

func (s *ValueSuite) TestFromStruct() {
	type salary struct {
		ID     string  `json:"id"`
		Step   int     `json:"step"`
		Amount float64 `json:"amount"`
		Note   *string `json:"note"`
	}
	got, err := value.From(salary{ID: "abc", Step: 1, Amount: 1000})
	s.Require().NoError(err)

	want := value.Object(value.NewRecord().
		Set("id", value.String("abc")).
		Set("step", value.Int(1)).
		Set("amount", value.Number(1000)).
		Set("note", value.Null()))
	if diff := cmp.Diff(want, got, equalValues); diff != "" {
		s.Failf("unexpected value", "(-want +got):\n%s", diff)
	}
	rec, _ := got.AsRecord()
	s.Equal([]string{"id", "step", "amount", "note"}, rec.Names())
}

func (s *ValueSuite) TestFromPassesValuesThrough() {
	rec := salaryRecord()
	got, err := value.From(rec)
	s.Require().NoError(err)
	gotRec, ok := got.AsRecord()
	s.Require().True(ok)
	s.Same(rec, gotRec)

	got, err = value.From(nil)
	s.Require().NoError(err)
	s.True(got.IsNull())
}

func (s *ValueSuite) TestParse() {
	s.Run("keeps key order", func() {
		v, err := value.Parse([]byte(`{"z":1,"a":{"y":[true,null,"s"]}}`))
		s.Require().NoError(err)
		rec, _ := v.AsRecord()
		s.Equal([]string{"z", "a"}, rec.Names())
		s.Equal(`{"z":1,"a":{"y":[true,null,"s"]}}`, v.String())
	})
	s.Run("rejects trailing data", func() {
		_, err := value.Parse([]byte(`{"a":1} {"b":2}`))
		s.Error(err)
	})
	s.Run("rejects malformed input", func() {
		_, err := value.Parse([]byte(`{"a":`))
		s.Error(err)
	})
}

func (s *ValueSuite) TestJSONRoundTrip() {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	v := value.Object(salaryRecord().Set("effectiveAt", value.Timestamp(at)))

	data, err := json.Marshal(v)
	s.Require().NoError(err)
	s.JSONEq(`{"id":"abc","step":1,"amount":1000,"salaryData":[{"step":1}],"effectiveAt":"2025-03-01T12:30:00Z"}`, string(data))

	var decoded value.Value
	s.Require().NoError(json.Unmarshal(data, &decoded))
	rec, _ := decoded.AsRecord()
	effective, _ := rec.Get("effectiveAt")
	s.Equal(value.KindString, effective.Kind(), "times come back as strings")
}

func (s *ValueSuite) TestMarshalSelfContainingRecordFails() {
	rec := value.NewRecord()
	rec.Set("self", value.Object(rec))
	_, err := json.Marshal(value.Object(rec))
	s.ErrorIs(err, value.ErrUnsupportedShape)
}

func (s *ValueSuite) TestInterface() {
	v := value.Object(value.NewRecord().
		Set("n", value.Int(2)).
		Set("list", value.Sequence(value.Bool(true), value.Null())))
	s.Equal(map[string]any{"n": int64(2), "list": []any{true, nil}}, v.Interface())
}

func (s *ValueSuite) TestLargeIntegersStayExact() {
	a, err := value.Parse([]byte(`{"employeeNumber":9007199254740992}`))
	s.Require().NoError(err)
	b, err := value.Parse([]byte(`{"employeeNumber":9007199254740993}`))
	s.Require().NoError(err)

	s.False(value.Equal(a, b))
	s.Equal(`{"employeeNumber":9007199254740993}`, b.String())

	rec, _ := b.AsRecord()
	n, _ := rec.Get("employeeNumber")
	i, ok := n.AsInt()
	s.Require().True(ok)
	s.Equal(int64(9007199254740993), i)

	from := value.MustFrom(map[string]int64{"employeeNumber": math.MaxInt64})
	s.Equal(`{"employeeNumber":9223372036854775807}`, from.String())
}

func (s *ValueSuite) TestIntegersAndFloatsCompareByValue() {
	s.True(value.Equal(value.Int(3), value.Number(3)))
	s.False(value.Equal(value.Int(3), value.Number(3.5)))
	s.False(value.Equal(value.Int(9007199254740993), value.Number(9007199254740992)))
	s.False(value.Equal(value.Int(math.MaxInt64), value.Number(math.Inf(1))))

	fractional, err := value.Parse([]byte(`1.5e2`))
	s.Require().NoError(err)
	_, exact := fractional.AsInt()
	s.False(exact)
	s.True(value.Equal(value.Int(150), fractional))
}

func (s *ValueSuite) TestNonFiniteNumbers() {
	nan := value.Object(value.NewRecord().Set("amount", value.Number(math.NaN())))

	s.True(value.Equal(nan, value.Clone(nan)), "a value equals itself even when it holds NaN")
	s.False(value.Equal(value.Number(math.NaN()), value.Number(1)))

	_, err := nan.MarshalJSON()
	s.True(errors.Is(err, value.ErrUnsupportedShape))

	err = value.Finite(value.Sequence(value.Int(1), nan))
	s.True(errors.Is(err, value.ErrUnsupportedShape))
	s.Contains(err.Error(), `"[1].amount"`)

	s.True(errors.Is(value.Finite(value.Number(math.Inf(-1))), value.ErrUnsupportedShape))
	s.NoError(value.Finite(value.MustFrom(map[string]any{"step": 1, "amount": 1000.5})))
}
