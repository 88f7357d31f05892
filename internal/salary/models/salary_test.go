package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hrcore/pkg/domain-errors"
	"hrcore/pkg/platform/audit/value"
)

func validSalary() Salary {
	return Salary{ID: "sal-1", Step: 1, Amount: 1000, LegalBasis: "NBC 590", Tranche: 0, SalaryData: "SG-11"}
}

func TestSalaryValidate(t *testing.T) {
	s := validSalary()
	require.NoError(t, s.Validate())

	cases := map[string]func(*Salary){
		"step below one":    func(s *Salary) { s.Step = 0 },
		"negative amount":   func(s *Salary) { s.Amount = -1 },
		"negative tranche":  func(s *Salary) { s.Tranche = -2 },
		"blank legal basis": func(s *Salary) { s.LegalBasis = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSalary()
			mutate(&s)
			assert.True(t, dErrors.HasCode(s.Validate(), dErrors.CodeValidation))
		})
	}
}

func TestPatchShapeMatchesSalary(t *testing.T) {
	full, err := value.From(validSalary())
	require.NoError(t, err)
	patch, err := value.From(Patch{})
	require.NoError(t, err)

	fullRec, _ := full.AsRecord()
	patchRec, _ := patch.AsRecord()
	assert.Equal(t, fullRec.Names(), patchRec.Names())
	assert.True(t, Patch{}.IsEmpty())
}

func TestFromValue(t *testing.T) {
	original := validSalary()
	v, err := value.From(original)
	require.NoError(t, err)

	decoded, err := FromValue(v)
	require.NoError(t, err)
	assert.Equal(t, original, *decoded)

	_, err = FromValue(value.String("nope"))
	assert.ErrorIs(t, err, value.ErrShapeMismatch)
}
