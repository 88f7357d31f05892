// Package models holds the salary-grade entity audited by the HR core.
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	dErrors "hrcore/pkg/domain-errors"
	"hrcore/pkg/platform/audit/value"
)

// EntityType names salary grades in audit envelopes and redaction policies.
const EntityType = "salary"

// RedactedFields are masked in every salary envelope unless a policy file
// overrides them.
var RedactedFields = []string{"id", "salaryData"}

// Salary is one salary grade.
//
// Invariants:
//   - Step is at least 1
//   - Amount and Tranche are never negative
//   - LegalBasis names the regulation the grade derives from
type Salary struct {
	ID         string  `json:"id"`
	Step       int     `json:"step"`
	Amount     float64 `json:"amount"`
	LegalBasis string  `json:"legalBasis"`
	Tranche    int     `json:"tranche"`
	SalaryData string  `json:"salaryData"`
}

// Validate checks the grade invariants.
func (s *Salary) Validate() error {
	if s.Step < 1 {
		return dErrors.New(dErrors.CodeValidation, "step must be at least 1")
	}
	if s.Amount < 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	if s.Tranche < 0 {
		return dErrors.New(dErrors.CodeValidation, "tranche must not be negative")
	}
	if strings.TrimSpace(s.LegalBasis) == "" {
		return dErrors.New(dErrors.CodeValidation, "legalBasis is required")
	}
	return nil
}

// Patch is a partial update. Nil fields are absent and keep the stored value,
// so a field cannot be cleared through a patch. It carries every Salary field
// so the two convert to records of the same shape.
type Patch struct {
	ID         *string  `json:"id"`
	Step       *int     `json:"step"`
	Amount     *float64 `json:"amount"`
	LegalBasis *string  `json:"legalBasis"`
	Tranche    *int     `json:"tranche"`
	SalaryData *string  `json:"salaryData"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ID == nil && p.Step == nil && p.Amount == nil &&
		p.LegalBasis == nil && p.Tranche == nil && p.SalaryData == nil
}

// FromValue decodes a record produced from a Salary back into one.
func FromValue(v value.Value) (*Salary, error) {
	if !v.IsRecord() {
		return nil, fmt.Errorf("%w: salary is %s, want record", value.ErrShapeMismatch, v.Kind())
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode salary record: %w", err)
	}
	var s Salary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode salary record: %w", err)
	}
	return &s, nil
}
