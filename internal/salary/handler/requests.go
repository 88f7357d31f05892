package handler

import (
	"encoding/json"
	"io"
	"strings"

	"hrcore/internal/salary/models"
	dErrors "hrcore/pkg/domain-errors"
)

// maxBodyBytes bounds salary request bodies.
const maxBodyBytes = 64 << 10

// CreateSalaryRequest is the body of POST /salaries.
type CreateSalaryRequest struct {
	Step       int     `json:"step"`
	Amount     float64 `json:"amount"`
	LegalBasis string  `json:"legalBasis"`
	Tranche    int     `json:"tranche"`
	SalaryData string  `json:"salaryData"`
}

// Normalize trims text fields.
func (r *CreateSalaryRequest) Normalize() {
	r.LegalBasis = strings.TrimSpace(r.LegalBasis)
	r.SalaryData = strings.TrimSpace(r.SalaryData)
}

func (r *CreateSalaryRequest) ToModel() models.Salary {
	return models.Salary{
		Step:       r.Step,
		Amount:     r.Amount,
		LegalBasis: r.LegalBasis,
		Tranche:    r.Tranche,
		SalaryData: r.SalaryData,
	}
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields.
func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
