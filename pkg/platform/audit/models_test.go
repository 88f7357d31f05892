package audit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	audit "hrcore/pkg/platform/audit"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   audit.Page
		want audit.Page
	}{
		{"zero value", audit.Page{}, audit.Page{Number: 1, Size: audit.DefaultPageSize}},
		{"oversized", audit.Page{Number: 2, Size: 500}, audit.Page{Number: 2, Size: audit.MaxPageSize}},
		{"page past int range", audit.Page{Number: math.MaxInt, Size: 10}, audit.Page{Number: audit.MaxPageNumber, Size: 10}},
		{"keeps entity type", audit.Page{Number: 3, Size: 5, EntityType: "salary"}, audit.Page{Number: 3, Size: 5, EntityType: "salary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageOffsetNeverNegative(t *testing.T) {
	for _, number := range []int{1, 2, 92233720368547760, math.MaxInt} {
		page := audit.Page{Number: number, Size: audit.MaxPageSize}.Normalize()
		assert.GreaterOrEqual(t, page.Offset(), 0, "page %d", number)
	}
}
