package audit

import (
	"net/url"
	"strconv"
	"strings"

	dErrors "hrcore/pkg/domain-errors"
	audit "hrcore/pkg/platform/audit"
)

// ListRequest is the query of GET /audit-logs.
type ListRequest struct {
	Page       int
	Size       int
	EntityType string
}

// ParseListRequest reads page, size and entityType. Missing values take the
// store defaults; malformed or out-of-range ones are rejected.
func ParseListRequest(q url.Values) (ListRequest, error) {
	req := ListRequest{EntityType: strings.TrimSpace(q.Get("entityType"))}

	var err error
	if req.Page, err = positiveInt(q, "page"); err != nil {
		return ListRequest{}, err
	}
	if req.Page > audit.MaxPageNumber {
		return ListRequest{}, dErrors.New(dErrors.CodeValidation,
			"page must be at most "+strconv.Itoa(audit.MaxPageNumber))
	}
	if req.Size, err = positiveInt(q, "size"); err != nil {
		return ListRequest{}, err
	}
	if req.Size > audit.MaxPageSize {
		return ListRequest{}, dErrors.New(dErrors.CodeValidation,
			"size must be at most "+strconv.Itoa(audit.MaxPageSize))
	}
	return req, nil
}

// ToPage converts the request to a normalized store page.
func (r ListRequest) ToPage() audit.Page {
	return audit.Page{Number: r.Page, Size: r.Size, EntityType: r.EntityType}.Normalize()
}

func positiveInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, key+" must be a positive integer")
	}
	return n, nil
}
