package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"hrcore/pkg/platform/audit/diff"
	"hrcore/pkg/platform/audit/value"
)

// Error kinds raised by the auditing core. Match with errors.Is.
var (
	ErrShapeMismatch    = value.ErrShapeMismatch
	ErrUnsupportedShape = value.ErrUnsupportedShape
	// ErrStoreUnavailable wraps any failure of the audit store. The cause stays
	// reachable through errors.Is / errors.As.
	ErrStoreUnavailable = errors.New("audit store unavailable")
)

// Action classifies what happened to the entity.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionView   Action = "VIEW"
	ActionError  Action = "ERROR"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionView, ActionError:
		return true
	}
	return false
}

// ParseAction validates a wire action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown audit action %q", s)
	}
	return a, nil
}

// Envelope is one immutable audit record. ID, CreatedAt and UpdatedAt are
// assigned by the store.
type Envelope struct {
	ID          string      `json:"id"`
	EntityType  string      `json:"entityType"`
	Action      Action      `json:"action"`
	EntityID    string      `json:"entityId"`
	OldData     value.Value `json:"oldData,omitzero"`
	NewData     value.Value `json:"newData"`
	Changes     *diff.Delta `json:"changes,omitempty"`
	PerformedBy string      `json:"performedBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Validate checks the fields every stored envelope needs.
func (e *Envelope) Validate() error {
	if !e.Action.IsValid() {
		return fmt.Errorf("invalid audit action %q", e.Action)
	}
	if e.EntityType == "" {
		return fmt.Errorf("audit envelope requires EntityType")
	}
	return nil
}

// Normalize drops the parts an action may not carry: CREATE and VIEW have no
// old data, and only UPDATE has changes. It reports whether anything was dropped.
func (e *Envelope) Normalize() bool {
	dropped := false
	if (e.Action == ActionCreate || e.Action == ActionView) && !e.OldData.IsNull() {
		e.OldData = value.Null()
		dropped = true
	}
	if e.Action != ActionUpdate && e.Changes != nil {
		e.Changes = nil
		dropped = true
	}
	return dropped
}

// ContractWarnings lists caller-contract problems that do not prevent storage,
// e.g. an UPDATE that carries only one of old/new data. Callers log these.
func (e *Envelope) ContractWarnings() []string {
	if e.Action != ActionUpdate {
		return nil
	}
	var warnings []string
	hasOld, hasNew := !e.OldData.IsNull(), !e.NewData.IsNull()
	switch {
	case hasOld && !hasNew:
		warnings = append(warnings, "update envelope has oldData but no newData")
	case !hasOld && hasNew:
		warnings = append(warnings, "update envelope has newData but no oldData")
	case hasOld && hasNew && e.Changes.IsEmpty() && !value.Equal(e.OldData, e.NewData):
		warnings = append(warnings, "update envelope has differing data but no changes")
	}
	return warnings
}

// Page selects one page of envelopes. Number is 1-based.
type Page struct {
	Number     int
	Size       int
	EntityType string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPageNumber keeps Offset within int for any page size.
	MaxPageNumber = math.MaxInt / MaxPageSize
)

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	return p
}

// Offset is the number of envelopes before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageResult holds one page of envelopes, newest first.
type PageResult struct {
	Items  []*Envelope `json:"items"`
	Number int         `json:"page"`
	Size   int         `json:"size"`
	Total  int         `json:"total"`
}

// Store persists envelopes. Implementations assign ID, CreatedAt and UpdatedAt
// on Create and return sentinel.ErrNotFound from FindByID for unknown IDs.
type Store interface {
	Create(ctx context.Context, envelope *Envelope) (*Envelope, error)
	FindByID(ctx context.Context, id string) (*Envelope, error)
	List(ctx context.Context, page Page) (*PageResult, error)
}
