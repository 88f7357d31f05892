package emitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/audit/value"
	"hrcore/pkg/platform/sentinel"
	"hrcore/pkg/requestcontext"

	dErrors "hrcore/pkg/domain-errors"
)

// ErrorEntityType is the entity type of every ERROR envelope.
const ErrorEntityType = "error"

const genericErrorMessage = "an unexpected error occurred"

// ErrorDescriptor is the user-facing error payload returned by EmitError.
type ErrorDescriptor struct {
	Code      dErrors.Code `json:"code"`
	Message   string       `json:"message"`
	Context   string       `json:"context,omitempty"`
	RequestID string       `json:"requestId,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	// AuditID references the ERROR envelope, when it was stored.
	AuditID string `json:"auditId,omitempty"`
}

// EmitError records a failure as an ERROR envelope and returns the descriptor
// the caller should send to the client. The descriptor is always usable; the
// returned error reports only whether the audit write failed.
//
// Messages of non-public codes (internal, unavailable) are replaced with a
// generic text in the descriptor. The stored envelope keeps the authored
// message and the cause's type, never err.Error(): error text may carry field
// values that name-based redaction cannot match.
func (e *Emitter) EmitError(ctx context.Context, err error, contextMessage string) (ErrorDescriptor, error) {
	code := classify(err)
	desc := ErrorDescriptor{
		Code:      code,
		Message:   publicMessage(err, code),
		Context:   contextMessage,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx).UTC(),
	}

	detail, cause := errorDetail(err)
	payload := value.NewRecord().
		Set("code", value.String(string(desc.Code))).
		Set("message", value.String(desc.Message)).
		Set("context", value.String(desc.Context)).
		Set("requestId", value.String(desc.RequestID)).
		Set("timestamp", value.Timestamp(desc.Timestamp)).
		Set("detail", value.String(detail)).
		Set("cause", value.String(cause))

	stored, emitErr := e.Emit(ctx, Entry{
		Action:     audit.ActionError,
		EntityType: ErrorEntityType,
		EntityID:   string(code),
		NewData:    value.Object(payload),
	})
	if emitErr != nil {
		return desc, emitErr
	}
	desc.AuditID = stored.ID
	return desc, nil
}

// classify maps an error onto a domain error code. Coded errors keep their code;
// known infrastructure and audit failures get a fixed one.
func classify(err error) dErrors.Code {
	if de, ok := dErrors.As(err); ok {
		return de.Code
	}
	switch {
	case err == nil:
		return dErrors.CodeInternal
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.CodeNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.CodeConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.CodeTimeout
	case errors.Is(err, audit.ErrStoreUnavailable), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.CodeUnavailable
	case errors.Is(err, audit.ErrShapeMismatch), errors.Is(err, audit.ErrUnsupportedShape):
		return dErrors.CodeInvariantViolation
	default:
		return dErrors.CodeInternal
	}
}

func errorDetail(err error) (detail, cause string) {
	if err == nil {
		return "", ""
	}
	if de, ok := dErrors.As(err); ok {
		detail = de.Message
	}
	root := err
	for next := errors.Unwrap(root); next != nil; next = errors.Unwrap(root) {
		root = next
	}
	return detail, fmt.Sprintf("%T", root)
}

func publicMessage(err error, code dErrors.Code) string {
	if !code.Public() {
		return genericErrorMessage
	}
	if de, ok := dErrors.As(err); ok && de.Message != "" {
		return de.Message
	}
	switch code {
	case dErrors.CodeNotFound:
		return "resource not found"
	case dErrors.CodeConflict:
		return "resource conflict"
	case dErrors.CodeTimeout:
		return "request timed out"
	}
	return genericErrorMessage
}
