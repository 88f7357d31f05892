package testutil

import (
	"context"
	"time"

	"hrcore/pkg/requestcontext"
)

// RequestContext builds the context a request carries after the middleware
// chain: actor, request ID and the pinned request time. Empty values are skipped.
func RequestContext(actor, requestID string, now time.Time) context.Context {
	ctx := context.Background()
	if actor != "" {
		ctx = requestcontext.WithActor(ctx, actor)
	}
	if requestID != "" {
		ctx = requestcontext.WithRequestID(ctx, requestID)
	}
	if !now.IsZero() {
		ctx = requestcontext.WithTime(ctx, now)
	}
	return ctx
}
