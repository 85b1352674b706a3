package testutil

import (
	"context"
	"time"

	"dqa/pkg/requestcontext"
)

// Context returns a context carrying a fixed request time and request ID,
// as the HTTP middleware chain would set them.
func Context(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithRequestID(ctx, "test-request")
}
