package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Minute)
}

func TestInjectedValues(t *testing.T) {
	at := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	ctx := WithClientMetadata(context.Background(), "10.0.0.1", "curl/8.0")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTime(ctx, at)

	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, at, Now(ctx))
}
