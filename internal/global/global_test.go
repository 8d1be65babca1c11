package global

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "unknown", Version(context.Background()))
	ctx := context.WithValue(context.Background(), VersionKey, "v1.2.3")
	assert.Equal(t, "v1.2.3", Version(ctx))
}

func TestCancel(t *testing.T) {
	Cancel(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, CancelKey, cancel)
	Cancel(ctx)
	assert.Error(t, ctx.Err())
}
