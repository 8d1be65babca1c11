// Package global holds the context keys shared by the wakebot commands.
package global

import (
	"context"
)

type ContextKey uint

const (
	CancelKey ContextKey = iota
	CpuProfileKey
	VersionKey
)

func Version(ctx context.Context) string {
	if v, ok := ctx.Value(VersionKey).(string); ok {
		return v
	}
	return "unknown"
}

// Cancel cancels the command context, if it was created cancelable.
func Cancel(ctx context.Context) {
	if cancel, ok := ctx.Value(CancelKey).(context.CancelFunc); ok {
		cancel()
	}
}
