package hlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel(true, true, zerolog.ErrorLevel))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel(true, false, zerolog.ErrorLevel))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel(false, false, zerolog.ErrorLevel))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel(false, false, zerolog.InfoLevel))
}

func TestIsContextCancellation(t *testing.T) {
	assert.False(t, IsContextCancellation(nil))
	assert.False(t, IsContextCancellation(errors.New("boom")))
	assert.True(t, IsContextCancellation(context.Canceled))
	assert.True(t, IsContextCancellation(fmt.Errorf("ping: %w", context.DeadlineExceeded)))
}

func TestErrorIfNotCanceled(t *testing.T) {
	var logged []string
	log := funcr.New(func(prefix, args string) {
		logged = append(logged, args)
	}, funcr.Options{})

	ErrorIfNotCanceled(log, nil, "nothing")
	ErrorIfNotCanceled(log, context.Canceled, "stopped")
	ErrorIfNotCanceled(log, fmt.Errorf("run: %w", context.DeadlineExceeded), "timed out")
	assert.Empty(t, logged)

	ErrorIfNotCanceled(log, errors.New("boom"), "failed", "step", "run")
	if assert.Len(t, logged, 1) {
		assert.Contains(t, logged[0], `"msg"="failed"`)
		assert.Contains(t, logged[0], `"error"="boom"`)
		assert.Contains(t, logged[0], `"step"="run"`)
	}
}
