package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOrderID(ctx, "order-9")

	log.Error(ctx, "boom", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"order_id":"order-9"`)
	assert.Contains(t, out, `"stack"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLoggerFieldsDoNotLeakAcrossContexts(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	base := context.Background()
	withUser := log.WithUserID(base, "user-1")
	log.Info(base, "plain")
	require.NotContains(t, buf.String(), "user-1")

	log.Info(withUser, "scoped")
	assert.Contains(t, buf.String(), `"user_id":"user-1"`)
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}
