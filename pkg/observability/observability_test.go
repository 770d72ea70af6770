package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogOptions{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(LogOptions{Level: "WARN"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewLoggerRejectsBadOptions(t *testing.T) {
	_, err := NewLogger(LogOptions{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LogOptions{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestComponentNamesLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Component(zap.New(core), "router").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "router", entries[0].LoggerName)

	assert.NotNil(t, Component(nil, "router"))
}

func TestTracingSpansCarryIDs(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider("ghostdriver-test", "test", &buf)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "command")
	span.SetAttributes(AttrCommand.String("GET /url"))

	core, logs := observer.New(zap.InfoLevel)
	WithTrace(ctx, zap.New(core)).Info("in span")
	EndSpan(span, errors.New("boom"))

	require.NoError(t, tp.Shutdown(context.Background()))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["trace_id"])
	assert.NotEmpty(t, fields["span_id"])
	assert.Contains(t, buf.String(), "GET /url")
}

func TestWithTraceWithoutSpan(t *testing.T) {
	logger := zap.NewNop()
	assert.Same(t, logger, WithTrace(context.Background(), logger))
}

func TestMetricsRegistered(t *testing.T) {
	before := testutil.ToFloat64(InternalErrors)
	InternalErrors.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(InternalErrors))

	CommandsTotal.WithLabelValues("GET /title", "success").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(CommandsTotal.WithLabelValues("GET /title", "success")), 1.0)
}

func TestShutdownNilProvider(t *testing.T) {
	var tp *TracerProvider
	assert.NoError(t, tp.Shutdown(context.Background()))
}
