package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/heapwalker/pkg/errors"
)

func resetGlobalConfig() {
	globalConfig = nil
	configOnce = sync.Once{}
}

func TestInit_Disabled(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("OTEL_ENABLED", "")

	ctx := context.Background()
	shutdown, err := Init(ctx, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, Enabled())
}

func TestGetConfig(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("OTEL_SERVICE_NAME", "test-service")

	cfg := GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "test-service", cfg.ServiceName)
	t.Cleanup(resetGlobalConfig)
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartEndSpan(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "walker.open", attribute.String("snapshot", "a.json"))
	EndSpan(span, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "walker.open", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("snapshot", "a.json"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestEndSpan_RecordsErrorCode(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "walker.open")
	EndSpan(span, apperrors.Newf(apperrors.CodeNotFound, "object 0x%x not found", 0x10))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("error.code", apperrors.CodeNotFound))
	assert.Len(t, spans[0].Events(), 1)
}

func TestEndSpan_PlainError(t *testing.T) {
	sr := withRecorder(t)

	_, span := StartSpan(context.Background(), "walker.more")
	EndSpan(span, errors.New("boom"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.String("error.code", apperrors.CodeUnknown))
}
