package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "dittodrop", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())

	// spans are no-ops and carry no trace id
	spanCtx, span := StartSessionSpan(ctx, "s1", "127.0.0.1:5555")
	defer span.End()
	assert.Empty(t, TraceID(spanCtx))
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileType(t *testing.T) {
	for _, pt := range DefaultProfileTypes {
		_, err := parseProfileType(pt)
		assert.NoError(t, err, pt)
	}
	_, err := parseProfileType("bogus")
	assert.ErrorContains(t, err, "valid: alloc_objects")
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), newSampler(0).Description())
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
}

func TestRecordError_NoSpan(t *testing.T) {
	ctx := context.Background()
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("boom"))
		SetAttributes(ctx, Size(1))
		AddEvent(ctx, EventChunkRejected)
	})
}

func TestSessionAndCommandSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	UseTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_, _ = Init(context.Background(), DefaultConfig())
	})

	ctx, session := StartSessionSpan(context.Background(), "s1", "10.0.0.1:40000")
	require.NotEmpty(t, TraceID(ctx))

	cmdCtx, cmd := StartCommandSpan(ctx, "upload", Filename("a.txt"))
	SetAttributes(cmdCtx, Size(2048), Chunks(2), Reply("ok"))
	RecordError(cmdCtx, errors.New("disk full"))
	cmd.End()
	session.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "command.upload", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "upload", attrs[AttrCommand])
	assert.Equal(t, "a.txt", attrs[AttrFilename])
	assert.Equal(t, int64(2048), attrs[AttrSize])

	assert.Equal(t, SpanSession, spans[1].Name)
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrClientAddr, string(ClientAddr("x").Key))
	assert.Equal(t, AttrSessionID, string(SessionID("x").Key))
	assert.Equal(t, AttrUsername, string(Username("x").Key))
	assert.Equal(t, int64(2), AuthAttempt(2).Value.AsInt64())
	assert.Equal(t, AttrAuthResult, string(AuthResult("x").Key))
	assert.True(t, Preview(true).Value.AsBool())
}
