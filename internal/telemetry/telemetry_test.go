package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withRecorder installs an in-memory tracer for the duration of the test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	mu.Lock()
	prevTracer, prevEnabled := tracer, enabled
	tracer, enabled = tp.Tracer(instrumentationName), true
	mu.Unlock()

	t.Cleanup(func() {
		mu.Lock()
		tracer, enabled = prevTracer, prevEnabled
		mu.Unlock()
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "p2pci", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())

	_, span := StartSpan(ctx, "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestCommandSpan(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartCommandSpan(context.Background(), "LOOKUP",
		attribute.Int(AttrRFC, 793))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	EndCommandSpan(span, 404, "Not Found")

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "p2pci.LOOKUP", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "LOOKUP", attrs[AttrVerb].AsString())
	assert.Equal(t, int64(793), attrs[AttrRFC].AsInt64())
	assert.Equal(t, int64(404), attrs[AttrStatus].AsInt64())
}

func TestEndCommandSpanMarksServerErrors(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartCommandSpan(context.Background(), "GET")
	EndCommandSpan(span, 500, "Internal Server Error")

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, codes.Error, rec.Ended()[0].Status().Code)
}

func TestRecordError(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := StartSpan(context.Background(), SpanRegistration)
	RecordError(ctx, nil)
	RecordError(ctx, errors.New("upload line malformed"))
	span.End()

	require.Len(t, rec.Ended(), 1)
	s := rec.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Len(t, s.Events(), 1)
}

func TestIDsWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))
}

func TestClientAttrs(t *testing.T) {
	assert.Len(t, ClientAttrs("10.0.0.1", 50000, ""), 2)
	assert.Len(t, ClientAttrs("10.0.0.1", 50000, "peer-a"), 3)
}

func TestProfiling(t *testing.T) {
	stop, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, stop())

	_, err = InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "bogus"}})
	assert.Error(t, err)

	assert.True(t, ValidProfileType("mutex_duration"))
	assert.False(t, ValidProfileType("heap"))
}
