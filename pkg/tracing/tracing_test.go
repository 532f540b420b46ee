package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(t.Context(), Config{ServiceName: "storefront"})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(t.Context()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTracer_InstallsSDKProvider(t *testing.T) {
	restoreGlobals(t)

	for _, endpoint := range []string{"127.0.0.1:0", "http://127.0.0.1:0", "https://127.0.0.1:0"} {
		shutdown, err := InitTracer(t.Context(), Config{
			ServiceName:    "storefront",
			ServiceVersion: "test",
			Environment:    "test",
			OTLPEndpoint:   endpoint,
			SampleRate:     0.5,
			Enabled:        true,
		})
		require.NoError(t, err, endpoint)

		_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
		assert.True(t, ok, endpoint)
		assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

		// Nothing was exported, so the flush does not touch the endpoint.
		_ = shutdown(context.Background())
	}
}

func TestSampler_RootDecisions(t *testing.T) {
	tests := []struct {
		rate float64
		want sdktrace.SamplingDecision
	}{
		{1, sdktrace.RecordAndSample},
		{2, sdktrace.RecordAndSample},
		{0, sdktrace.Drop},
		{-1, sdktrace.Drop},
	}
	for _, tt := range tests {
		res := Sampler(tt.rate).ShouldSample(sdktrace.SamplingParameters{
			ParentContext: context.Background(),
			TraceID:       trace.TraceID{1},
			Name:          "order.submit",
		})
		assert.Equal(t, tt.want, res.Decision, "rate %v", tt.rate)
	}
}

func TestSampler_FollowsSampledParent(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)

	res := Sampler(0).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: ctx,
		TraceID:       parent.TraceID(),
		Name:          "GET /api/v1/cart",
	})

	assert.Equal(t, sdktrace.RecordAndSample, res.Decision)
}

func TestTracer_UsesGlobalProvider(t *testing.T) {
	restoreGlobals(t)
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer("storefront").Start(t.Context(), "order.submit")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
}
