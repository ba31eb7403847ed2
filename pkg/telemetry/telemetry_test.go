package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	tel, err := Init(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, tel.Tracer())
	assert.NotNil(t, tel.Meter())
	assert.Nil(t, tel.Config())

	cfg := &Config{Enabled: false, ServiceName: "test-service"}
	tel, err = Init(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, tel.Config())
	assert.Same(t, tel, Get())
	assert.Nil(t, tel.tracerProvider)
	assert.NoError(t, Shutdown(ctx))
}

func TestShutdown_NilGlobal(t *testing.T) {
	globalTelemetry = nil
	assert.NoError(t, Shutdown(context.Background()))
}

func TestStartSpan_NilGlobal(t *testing.T) {
	globalTelemetry = nil
	ctx := context.Background()

	spanCtx, span := StartSpan(ctx, "test")
	assert.Equal(t, ctx, spanCtx)
	assert.NotNil(t, span)
	assert.Empty(t, GetTraceID(spanCtx))
}

func TestStartSpan_Disabled(t *testing.T) {
	_, err := Init(context.Background(), &Config{ServiceName: "test"})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "event.create")
	SetSpanAttributes(ctx, EventIDAttr("evt-1"))
	EndSpan(span, nil)
	EndSpan(span, errors.New("boom"))
}

func TestGetMeter_NilGlobal(t *testing.T) {
	globalTelemetry = nil
	assert.NotNil(t, GetMeter())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1.5).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestNewResource(t *testing.T) {
	res := newResource(&Config{ServiceName: "svc", ServiceVersion: "1.2.3", Environment: "test"})
	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "svc", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "event-invitations", attrs["service.namespace"])
}

func TestNewMetrics_NoopMeter(t *testing.T) {
	globalTelemetry = nil
	m, err := NewMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.EventsCreated.Inc(ctx, EventIDAttr("e1"))
	m.RSVPResponses.Inc(ctx, RSVPStatusAttr("accepted"))
	m.RequestDuration.Record(ctx, 0.02, MethodAttr("GET"), RouteAttr("/api/v1/events"), StatusCodeAttr(200))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		attr attribute.KeyValue
		key  string
	}{
		{MethodAttr("GET"), AttrMethod},
		{RouteAttr("/x"), AttrRoute},
		{StatusCodeAttr(200), AttrStatusCode},
		{EventIDAttr("e"), AttrEventID},
		{UserEmailAttr("a@x.com"), AttrUserEmail},
		{RSVPStatusAttr("accepted"), AttrRSVPStatus},
		{MediaKindAttr("map"), AttrMediaKind},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, string(tt.attr.Key))
	}
}
