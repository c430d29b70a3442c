package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/pandemonium/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

// saveAndRestoreGlobalProviders snapshots the current global OTel providers
// and restores them via t.Cleanup so tests don't leak state.
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func enabledConfig(name string) config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  name,
		SampleRate:   1.0,
	}
}

func shutdownQuickly(t *testing.T, p *Providers) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Nil(t, p.tp, "TracerProvider should be nil when disabled")
	assert.Nil(t, p.mp, "MeterProvider should be nil when disabled")
	assert.NotNil(t, p.Tracer("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), enabledConfig("pandemonium-test"), nil, WithVersion("v1.2.3"))
	require.NoError(t, err)
	shutdownQuickly(t, p)

	assert.NotNil(t, p.tp)
	assert.NotNil(t, p.mp)

	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK, "global TracerProvider should be *sdktrace.TracerProvider")
	assert.True(t, mpIsSDK, "global MeterProvider should be *sdkmetric.MeterProvider")
}

func TestInit_SpanProcessorReceivesSpans(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	recorder := tracetest.NewSpanRecorder()
	p, err := Init(context.Background(), enabledConfig("pandemonium-spans"), nil, WithSpanProcessor(recorder))
	require.NoError(t, err)
	shutdownQuickly(t, p)

	_, span := p.Tracer("test").Start(context.Background(), "conversation.advance")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "conversation.advance", ended[0].Name())
}

func TestProviders_Shutdown_Nil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Tracer("nil-safe"))
}

func TestBuildVersion(t *testing.T) {
	// 测试二进制中 ReadBuildInfo 通常返回 "(devel)"，回退到 "dev"。
	assert.Equal(t, "dev", buildVersion())
}
