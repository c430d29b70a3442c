package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/testutil"
	"github.com/BaSui01/pandemonium/testutil/mocks"
	"github.com/BaSui01/pandemonium/types"
)

type reportedRequest struct {
	provider, model, status string
	duration                time.Duration
	prompt, completion      int
}

type fakeReporter struct {
	calls []reportedRequest
}

func (r *fakeReporter) RecordLLMRequest(provider, model, status string, d time.Duration, prompt, completion int) {
	r.calls = append(r.calls, reportedRequest{provider, model, status, d, prompt, completion})
}

type harness struct {
	spans    *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
	reporter *fakeReporter
	provider *InstrumentedProvider
}

func newHarness(t *testing.T, next llm.Provider) *harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	reporter := &fakeReporter{}
	now, advance := testutil.FixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	clock := func() time.Time {
		current := now()
		advance(250 * time.Millisecond)
		return current
	}

	p, err := Wrap(next,
		WithTracer(tp.Tracer("test")),
		WithMeterProvider(mp),
		WithReporter(reporter),
		WithClock(clock),
	)
	require.NoError(t, err)
	return &harness{spans: spans, reader: reader, reporter: reporter, provider: p}
}

func (h *harness) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInstrumentedProvider_Success(t *testing.T) {
	mock := mocks.NewMockProvider().WithResponse("hello").WithTokenUsage(1000, 1000)
	h := newHarness(t, mock)

	ctx := types.WithConversationID(testutil.TestContext(t), "conv-42")
	resp, err := h.provider.Completion(ctx, &llm.ChatRequest{
		Model:    "gpt-5",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Metadata: map[string]string{"speaker": "Skeptic_economics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "mock", h.provider.Name())

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "llm.completion", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	attrs := map[string]any{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "gpt-5", attrs["llm.model"])
	assert.Equal(t, "Skeptic_economics", attrs["conversation.speaker"])
	assert.Equal(t, "conv-42", attrs["conversation.id"])
	assert.Equal(t, int64(1000), attrs["llm.tokens.prompt"])

	assert.Equal(t, int64(1), h.counter(t, "llm.request.total"))
	assert.Equal(t, int64(2000), h.counter(t, "llm.token.total"))
	assert.Equal(t, int64(0), h.counter(t, "llm.request.active"))

	require.Len(t, h.reporter.calls, 1)
	call := h.reporter.calls[0]
	assert.Equal(t, reportedRequest{"mock", "gpt-5", StatusSuccess, 250 * time.Millisecond, 1000, 1000}, call)

	costs := h.provider.Costs()
	assert.Equal(t, 1, costs.RequestCount)
	assert.InDelta(t, 0.01125, costs.TotalCost, 1e-9)
}

func TestInstrumentedProvider_Error(t *testing.T) {
	upstream := &llm.Error{Code: llm.ErrRateLimited, Message: "slow down", Retryable: true}
	mock := mocks.NewMockProvider().WithError(upstream)
	h := newHarness(t, mock)

	_, err := h.provider.Completion(testutil.TestContext(t), &llm.ChatRequest{Model: "gpt-5"})
	require.ErrorIs(t, err, upstream)

	ended := h.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	assert.Equal(t, int64(1), h.counter(t, "llm.error.total"))
	assert.Equal(t, int64(0), h.counter(t, "llm.token.total"))

	require.Len(t, h.reporter.calls, 1)
	assert.Equal(t, StatusError, h.reporter.calls[0].status)
	assert.Equal(t, 1, h.provider.Costs().FailedCount)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "LLM_UPSTREAM_TIMEOUT", errorCode(&llm.Error{Code: llm.ErrUpstreamTimeout}))
	assert.Equal(t, "CANCELLED", errorCode(context.Canceled))
	assert.Equal(t, "DEADLINE_EXCEEDED", errorCode(context.DeadlineExceeded))
	assert.Equal(t, "UNKNOWN", errorCode(assert.AnError))
}

func TestWrap_NilProvider(t *testing.T) {
	_, err := Wrap(nil)
	require.Error(t, err)
}

func TestInstrumentedProvider_HealthCheckPassesThrough(t *testing.T) {
	p, err := Wrap(mocks.NewMockProvider())
	require.NoError(t, err)
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}
