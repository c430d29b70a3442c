package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/BaSui01/pandemonium/llm"

// Metrics LLM 的 OTel 指标
type Metrics struct {
	requestTotal    metric.Int64Counter
	tokenTotal      metric.Int64Counter
	errorTotal      metric.Int64Counter
	requestDuration metric.Float64Histogram
	costPerRequest  metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics 从 MeterProvider 创建指标，mp 为 nil 时使用全局 provider
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	m := &Metrics{}
	var err error

	if m.requestTotal, err = meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.tokenTotal, err = meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}")); err != nil {
		return nil, err
	}
	if m.errorTotal, err = meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of failed LLM requests"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60)); err != nil {
		return nil, err
	}
	if m.costPerRequest, err = meter.Float64Histogram("llm.cost.per_request",
		metric.WithDescription("Estimated cost per request in USD"),
		metric.WithUnit("USD"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5)); err != nil {
		return nil, err
	}
	if m.activeRequests, err = meter.Int64UpDownCounter("llm.request.active",
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return m, nil
}

// requestResult 单次请求结果
type requestResult struct {
	provider         string
	model            string
	status           string
	errorCode        string
	promptTokens     int
	completionTokens int
	cost             float64
	duration         time.Duration
}

func (m *Metrics) begin(ctx context.Context, provider, model string) {
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model)))
}

func (m *Metrics) end(ctx context.Context, r requestResult) {
	base := metric.WithAttributes(
		attribute.String("provider", r.provider),
		attribute.String("model", r.model))
	common := metric.WithAttributes(
		attribute.String("provider", r.provider),
		attribute.String("model", r.model),
		attribute.String("status", r.status))

	m.activeRequests.Add(ctx, -1, base)
	m.requestTotal.Add(ctx, 1, common)
	m.requestDuration.Record(ctx, r.duration.Seconds(), common)

	if r.errorCode != "" {
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", r.provider),
			attribute.String("model", r.model),
			attribute.String("error_code", r.errorCode)))
		return
	}
	if r.promptTokens > 0 {
		m.tokenTotal.Add(ctx, int64(r.promptTokens), metric.WithAttributes(
			attribute.String("provider", r.provider),
			attribute.String("model", r.model),
			attribute.String("type", "prompt")))
	}
	if r.completionTokens > 0 {
		m.tokenTotal.Add(ctx, int64(r.completionTokens), metric.WithAttributes(
			attribute.String("provider", r.provider),
			attribute.String("model", r.model),
			attribute.String("type", "completion")))
	}
	if r.cost > 0 {
		m.costPerRequest.Record(ctx, r.cost, common)
	}
}
