package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/types"
)

// Reporter receives one call per completed request.
// *metrics.Collector implements it.
type Reporter interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// 请求状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Option 配置 InstrumentedProvider
type Option func(*InstrumentedProvider)

// WithTracer 设置 Tracer，默认使用全局 provider
func WithTracer(tracer trace.Tracer) Option {
	return func(p *InstrumentedProvider) { p.tracer = tracer }
}

// WithMeterProvider 设置 OTel MeterProvider
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *InstrumentedProvider) { p.meterProvider = mp }
}

// WithReporter 设置 Prometheus 等外部上报器
func WithReporter(r Reporter) Option {
	return func(p *InstrumentedProvider) { p.reporter = r }
}

// WithCostTracker 设置成本追踪器
func WithCostTracker(t *CostTracker) Option {
	return func(p *InstrumentedProvider) { p.costs = t }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(p *InstrumentedProvider) { p.logger = logger }
}

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(p *InstrumentedProvider) { p.now = now }
}

// InstrumentedProvider wraps an llm.Provider with a span, OTel metrics,
// cost accounting and an optional Reporter. Responses and errors pass
// through unchanged.
type InstrumentedProvider struct {
	next          llm.Provider
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
	metrics       *Metrics
	reporter      Reporter
	costs         *CostTracker
	logger        *zap.Logger
	now           func() time.Time
}

// Wrap 包装 Provider
func Wrap(next llm.Provider, opts ...Option) (*InstrumentedProvider, error) {
	if next == nil {
		return nil, errors.New("observability: provider must not be nil")
	}
	p := &InstrumentedProvider{next: next, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(instrumentationName)
	}
	if p.costs == nil {
		p.costs = NewCostTracker(nil)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.With(zap.String("component", "llm_observability"), zap.String("provider", next.Name()))

	m, err := NewMetrics(p.meterProvider)
	if err != nil {
		return nil, err
	}
	p.metrics = m
	return p, nil
}

func (p *InstrumentedProvider) Name() string { return p.next.Name() }

// Costs 返回累计成本
func (p *InstrumentedProvider) Costs() CostSummary { return p.costs.Summary() }

func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.next.HealthCheck(ctx)
}

func (p *InstrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := ""
	if req != nil {
		model = req.Model
	}
	provider := p.next.Name()

	ctx, span := p.tracer.Start(ctx, "llm.completion",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		))
	defer span.End()

	if req != nil {
		span.SetAttributes(attribute.Int("llm.messages", len(req.Messages)))
		if speaker := req.Metadata["speaker"]; speaker != "" {
			span.SetAttributes(attribute.String("conversation.speaker", speaker))
		}
	}
	if id, ok := types.ConversationID(ctx); ok {
		span.SetAttributes(attribute.String("conversation.id", id))
	}

	p.metrics.begin(ctx, provider, model)
	start := p.now()
	resp, err := p.next.Completion(ctx, req)
	duration := p.now().Sub(start)

	result := requestResult{provider: provider, model: model, status: StatusSuccess, duration: duration}
	if err != nil {
		result.status = StatusError
		result.errorCode = errorCode(err)
		p.costs.TrackFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.code", result.errorCode))
		p.logger.Debug("completion failed", zap.String("model", model), zap.Duration("duration", duration), zap.Error(err))
	} else if resp != nil {
		if resp.Model != "" {
			result.model = resp.Model
		}
		result.promptTokens = resp.Usage.PromptTokens
		result.completionTokens = resp.Usage.CompletionTokens
		result.cost = p.costs.Track(result.model, result.promptTokens, result.completionTokens)
		span.SetAttributes(
			attribute.Int("llm.tokens.prompt", result.promptTokens),
			attribute.Int("llm.tokens.completion", result.completionTokens),
			attribute.Float64("llm.cost", result.cost),
		)
		span.SetStatus(codes.Ok, "")
	}

	p.metrics.end(ctx, result)
	if p.reporter != nil {
		p.reporter.RecordLLMRequest(provider, result.model, result.status, duration, result.promptTokens, result.completionTokens)
	}
	return resp, err
}

func errorCode(err error) string {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) && llmErr.Code != "" {
		return string(llmErr.Code)
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "DEADLINE_EXCEEDED"
	}
	return "UNKNOWN"
}
