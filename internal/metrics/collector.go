// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，实现会话的生命周期回调。
type Collector struct {
	// 会话指标
	conversationsStarted   prometheus.Counter
	conversationsConcluded prometheus.Counter
	conversationDuration   prometheus.Histogram
	conclusionFailures     prometheus.Counter
	participants           prometheus.Gauge

	// 回合指标
	turnsTotal      *prometheus.CounterVec
	turnFailures    *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	roundsCompleted prometheus.Counter

	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 归档指标
	archiveOps *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到 prometheus.DefaultRegisterer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 会话指标
	c.conversationsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversations_started_total",
		Help:      "Total number of conversations started",
	})

	c.conversationsConcluded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversations_concluded_total",
		Help:      "Total number of conversations concluded with a verdict",
	})

	c.conversationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "conversation_duration_seconds",
		Help:      "Wall time from introduction to conclusion",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
	})

	c.conclusionFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conclusion_failures_total",
		Help:      "Total number of failed evaluator calls",
	})

	c.participants = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "participants",
		Help:      "Number of round-robin participants in the latest conversation",
	})

	// 回合指标
	c.turnsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of committed turns",
		},
		[]string{"speaker", "reason"},
	)

	c.turnFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_failures_total",
			Help:      "Total number of turns whose generation failed",
		},
		[]string{"speaker"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Turn duration in seconds, generation included",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"reason"},
	)

	c.roundsCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_completed_total",
		Help:      "Total number of completed rounds",
	})

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	// 归档指标
	c.archiveOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_operations_total",
			Help:      "Total number of transcript archive operations",
		},
		[]string{"backend", "status"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎭 会话指标记录
// =============================================================================

func (c *Collector) ConversationStarted(participants int) {
	c.conversationsStarted.Inc()
	c.participants.Set(float64(participants))
}

func (c *Collector) TurnCompleted(speaker, reason string, duration time.Duration) {
	c.turnsTotal.WithLabelValues(speaker, reason).Inc()
	c.turnDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

func (c *Collector) TurnFailed(speaker string) {
	c.turnFailures.WithLabelValues(speaker).Inc()
}

func (c *Collector) RoundCompleted(int) {
	c.roundsCompleted.Inc()
}

func (c *Collector) ConversationConcluded(rounds, turns int, duration time.Duration) {
	c.conversationsConcluded.Inc()
	c.conversationDuration.Observe(duration.Seconds())
}

func (c *Collector) ConclusionFailed() {
	c.conclusionFailures.Inc()
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 💾 归档指标记录
// =============================================================================

// RecordArchive 记录一次归档写入
func (c *Collector) RecordArchive(backend string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.archiveOps.WithLabelValues(backend, status).Inc()
}
