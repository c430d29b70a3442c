// Package evaluation provides the independent assessor that closes a conversation.
package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/pandemonium/llm"
	"go.uber.org/zap"
)

// DefaultName 是评估者在日志中的身份。
const DefaultName = "Evaluator"

// DefaultCriteria 在未提供评估标准时使用。
const DefaultCriteria = "Which ideas were best supported, where participants converged, and what remains unresolved."

// Request 是一次评估的全部输入。Transcript 是完整的规范日志而非窗口。
type Request struct {
	Topic      string
	Criteria   string
	Transcript string
}

// Verdict 评估结果
type Verdict struct {
	Evaluator string `json:"evaluator"`
	// Text 是评估者的完整回复。
	Text string `json:"text"`
	// Result 是 "Result:" 行之后的综合结论，没有该行时为空。
	Result    string    `json:"result,omitempty"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluator 对完整会话做一次性评估。实现必须无状态。
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, req Request) (*Verdict, error)
}

// Factory 为每次收尾创建一个全新的 Evaluator。
type Factory func() Evaluator

// LLMEvaluatorConfig LLM 评估配置
type LLMEvaluatorConfig struct {
	Name        string        `json:"name"`
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// DefaultLLMEvaluatorConfig returns the default evaluator settings.
func DefaultLLMEvaluatorConfig() LLMEvaluatorConfig {
	return LLMEvaluatorConfig{
		Name:        DefaultName,
		Model:       "gpt-5",
		Temperature: 0.5,
	}
}

// LLMEvaluator 使用 LLM 作为独立评估者
type LLMEvaluator struct {
	provider llm.Provider
	config   LLMEvaluatorConfig
	logger   *zap.Logger
}

// NewLLMEvaluator creates an evaluator backed by provider.
func NewLLMEvaluator(provider llm.Provider, config LLMEvaluatorConfig, logger *zap.Logger) *LLMEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = DefaultName
	}
	return &LLMEvaluator{
		provider: provider,
		config:   config,
		logger:   logger.With(zap.String("component", "evaluator")),
	}
}

// NewFactory 返回每次调用都创建新 LLMEvaluator 的 Factory。
func NewFactory(provider llm.Provider, config LLMEvaluatorConfig, logger *zap.Logger) Factory {
	return func() Evaluator {
		return NewLLMEvaluator(provider, config, logger)
	}
}

func (e *LLMEvaluator) Name() string { return e.config.Name }

// Evaluate 发起一次评估调用，不重试。
func (e *LLMEvaluator) Evaluate(ctx context.Context, req Request) (*Verdict, error) {
	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" {
		transcript = "No conversation history available."
	}

	resp, err := e.provider.Completion(ctx, &llm.ChatRequest{
		Model: e.config.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: Directive(req.Topic, req.Criteria)},
			{Role: llm.RoleUser, Content: transcript},
		},
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
		Timeout:     e.config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluation call failed: %w", err)
	}
	text, err := llm.FirstContent(resp)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("evaluator returned an empty verdict")
	}

	e.logger.Info("conversation evaluated",
		zap.String("topic", req.Topic),
		zap.Int("transcript_bytes", len(req.Transcript)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return &Verdict{
		Evaluator: e.config.Name,
		Text:      text,
		Result:    ExtractResult(text),
		Model:     resp.Model,
		Timestamp: time.Now(),
	}, nil
}

// Directive 构造评估者的 system 提示。
func Directive(topic, criteria string) string {
	if strings.TrimSpace(criteria) == "" {
		criteria = DefaultCriteria
	}
	return fmt.Sprintf(`You are an independent evaluator reviewing a complete chatroom discussion about %q.

You have access to the entire conversation history.

First, you will read your evaluation criteria, these frame how you understand the
conversation. Your evaluation criteria are: %s

Next, you will read through the entire chatroom discussion.

Next, you will synthesize the best outcome of the conversation, based on the evaluation criteria.

Finally, you will provide a brief summary of the best parts of the conversation, and end with a
statement that says:

Result: (your synthesis of the best outcome in no more than 3 sentences)`, topic, criteria)
}

// ExtractResult 返回最后一个 "Result:" 行之后的文本。
func ExtractResult(text string) string {
	idx := strings.LastIndex(text, "Result:")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+len("Result:"):])
}
