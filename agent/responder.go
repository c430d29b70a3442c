package agent

import (
	"context"
	"fmt"

	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/llm/tokenizer"
	"go.uber.org/zap"
)

// Request 是一次发言生成所需的全部输入。
type Request struct {
	Speaker string
	Persona string
	Topic   string
	// Context 是发言者的记忆窗口，按时间顺序排列。
	Context []llm.Message
}

// Responder 生成一条发言。实现必须是无副作用的黑盒调用。
type Responder interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, req Request) (string, error)

func (f ResponderFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// LLMResponderConfig configures LLMResponder.
type LLMResponderConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// MaxContextTokens 限制整个提示词的 token 数，超出时从最旧的窗口消息开始丢弃。
	// 0 表示不限制。
	MaxContextTokens int
}

// LLMResponder 通过 llm.Provider 生成发言。
type LLMResponder struct {
	provider  llm.Provider
	config    LLMResponderConfig
	tokenizer tokenizer.Tokenizer
	logger    *zap.Logger
}

// NewLLMResponder creates a Responder backed by provider. A nil tokenizer
// selects one for the configured model.
func NewLLMResponder(provider llm.Provider, config LLMResponderConfig, tok tokenizer.Tokenizer, logger *zap.Logger) *LLMResponder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tok == nil {
		tok = tokenizer.ForModel(config.Model)
	}
	return &LLMResponder{
		provider:  provider,
		config:    config,
		tokenizer: tok,
		logger:    logger.With(zap.String("component", "llm_responder")),
	}
}

func (r *LLMResponder) Generate(ctx context.Context, req Request) (string, error) {
	messages := r.buildMessages(req)

	resp, err := r.provider.Completion(ctx, &llm.ChatRequest{
		Model:       r.config.Model,
		Messages:    messages,
		Temperature: r.config.Temperature,
		MaxTokens:   r.config.MaxTokens,
		Metadata:    map[string]string{"speaker": req.Speaker},
	})
	if err != nil {
		return "", fmt.Errorf("completion for %s: %w", req.Speaker, err)
	}
	text, err := llm.FirstContent(resp)
	if err != nil {
		return "", err
	}

	r.logger.Info("response generated",
		zap.String("speaker", req.Speaker),
		zap.Int("context_messages", len(messages)-2),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return text, nil
}

// buildMessages 组装 system 提示、记忆窗口与结尾指令，并按 token 预算裁剪窗口。
func (r *LLMResponder) buildMessages(req Request) []llm.Message {
	system := llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(req.Speaker, req.Persona, req.Topic)}
	instruction := llm.Message{Role: llm.RoleUser, Content: TurnInstruction(req.Topic)}

	window := req.Context
	if r.config.MaxContextTokens > 0 {
		window = r.trimToBudget(system, instruction, window)
	}

	out := make([]llm.Message, 0, len(window)+2)
	out = append(out, system)
	out = append(out, window...)
	out = append(out, instruction)
	return out
}

func (r *LLMResponder) trimToBudget(system, instruction llm.Message, window []llm.Message) []llm.Message {
	for len(window) > 0 {
		msgs := make([]tokenizer.Message, 0, len(window)+2)
		msgs = append(msgs, tokenizer.Message{Role: string(system.Role), Content: system.Content})
		for _, m := range window {
			msgs = append(msgs, tokenizer.Message{Role: string(m.Role), Content: m.Content})
		}
		msgs = append(msgs, tokenizer.Message{Role: string(instruction.Role), Content: instruction.Content})

		n, err := r.tokenizer.CountMessages(msgs)
		if err != nil || n <= r.config.MaxContextTokens {
			return window
		}
		window = window[1:]
	}
	return window
}
