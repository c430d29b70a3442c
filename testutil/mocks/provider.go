// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持固定响应、脚本化响应序列与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/pandemonium/llm"
)

// ErrMockFailure 是 WithFailAfter / WithFailOn 注入的默认错误。
var ErrMockFailure = errors.New("mock provider failure")

// MockProvider 是 LLM Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	// 响应配置
	response  string
	responses []string
	err       error

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 调用记录
	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// 行为控制
	delay     time.Duration
	failAfter int
	failOn    map[int]error
	callCount int
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
		failOn:           make(map[int]error),
	}
}

// WithResponse 设置固定响应内容
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithResponses 设置按调用顺序返回的响应，用尽后回退到固定响应
func (m *MockProvider) WithResponses(responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]string(nil), responses...)
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟，延迟期间响应 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithFailOn 设置第 n 次调用（从 1 开始）返回 err；err 为 nil 时使用 ErrMockFailure
func (m *MockProvider) WithFailOn(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrMockFailure
	}
	m.failOn[n] = err
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// HealthCheck 执行健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}

// Completion 返回脚本化响应
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	delay := m.delay
	fn := m.completionFunc
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, m.record(req, nil, ctx.Err())
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, m.record(req, nil, err)
	}
	if fn != nil {
		resp, err := fn(ctx, req)
		return resp, m.record(req, resp, err)
	}

	m.mu.Lock()
	err := m.err
	if e, ok := m.failOn[n]; ok {
		err = e
	}
	if m.failAfter > 0 && n > m.failAfter {
		err = ErrMockFailure
	}
	content := m.response
	if len(m.responses) > 0 {
		content = m.responses[0]
		m.responses = m.responses[1:]
	}
	prompt, completion := m.promptTokens, m.completionTokens
	m.mu.Unlock()

	if err != nil {
		return nil, m.record(req, nil, err)
	}

	resp := &llm.ChatResponse{
		ID:       "mock-response",
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			Index:        0,
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		CreatedAt: time.Now(),
	}
	return resp, m.record(req, resp, nil)
}

func (m *MockProvider) record(req *llm.ChatRequest, resp *llm.ChatResponse, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp, Error: err})
	return err
}

// Calls 返回调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回 Completion 被调用的次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest 返回最后一次请求，无调用时返回 nil
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}

var _ llm.Provider = (*MockProvider)(nil)
