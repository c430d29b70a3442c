package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/BaSui01/pandemonium/llm"
	"go.uber.org/zap"
)

// RetryConfig holds retry configuration for a provider wrapper.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`       // Maximum retry attempts, default 2
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`   // Initial backoff delay, default 1s
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`           // Maximum backoff delay, default 30s
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"` // Exponential backoff factor, default 2.0
	RetryableOnly bool          `json:"retryable_only" yaml:"retryable_only"` // Only retry errors marked Retryable
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		RetryableOnly: true,
	}
}

// RetryableProvider wraps an llm.Provider with exponential-backoff retry logic.
// 只重试 Completion；HealthCheck 直接透传。
type RetryableProvider struct {
	inner  llm.Provider
	config RetryConfig
	logger *zap.Logger
}

// NewRetryableProvider creates a retrying wrapper around the given provider.
func NewRetryableProvider(inner llm.Provider, config RetryConfig, logger *zap.Logger) *RetryableProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &RetryableProvider{
		inner:  inner,
		config: config,
		logger: logger.With(zap.String("component", "retry_provider"), zap.String("provider", inner.Name())),
	}
}

// Compile-time interface check.
var _ llm.Provider = (*RetryableProvider)(nil)

func (p *RetryableProvider) Name() string { return p.inner.Name() }

func (p *RetryableProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion performs a chat completion with retry on transient errors.
func (p *RetryableProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.calculateDelay(attempt)
			p.logger.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := p.inner.Completion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.shouldRetry(err) {
			return nil, err
		}

		p.logger.Warn("completion failed, will retry",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	if p.config.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("completion failed after %d retries: %w", p.config.MaxRetries, lastErr)
}

func (p *RetryableProvider) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !p.config.RetryableOnly {
		return true
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

func (p *RetryableProvider) calculateDelay(attempt int) time.Duration {
	delay := float64(p.config.InitialDelay) * math.Pow(p.config.BackoffFactor, float64(attempt-1))
	if p.config.MaxDelay > 0 && delay > float64(p.config.MaxDelay) {
		delay = float64(p.config.MaxDelay)
	}
	return time.Duration(delay)
}
