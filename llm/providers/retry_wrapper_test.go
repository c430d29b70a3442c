package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries:    n,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
		RetryableOnly: true,
	}
}

func TestRetryableProvider_RecoversFromTransientError(t *testing.T) {
	inner := mocks.NewMockProvider().
		WithResponse("second time lucky").
		WithFailOn(1, MapHTTPError(http.StatusServiceUnavailable, "down", "openai"))

	p := NewRetryableProvider(inner, fastRetry(2), nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "gpt-5"})

	require.NoError(t, err)
	assert.Equal(t, "second time lucky", resp.Choices[0].Message.Content)
	assert.Equal(t, 2, inner.CallCount())
}

func TestRetryableProvider_NonRetryableReturnsImmediately(t *testing.T) {
	authErr := MapHTTPError(http.StatusUnauthorized, "bad key", "openai")
	inner := mocks.NewMockProvider().WithError(authErr)

	p := NewRetryableProvider(inner, fastRetry(3), nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUnauthorized, llmErr.Code)
	assert.Equal(t, 1, inner.CallCount())
}

func TestRetryableProvider_PlainErrorsOnlyRetriedWhenConfigured(t *testing.T) {
	inner := mocks.NewMockProvider().WithError(mocks.ErrMockFailure)
	p := NewRetryableProvider(inner, fastRetry(2), nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.ErrorIs(t, err, mocks.ErrMockFailure)
	assert.Equal(t, 1, inner.CallCount())

	cfg := fastRetry(2)
	cfg.RetryableOnly = false
	inner = mocks.NewMockProvider().WithError(mocks.ErrMockFailure)
	p = NewRetryableProvider(inner, cfg, nil)
	_, err = p.Completion(context.Background(), &llm.ChatRequest{})
	require.ErrorIs(t, err, mocks.ErrMockFailure)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, inner.CallCount())
}

func TestRetryableProvider_ExhaustsRetries(t *testing.T) {
	inner := mocks.NewMockProvider().WithError(MapHTTPError(http.StatusTooManyRequests, "slow down", "openai"))
	p := NewRetryableProvider(inner, fastRetry(2), nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, inner.CallCount())

	var llmErr *llm.Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
}

func TestRetryableProvider_ZeroRetriesPassesErrorThrough(t *testing.T) {
	upstream := MapHTTPError(http.StatusBadGateway, "bad gateway", "openai")
	inner := mocks.NewMockProvider().WithError(upstream)
	p := NewRetryableProvider(inner, fastRetry(0), nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	assert.Same(t, upstream, err)
	assert.Equal(t, 1, inner.CallCount())
}

func TestRetryableProvider_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := mocks.NewMockProvider().WithCompletionFunc(func(context.Context, *llm.ChatRequest) (*llm.ChatResponse, error) {
		cancel()
		return nil, MapHTTPError(http.StatusServiceUnavailable, "down", "openai")
	})

	cfg := fastRetry(5)
	cfg.InitialDelay = time.Hour
	p := NewRetryableProvider(inner, cfg, nil)

	_, err := p.Completion(ctx, &llm.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.CallCount())
}

func TestRetryableProvider_Delegates(t *testing.T) {
	inner := mocks.NewMockProvider()
	p := NewRetryableProvider(inner, DefaultRetryConfig(), nil)

	assert.Equal(t, "mock", p.Name())
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestRetryableProvider_CalculateDelay(t *testing.T) {
	p := NewRetryableProvider(mocks.NewMockProvider(), RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2,
	}, nil)

	assert.Equal(t, 100*time.Millisecond, p.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.calculateDelay(3))
}
