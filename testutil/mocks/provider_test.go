package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/pandemonium/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Sequence(t *testing.T) {
	p := NewMockProvider().WithResponse("fallback").WithResponses("one", "two")
	ctx := context.Background()

	for _, want := range []string{"one", "two", "fallback"} {
		resp, err := p.Completion(ctx, &llm.ChatRequest{Model: "m"})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Choices[0].Message.Content)
	}
	assert.Equal(t, 3, p.CallCount())
	assert.Len(t, p.Calls(), 3)
	assert.Equal(t, "m", p.LastRequest().Model)
}

func TestMockProvider_FailOn(t *testing.T) {
	boom := errors.New("boom")
	p := NewMockProvider().WithFailOn(2, boom)
	ctx := context.Background()

	_, err := p.Completion(ctx, &llm.ChatRequest{})
	require.NoError(t, err)
	_, err = p.Completion(ctx, &llm.ChatRequest{})
	assert.ErrorIs(t, err, boom)
	_, err = p.Completion(ctx, &llm.ChatRequest{})
	require.NoError(t, err)
}

func TestMockProvider_FailAfter(t *testing.T) {
	p := NewMockProvider().WithFailAfter(1)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)
	_, err = p.Completion(context.Background(), &llm.ChatRequest{})
	assert.ErrorIs(t, err, ErrMockFailure)
}

func TestMockProvider_DelayHonoursCancel(t *testing.T) {
	p := NewMockProvider().WithDelay(time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Completion(ctx, &llm.ChatRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
