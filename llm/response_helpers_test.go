package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstChoice(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		_, err := FirstChoice(nil)
		require.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		_, err := FirstChoice(&ChatResponse{Provider: "openai"})
		require.Error(t, err)

		var llmErr *Error
		require.True(t, errors.As(err, &llmErr))
		assert.Equal(t, ErrEmptyResponse, llmErr.Code)
		assert.Equal(t, "openai", llmErr.Provider)
	})

	t.Run("first of many", func(t *testing.T) {
		resp := &ChatResponse{Choices: []ChatChoice{
			{Index: 0, Message: Message{Role: RoleAssistant, Content: "first"}},
			{Index: 1, Message: Message{Role: RoleAssistant, Content: "second"}},
		}}
		choice, err := FirstChoice(resp)
		require.NoError(t, err)
		assert.Equal(t, "first", choice.Message.Content)
	})
}

func TestFirstContent_Trims(t *testing.T) {
	resp := &ChatResponse{Choices: []ChatChoice{{Message: Message{Content: "  hello there \n"}}}}
	text, err := FirstContent(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}
