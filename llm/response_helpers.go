package llm

import (
	"fmt"
	"strings"
)

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, fmt.Errorf("nil ChatResponse")
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, &Error{
			Code:     ErrEmptyResponse,
			Message:  "empty choices in ChatResponse (model returned no choices)",
			Provider: resp.Provider,
		}
	}
	return resp.Choices[0], nil
}

// FirstContent returns the trimmed text of the first choice.
func FirstContent(resp *ChatResponse) (string, error) {
	choice, err := FirstChoice(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(choice.Message.Content), nil
}
