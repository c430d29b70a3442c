package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer("local", 0)
	assert.Equal(t, 4096, e.MaxTokens())
	assert.Equal(t, "estimator", e.Name())

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcdefgh", 2},
		{"你好世界", 2},
	}
	for _, tt := range tests {
		got, err := e.CountTokens(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestEstimator_CountMessages(t *testing.T) {
	e := NewEstimatorTokenizer("local", 100)
	got, err := e.CountMessages([]Message{
		{Role: "system", Content: "abcdefgh"},
		{Role: "user", Content: ""},
	})
	require.NoError(t, err)
	// (2+4) + (0+4) + 3
	assert.Equal(t, 13, got)
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model    string
		wantName string
		wantMax  int
	}{
		{"gpt-5", "tiktoken[o200k_base]", 272000},
		{"GPT-4o-mini", "tiktoken[o200k_base]", 128000},
		{"gpt-4", "tiktoken[cl100k_base]", 8192},
		{"llama3", "estimator", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			tok := ForModel(tt.model)
			assert.Equal(t, tt.wantName, tok.Name())
			assert.Equal(t, tt.wantMax, tok.MaxTokens())
		})
	}
}

type failingTokenizer struct{}

func (failingTokenizer) CountTokens(string) (int, error)      { return 0, errors.New("no bpe data") }
func (failingTokenizer) CountMessages([]Message) (int, error) { return 0, errors.New("no bpe data") }
func (failingTokenizer) MaxTokens() int                       { return 10 }
func (failingTokenizer) Name() string                         { return "failing" }

func TestFallbackTokenizer_UsesEstimatorOnError(t *testing.T) {
	f := &fallbackTokenizer{primary: failingTokenizer{}, fallback: NewEstimatorTokenizer("x", 10)}

	n, err := f.CountTokens("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.CountMessages([]Message{{Role: "user", Content: "abcd"}})
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.Equal(t, "failing", f.Name())
}

func TestNewTiktokenTokenizer_UnknownModelDefaults(t *testing.T) {
	tok := NewTiktokenTokenizer("mystery")
	assert.Equal(t, "tiktoken[cl100k_base]", tok.Name())
	assert.Equal(t, 8192, tok.MaxTokens())
}
