package llm

import (
	"context"
	"testing"

	"github.com/agenthands/medscan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("empty provider", func(t *testing.T) {
		_, err := NewClient(ctx, config.LLMConfig{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("missing key", func(t *testing.T) {
		for _, p := range []string{"openai", "gemini", "claude"} {
			_, err := NewClient(ctx, config.LLMConfig{Provider: p})
			assert.ErrorIs(t, err, ErrNotConfigured, p)
		}
	})

	t.Run("openai", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "OpenAI", APIKey: "k", Model: "gpt-4o"})
		require.NoError(t, err)
		oc, ok := c.(*OpenAIClient)
		require.True(t, ok)
		assert.Equal(t, "gpt-4o", oc.settings.Model)
		assert.Equal(t, DefaultSystem, oc.settings.System)
	})

	t.Run("claude", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "claude", APIKey: "k"})
		require.NoError(t, err)
		cc, ok := c.(*ClaudeClient)
		require.True(t, ok)
		assert.NotEmpty(t, cc.settings.Model)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		c, err := NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3"})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, c)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewClient(ctx, config.LLMConfig{Provider: "bard", APIKey: "k"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotConfigured)
	})
}

func TestSettingsFrom(t *testing.T) {
	s := settingsFrom(config.LLMConfig{Model: "m"})
	assert.Equal(t, "m", s.Model)
	assert.Equal(t, DefaultSystem, s.System)
	assert.InDelta(t, defaultTemperature, s.Temperature, 1e-6)
	assert.Equal(t, defaultMaxTokens, s.MaxTokens)

	warm := float32(0.7)
	s = settingsFrom(config.LLMConfig{System: "be brief", Temperature: &warm, MaxTokens: 100})
	assert.Equal(t, "be brief", s.System)
	assert.InDelta(t, 0.7, s.Temperature, 1e-6)
	assert.Equal(t, 100, s.MaxTokens)

	zero := float32(0)
	s = settingsFrom(config.LLMConfig{Temperature: &zero})
	assert.Zero(t, s.Temperature)
}

func TestOpenAIRequest(t *testing.T) {
	c := NewOpenAIClient("k", "", Settings{System: "sys", Temperature: 0.3, MaxTokens: 64})
	req := c.request("hello")
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "sys", req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "hello", req.Messages[1].Content)
	assert.Equal(t, 64, req.MaxTokens)

	req = NewOpenAIClient("k", "", Settings{Model: "llama3"}).request("hi")
	assert.Len(t, req.Messages, 1)
	assert.Greater(t, req.Temperature, float32(0))
	assert.Less(t, req.Temperature, float32(1e-6))
}

func TestClaudeRequest(t *testing.T) {
	c := NewClaudeClient("k", "", Settings{System: "sys", Temperature: 0.5, MaxTokens: 128})
	req := c.request("hello")
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, 128, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.5, *req.Temperature, 1e-6)
	require.Len(t, req.Messages, 1)
}
