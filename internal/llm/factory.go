package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/medscan/internal/config"
)

// ErrNotConfigured is returned when no provider credentials are available.
// Callers treat it as "no LLM" and use their regex fallbacks.
var ErrNotConfigured = errors.New("llm provider not configured")

// NewClient builds the client for cfg.Provider. Missing credentials yield
// ErrNotConfigured, anything else is a configuration mistake.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)
	s := settingsFrom(cfg)

	switch provider {
	case "":
		return nil, ErrNotConfigured

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai api key missing", ErrNotConfigured)
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, s), nil

	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini api key missing", ErrNotConfigured)
		}
		return NewGeminiClient(ctx, cfg.APIKey, s)

	case "claude":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: claude api key missing", ErrNotConfigured)
		}
		return NewClaudeClient(cfg.APIKey, cfg.BaseURL, s), nil

	case "ollama":
		// Ollama speaks the OpenAI chat API under /v1
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}

		// Ollama ignores the key but the client requires one
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, baseURL, s), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
