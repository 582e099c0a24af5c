package llm

import (
	"context"

	"github.com/agenthands/medscan/internal/config"
)

// LLMClient turns a prompt into generated text. Callers treat any error as
// a cue to use their pattern based fallback.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RerankerClient orders documents by relevance to query, most relevant
// first.
type RerankerClient interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}

// DefaultSystem frames every request. Report text is never a diagnosis and
// the models are told so.
const DefaultSystem = "You are a careful medical report assistant. Explain findings in plain " +
	"language, never give a diagnosis, and advise consulting a doctor for decisions."

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 2048
)

// Settings are shared by every provider.
type Settings struct {
	Model       string
	System      string
	Temperature float32
	MaxTokens   int
}

func settingsFrom(cfg config.LLMConfig) Settings {
	s := Settings{
		Model:       cfg.Model,
		System:      cfg.System,
		Temperature: defaultTemperature,
		MaxTokens:   cfg.MaxTokens,
	}
	if cfg.Temperature != nil {
		s.Temperature = *cfg.Temperature
	}
	if s.System == "" {
		s.System = DefaultSystem
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	return s
}
