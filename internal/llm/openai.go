package llm

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient also serves Ollama through its OpenAI compatible endpoint.
type OpenAIClient struct {
	client   *openai.Client
	settings Settings
}

func NewOpenAIClient(apiKey, baseURL string, s Settings) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if s.Model == "" {
		s.Model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		settings: s,
	}
}

func (c *OpenAIClient) request(prompt string) openai.ChatCompletionRequest {
	var msgs []openai.ChatCompletionMessage
	if c.settings.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.settings.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	// the request omits a zero temperature, which the API reads as 1
	temp := c.settings.Temperature
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}
	return openai.ChatCompletionRequest{
		Model:       c.settings.Model,
		Messages:    msgs,
		Temperature: temp,
		MaxTokens:   c.settings.MaxTokens,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt))
	if err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", errors.New("openai returned no content")
}
