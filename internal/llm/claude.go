package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	client   *anthropic.Client
	settings Settings
}

func NewClaudeClient(apiKey, baseURL string, s Settings) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if s.Model == "" {
		s.Model = "claude-3-5-haiku-latest"
	}
	return &ClaudeClient{
		client:   anthropic.NewClient(apiKey, opts...),
		settings: s,
	}
}

func (c *ClaudeClient) request(prompt string) anthropic.MessagesRequest {
	temp := c.settings.Temperature
	return anthropic.MessagesRequest{
		Model:  anthropic.Model(c.settings.Model),
		System: c.settings.System,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
		MaxTokens:   c.settings.MaxTokens,
		Temperature: &temp,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, c.request(prompt))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if content.Text != nil {
			sb.WriteString(*content.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("claude returned no content")
	}
	return text, nil
}
