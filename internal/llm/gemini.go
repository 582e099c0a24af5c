package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrBlocked is returned when Gemini withholds a response on safety
// grounds. Report and advisor callers fall back to their regex paths.
var ErrBlocked = errors.New("gemini blocked the response")

// clinicalSafety relaxes the harm filters that otherwise trip on ordinary
// report wording (overdose ranges, self-harm screening questions).
var clinicalSafety = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
}

type GeminiClient struct {
	client   *genai.Client
	settings Settings
}

func NewGeminiClient(ctx context.Context, apiKey string, s Settings) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if s.Model == "" {
		s.Model = "gemini-1.5-flash"
	}
	return &GeminiClient{client: client, settings: s}, nil
}

func (c *GeminiClient) model() *genai.GenerativeModel {
	m := c.client.GenerativeModel(c.settings.Model)
	m.SetTemperature(c.settings.Temperature)
	m.SetMaxOutputTokens(int32(c.settings.MaxTokens))
	m.SafetySettings = clinicalSafety
	if c.settings.System != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(c.settings.System))
	}
	return m
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}
