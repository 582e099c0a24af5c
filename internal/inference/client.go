// Package inference talks to a Hugging Face compatible inference API.
//
// Every pipeline is a POST to {base}/models/{model}: raw bytes for image
// tasks, JSON for text tasks. The response shapes differ per task and are
// decoded into model.Prediction values.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/logging"
)

var (
	ErrModelNotConfigured = errors.New("inference model not configured")
	ErrEmptyResponse      = errors.New("inference returned no predictions")
)

const maxErrorBody = 512

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(cfg config.InferenceConfig, opts ...Option) *Client {
	timeout := cfg.Timeout.Duration
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassifyImage runs an image-classification model, highest score first.
func (c *Client) ClassifyImage(ctx context.Context, modelID string, image []byte) ([]model.Prediction, error) {
	var out []model.Prediction
	if err := c.post(ctx, modelID, "application/octet-stream", image, &out); err != nil {
		return nil, err
	}
	return sortPredictions(out)
}

// ClassifyText runs a text-classification model. The API nests results one
// level deep for single inputs; both shapes are accepted.
func (c *Client) ClassifyText(ctx context.Context, modelID, text string) ([]model.Prediction, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.post(ctx, modelID, "application/json", body, &raw); err != nil {
		return nil, err
	}

	var nested [][]model.Prediction
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, ErrEmptyResponse
		}
		return sortPredictions(nested[0])
	}

	var flat []model.Prediction
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode text classification: %w", err)
	}
	return sortPredictions(flat)
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// ZeroShot scores text against candidate labels, highest score first.
func (c *Client) ZeroShot(ctx context.Context, modelID, text string, labels []string) ([]model.Prediction, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels},
	})
	if err != nil {
		return nil, err
	}

	var resp zeroShotResponse
	if err := c.post(ctx, modelID, "application/json", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels and %d scores", len(resp.Labels), len(resp.Scores))
	}

	out := make([]model.Prediction, len(resp.Labels))
	for i := range resp.Labels {
		out[i] = model.Prediction{Label: resp.Labels[i], Score: resp.Scores[i]}
	}
	return sortPredictions(out)
}

// ImageToText runs an image-to-text model (Donut, TrOCR) and returns the
// first generated text.
func (c *Client) ImageToText(ctx context.Context, modelID string, image []byte) (string, error) {
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := c.post(ctx, modelID, "application/octet-stream", image, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrEmptyResponse
	}
	return out[0].GeneratedText, nil
}

func (c *Client) post(ctx context.Context, modelID, contentType string, body []byte, out any) error {
	if modelID == "" {
		return ErrModelNotConfigured
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("inference call", "model", modelID, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Health checks that the inference host answers at all.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

func sortPredictions(p []model.Prediction) ([]model.Prediction, error) {
	if len(p) == 0 {
		return nil, ErrEmptyResponse
	}
	sort.SliceStable(p, func(i, j int) bool { return p[i].Score > p[j].Score })
	return p, nil
}
