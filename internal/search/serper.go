// Package search finds medical articles on the web through the Serper API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
)

var ErrNotConfigured = errors.New("search api key not configured")

const (
	defaultTitle   = "Medical Article"
	defaultURL     = "#"
	defaultSnippet = "Health information"
	queryPrefix    = "medical health "
	queryChars     = 100
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

type Searcher interface {
	Search(ctx context.Context, text string) ([]model.Article, error)
}

type SerperClient struct {
	baseURL string
	apiKey  string
	results int
	http    *http.Client
}

func NewSerperClient(cfg config.SearchConfig, hc *http.Client) (*SerperClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://google.serper.dev"
	}
	results := cfg.Results
	if results <= 0 {
		results = 5
	}
	return &SerperClient{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		results: results,
		http:    hc,
	}, nil
}

// Query builds the search phrase from the first characters of text.
func Query(text string) string {
	q := nonAlnum.ReplaceAllString(common.Truncate(text, queryChars), " ")
	return strings.TrimSpace(queryPrefix + q)
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, text string) ([]model.Article, error) {
	body, err := json.Marshal(serperRequest{Q: Query(text), Num: c.results})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	articles := make([]model.Article, 0, len(out.Organic))
	for _, o := range out.Organic {
		a := model.Article{Title: o.Title, URL: o.Link, Snippet: o.Snippet}
		if a.Title == "" {
			a.Title = defaultTitle
		}
		if a.URL == "" {
			a.URL = defaultURL
		}
		if a.Snippet == "" {
			a.Snippet = defaultSnippet
		}
		articles = append(articles, a)
		if len(articles) == c.results {
			break
		}
	}
	return articles, nil
}
