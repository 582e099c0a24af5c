// Package advisor turns a medical report into a plain-language summary,
// related articles and follow-up recommendations.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/llm"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/search"
	"golang.org/x/sync/errgroup"
)

var ErrTextTooShort = errors.New("report text is too short or empty")

const (
	minTextLength = 10
	summaryChars  = 2000
	searchChars   = 200
)

// DefaultSummaryPrompt has a {text} placeholder for the report.
const DefaultSummaryPrompt = `Analyze this medical report and provide a clear summary:

SUMMARY:
Key findings and health status

VITAL PARAMETERS:
Hemoglobin: [value] g/dL
WBC: [value] cells/uL
Platelets: [value] /uL
Glucose: [value] mg/dL
Cholesterol: [value] mg/dL

ABNORMAL VALUES:
List any concerning values

CLINICAL SIGNIFICANCE:
What these results mean

RECOMMENDATIONS:
Next steps and advice

Report text: {text}

Use plain text only, no special formatting.`

// DefaultRecommendationsPrompt has {summary} and {articles} placeholders.
const DefaultRecommendationsPrompt = `You are a medical doctor. Based on this health report summary and relevant articles, provide:
1. Specific health recommendations
2. Lifestyle changes
3. Follow-up suggestions
4. Preventive measures

Report Summary: {summary}

Relevant Articles: {articles}`

const (
	emptySummary           = "Analysis completed successfully"
	emptyRecommendations   = "Follow up with your healthcare provider"
	failedRecommendations  = "Please share this report with your healthcare provider for professional medical advice."
	fallbackSummaryPattern = `Medical report analysis:

SUMMARY:
Report contains %d characters of medical data.

VITAL PARAMETERS:
Please consult healthcare provider for parameter interpretation.

RECOMMENDATIONS:
Share this report with your doctor for professional analysis.`
)

type Prompts struct {
	Summary         string
	Recommendations string
}

type Advisor struct {
	llm      llm.LLMClient
	search   search.Searcher
	reranker llm.RerankerClient
	prompts  Prompts
	logger   *slog.Logger
}

// New wires the advisor. Any dependency may be nil; the matching step then
// uses its fallback.
func New(client llm.LLMClient, searcher search.Searcher, reranker llm.RerankerClient, prompts Prompts, logger *slog.Logger) *Advisor {
	if prompts.Summary == "" {
		prompts.Summary = DefaultSummaryPrompt
	}
	if prompts.Recommendations == "" {
		prompts.Recommendations = DefaultRecommendationsPrompt
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Advisor{llm: client, search: searcher, reranker: reranker, prompts: prompts, logger: logger}
}

func (a *Advisor) HasLLM() bool    { return a.llm != nil }
func (a *Advisor) HasSearch() bool { return a.search != nil }

// Advise summarizes the report, finds articles for the summary and
// produces recommendations. Only too short input is an error.
func (a *Advisor) Advise(ctx context.Context, text string) (*model.Advice, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength {
		return nil, ErrTextTooShort
	}

	summary := a.summarize(ctx, text)
	articles := a.articles(ctx, summary)

	// ranking and recommendations only share the article set
	var (
		ranked          = articles
		recommendations string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ranked = a.rank(gctx, summary, articles)
		return nil
	})
	g.Go(func() error {
		recommendations = a.recommend(gctx, summary, articles)
		return nil
	})
	_ = g.Wait()

	return &model.Advice{
		Summary:         summary,
		Articles:        ranked,
		Recommendations: recommendations,
	}, nil
}

func (a *Advisor) summarize(ctx context.Context, text string) string {
	fallback := fmt.Sprintf(fallbackSummaryPattern, utf8.RuneCountInString(text))
	if a.llm == nil {
		return fallback
	}

	prompt := strings.ReplaceAll(a.prompts.Summary, "{text}", common.Truncate(text, summaryChars))
	resp, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("advisor summary failed", "error", err)
		return fallback
	}
	if strings.TrimSpace(resp) == "" {
		return emptySummary
	}
	return resp
}

func (a *Advisor) articles(ctx context.Context, summary string) []model.Article {
	if a.search == nil {
		return []model.Article{}
	}
	articles, err := a.search.Search(ctx, common.Truncate(summary, searchChars))
	if err != nil {
		a.logger.Warn("article search failed, continuing without articles", "error", err)
		return []model.Article{}
	}
	a.logger.Debug("articles found", "count", len(articles))
	return articles
}

func (a *Advisor) rank(ctx context.Context, summary string, articles []model.Article) []model.Article {
	if a.reranker == nil || len(articles) < 2 {
		return articles
	}

	docs := make([]string, len(articles))
	for i, art := range articles {
		docs[i] = articleLine(art)
	}

	order, err := a.reranker.Rank(ctx, summary, docs)
	if err != nil || len(order) != len(articles) {
		a.logger.Warn("article ranking failed, keeping search order", "error", err)
		return articles
	}

	out := make([]model.Article, 0, len(articles))
	for _, i := range order {
		if i < 0 || i >= len(articles) {
			return articles
		}
		out = append(out, articles[i])
	}
	return out
}

func (a *Advisor) recommend(ctx context.Context, summary string, articles []model.Article) string {
	if a.llm == nil {
		return failedRecommendations
	}

	lines := make([]string, len(articles))
	for i, art := range articles {
		lines[i] = articleLine(art)
	}
	prompt := strings.NewReplacer(
		"{summary}", summary,
		"{articles}", strings.Join(lines, "\n"),
	).Replace(a.prompts.Recommendations)

	resp, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("advisor recommendations failed", "error", err)
		return failedRecommendations
	}
	if strings.TrimSpace(resp) == "" {
		return emptyRecommendations
	}
	return resp
}

func articleLine(a model.Article) string {
	return a.Title + ": " + a.Snippet
}
