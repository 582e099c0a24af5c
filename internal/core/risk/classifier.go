// Package risk classifies free text into mental health risk levels.
package risk

import (
	"context"
	"log/slog"
	"strings"

	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/logging"
)

const (
	LevelNormal    = "Normal"
	LevelAnxious   = "Anxious"
	LevelDepressed = "Depressed"
	LevelSuicidal  = "Suicidal"

	MethodEmpty    = "empty_text"
	MethodModel    = "model"
	MethodKeyword  = "keyword"
	MethodOverride = "keyword_override"
)

// TextClassifier is a text-classification model returning label scores.
type TextClassifier interface {
	Classify(ctx context.Context, text string) ([]model.Prediction, error)
}

type tier struct {
	level      string
	confidence float64
	keywords   []string
}

// tiers are checked most severe first.
var tiers = []tier{
	{LevelSuicidal, 0.9, []string{
		"suicide", "kill myself", "end my life", "want to die", "better off dead",
		"end it all", "take my own life", "not worth living", "wish i was dead",
	}},
	{LevelDepressed, 0.8, []string{
		"hopeless", "worthless", "useless", "burden", "hate myself",
		"severely depressed", "can't go on", "no point", "empty inside",
	}},
	{LevelAnxious, 0.7, []string{
		"panic", "anxious", "overwhelmed", "scared", "terrified", "nervous",
	}},
}

const normalKeywordConfidence = 0.7

var DefaultLabels = map[string]string{
	"LABEL_0": LevelNormal,
	"LABEL_1": LevelDepressed,
	"LABEL_2": LevelSuicidal,
}

type Classifier struct {
	model  TextClassifier
	labels map[string]string
	logger *slog.Logger
}

// NewClassifier wraps an optional model. A nil model means keyword
// classification only.
func NewClassifier(m TextClassifier, labels map[string]string, logger *slog.Logger) *Classifier {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Classifier{model: m, labels: labels, logger: logger}
}

func (c *Classifier) ModelLoaded() bool { return c.model != nil }

func (c *Classifier) Classify(ctx context.Context, text string) model.RiskResult {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return model.RiskResult{RiskLevel: LevelNormal, Confidence: 0, Method: MethodEmpty}
	}

	kw, hit := Keywords(text)
	if c.model == nil {
		return kw
	}

	preds, err := c.model.Classify(ctx, text)
	if err != nil || len(preds) == 0 {
		c.logger.Warn("risk model failed, using keywords", "error", err)
		return kw
	}

	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	level, ok := c.labels[best.Label]
	if !ok {
		level = LevelNormal
	}

	// a specific keyword hit beats a model that sees nothing wrong
	if level == LevelNormal && hit {
		kw.Method = MethodOverride
		return kw
	}

	return model.RiskResult{RiskLevel: level, Confidence: common.Clamp01(best.Score), Method: MethodModel}
}

// Keywords classifies lower-cased text by keyword tiers. hit reports
// whether a non-normal tier matched.
func Keywords(text string) (result model.RiskResult, hit bool) {
	for _, t := range tiers {
		if common.ContainsAny(text, t.keywords) {
			return model.RiskResult{RiskLevel: t.level, Confidence: t.confidence, Method: MethodKeyword}, true
		}
	}
	return model.RiskResult{RiskLevel: LevelNormal, Confidence: normalKeywordConfidence, Method: MethodKeyword}, false
}
