package ocr

import (
	"context"
	"regexp"
	"strings"
)

// Captioner is an image-to-text model such as Donut.
type Captioner interface {
	Name() string
	Generate(ctx context.Context, image []byte) (string, error)
}

// Donut emits task tokens like <s_ocr> that the tokenizer would normally skip.
var specialToken = regexp.MustCompile(`</?s(?:_[a-z_]+)?>`)

// CaptionEngine adapts an image-to-text model to the Engine contract.
type CaptionEngine struct {
	model Captioner
}

func NewCaptionEngine(m Captioner) *CaptionEngine {
	return &CaptionEngine{model: m}
}

func (e *CaptionEngine) Name() string { return e.model.Name() }

func (e *CaptionEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	text, err := e.model.Generate(ctx, in.Image)
	if err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(specialToken.ReplaceAllString(text, " "))
	return Result{PlainText: text, Engine: e.Name()}, nil
}
