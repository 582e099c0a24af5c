// Package tesseract implements ocr.Engine with the gosseract bindings.
// It needs libtesseract at build time, so only the binaries import it.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/medscan/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(languages []string) *Engine {
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs a fresh client per call; gosseract clients are not safe
// for concurrent use.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	langs := in.Languages
	if len(langs) == 0 {
		langs = e.languages
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Result{PlainText: strings.TrimSpace(text), Engine: e.Name()}, nil
}
