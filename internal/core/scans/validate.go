package scans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/medscan/internal/imaging"
	"github.com/agenthands/medscan/internal/ocr"
)

const (
	minChestAspect = 0.8
	maxChestAspect = 1.5
)

// validate checks that the image plausibly is the declared scan type.
// Only the chest aspect ratio rejects; OCR problems produce a warning.
func (a *Analyzer) validate(ctx context.Context, img *imaging.Decoded, k *kind) (bool, string) {
	if k.id == "chest" {
		aspect := float64(img.Width()) / float64(img.Height())
		if aspect < minChestAspect || aspect > maxChestAspect {
			return false, "Image dimensions don't match typical chest X-ray format"
		}
	}

	text, err := a.recognize(ctx, img)
	if err != nil {
		return true, fmt.Sprintf("Validation warning: %v", err)
	}

	var found []string
	for _, kw := range k.keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	if len(found) > 0 {
		return true, fmt.Sprintf("Validated: Found relevant keywords %s", strings.Join(found, ", "))
	}
	return true, "No specific keywords found, proceeding with analysis"
}

func (a *Analyzer) recognize(ctx context.Context, img *imaging.Decoded) (string, error) {
	if a.ocr == nil {
		return "", nil
	}
	payload, err := imaging.EncodePNG(img.Gray().Image())
	if err != nil {
		return "", err
	}
	res, err := a.ocr.Recognize(ctx, ocr.Input{Image: payload, Languages: a.languages})
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			return "", nil
		}
		a.logger.Warn("scan validation ocr failed", "error", err)
		return "", err
	}
	return strings.ToLower(res.PlainText), nil
}
