// Package prescription reads medicines out of prescription photos.
package prescription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/ocr"
)

type Reader struct {
	ocr        ocr.Engine
	classifier ZeroShotClassifier
	languages  []string
	maxPixels  int
	logger     *slog.Logger
}

type ReaderOption func(*Reader)

// WithMaxPixels bounds the size of images Read will decode.
func WithMaxPixels(n int) ReaderOption {
	return func(r *Reader) { r.maxPixels = n }
}

func NewReader(engine ocr.Engine, classifier ZeroShotClassifier, languages []string, logger *slog.Logger, opts ...ReaderOption) *Reader {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Reader{ocr: engine, classifier: classifier, languages: languages, maxPixels: imaging.DefaultMaxPixels, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasOCR reports whether any text recognition engine is configured.
func (r *Reader) HasOCR() bool { return r.ocr != nil }

// HasClassifier reports whether the zero-shot model is configured.
func (r *Reader) HasClassifier() bool { return r.classifier != nil }

// Read OCRs the image, extracts medicines and classifies the text. Only an
// undecodable image is an error; OCR and model failures degrade.
func (r *Reader) Read(ctx context.Context, data []byte) (*model.PrescriptionResult, error) {
	img, err := imaging.DecodeLimit(data, r.maxPixels)
	if err != nil {
		return nil, err
	}

	text := r.recognize(ctx, img, data)
	return r.Analyze(ctx, text), nil
}

// Analyze runs extraction and classification on already recognized text.
func (r *Reader) Analyze(ctx context.Context, text string) *model.PrescriptionResult {
	medicines := ExtractMedicines(text)

	cls, err := Classify(ctx, r.classifier, text)
	if err != nil {
		r.logger.Warn("prescription classification failed", "error", err)
	}

	return &model.PrescriptionResult{
		Medicines:      medicines,
		Classification: cls.Label,
		Confidence:     cls.Confidence,
		IsPrescription: cls.Label == LabelPrescription,
		ExtractedText:  text,
	}
}

func (r *Reader) recognize(ctx context.Context, img *imaging.Decoded, data []byte) string {
	if r.ocr == nil {
		return ""
	}

	// engines get the upright image when EXIF asked for a rotation
	payload := data
	if img.Orientation > 1 {
		if png, err := img.PNG(); err == nil {
			payload = png
		}
	}

	res, err := r.ocr.Recognize(ctx, ocr.Input{Image: payload, Languages: r.languages})
	if err != nil {
		if !errors.Is(err, ocr.ErrNoText) {
			r.logger.Warn("prescription ocr failed", "error", err)
		}
		return ""
	}
	r.logger.Debug("prescription ocr", "engine", res.Engine, "chars", len(res.PlainText))
	return res.PlainText
}
