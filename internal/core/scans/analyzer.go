// Package scans analyzes medical scan images with hand-tuned computer
// vision rules, optionally blended with pretrained image classifiers.
package scans

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/ocr"
)

// ImageClassifier is a pretrained image-classification model.
type ImageClassifier interface {
	Name() string
	Classify(ctx context.Context, image []byte) ([]model.Prediction, error)
}

type Analyzer struct {
	models     map[string]ImageClassifier
	thresholds map[string]float64
	ocr        ocr.Engine
	languages  []string
	logger     *slog.Logger
}

type Option func(*Analyzer)

// WithClassifier attaches a model to a scan type that supports blending.
// Nil models are ignored.
func WithClassifier(scanType string, m ImageClassifier) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.models[scanType] = m
		}
	}
}

// WithOCR sets the engine used for scan type validation.
func WithOCR(e ocr.Engine, languages []string) Option {
	return func(a *Analyzer) {
		a.ocr = e
		a.languages = languages
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

func NewAnalyzer(cfg config.ScansConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		models: make(map[string]ImageClassifier),
		thresholds: map[string]float64{
			"mri":   cfg.MRIThreshold,
			"chest": cfg.ChestThreshold,
			"skin":  cfg.SkinThreshold,
		},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	for id := range a.models {
		if k, ok := lookup(id); !ok || k.blend == nil {
			a.logger.Warn("scan type does not use a classifier, ignoring", "scan_type", id)
			delete(a.models, id)
		}
	}
	return a
}

// Analyze validates and analyzes a decoded image as the given scan type.
func (a *Analyzer) Analyze(ctx context.Context, img *imaging.Decoded, scanType string) (*model.ScanResult, error) {
	k, ok := lookup(scanType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScanType, scanType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validated, message := a.validate(ctx, img, k)

	s := preprocess(img, k)
	aiUsed := a.blend(ctx, s, k)
	k.rules(s)

	res := &model.ScanResult{
		ScanType:          k.title,
		ConfidenceScores:  s.findings.Scores(),
		Recommendations:   k.recommend(s.findings),
		AIModelUsed:       aiUsed,
		ValidationMessage: message,
		ImageValidated:    validated,
	}
	if len(s.findings) > 0 {
		res.Status = model.StatusAbnormal
		res.Conditions = s.findings.Conditions()
	} else {
		res.Status = model.StatusNormal
		res.Conditions = []string{k.normal}
	}
	res.Findings = strings.Join(res.Conditions, "; ")

	a.logger.Debug("scan analyzed",
		"scan_type", k.id,
		"status", res.Status,
		"findings", len(s.findings),
		"ai_model_used", aiUsed,
	)
	return res, nil
}

// blend runs the pretrained model for the scan type. Model failures only
// drop the model findings.
func (a *Analyzer) blend(ctx context.Context, s *scan, k *kind) bool {
	m, ok := a.models[k.id]
	if !ok {
		return false
	}

	payload, err := a.modelInput(s, k)
	if err != nil {
		a.logger.Warn("failed to encode classifier input", "scan_type", k.id, "error", err)
		return false
	}

	preds, err := m.Classify(ctx, payload)
	if err != nil {
		a.logger.Warn("scan classifier failed, using rules only", "scan_type", k.id, "model", m.Name(), "error", err)
		return false
	}
	k.blend(s, preds, a.thresholds[k.id])
	return true
}

// modelInput is the enhanced gray image for chest models and the upright
// color image for everything else.
func (a *Analyzer) modelInput(s *scan, k *kind) ([]byte, error) {
	if k.id == "chest" {
		return imaging.EncodePNG(imaging.GrayRGB(s.p8))
	}
	return s.img.PNG()
}

// ModelsInfo describes which scan types run a pretrained model.
type ModelsInfo struct {
	LoadedModels []string          `json:"loaded_ai_models"`
	Total        int               `json:"total_ai_models"`
	ScanTypes    map[string]string `json:"scan_types"`
	ModelDetails map[string]string `json:"model_details"`
}

func (a *Analyzer) Models() ModelsInfo {
	info := ModelsInfo{
		LoadedModels: []string{},
		ScanTypes:    make(map[string]string, len(kinds)),
		ModelDetails: make(map[string]string, len(kinds)),
	}
	for _, k := range kinds {
		info.ScanTypes[k.id] = k.display
		if m, ok := a.models[k.id]; ok {
			info.LoadedModels = append(info.LoadedModels, k.id)
			info.ModelDetails[k.id] = fmt.Sprintf("%s (%s)", m.Name(), k.modelDetail)
			continue
		}
		info.ModelDetails[k.id] = k.cvDetail
	}
	info.Total = len(info.LoadedModels)
	return info
}

// LoadedModels lists the scan types with a classifier attached.
func (a *Analyzer) LoadedModels() []string {
	return a.Models().LoadedModels
}
