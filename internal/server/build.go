package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/advisor"
	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/prescription"
	"github.com/agenthands/medscan/internal/core/report"
	"github.com/agenthands/medscan/internal/core/risk"
	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/agenthands/medscan/internal/driver"
	"github.com/agenthands/medscan/internal/inference"
	"github.com/agenthands/medscan/internal/llm"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/ocr"
	"github.com/agenthands/medscan/internal/search"
)

// BuildOptions carries what Build cannot derive from the config. The
// tesseract engine is injected so only the binaries link libtesseract.
type BuildOptions struct {
	Tesseract  ocr.Engine
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Build wires every service from the configuration. Missing models, LLM
// credentials or search keys leave the matching fallback paths active.
// The returned close function releases the LLM client and the archive
// connection.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Services, func(context.Context) error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Inference.Timeout.Duration}
	}

	inf := inference.NewClient(cfg.Inference, inference.WithHTTPClient(hc), inference.WithLogger(logger))
	engine := buildOCR(cfg, inf, opts.Tesseract, logger)
	client := buildLLM(ctx, cfg.LLM, logger)

	svc := &Services{
		Scans:        buildScans(cfg, inf, engine, logger),
		Prescription: buildPrescription(cfg, inf, engine, logger),
		Risk:         buildRisk(cfg, inf, logger),
		Report:       report.NewAnalyzer(client, cfg.Prompts.Report.Extract, logger),
		Advisor:      buildAdvisor(cfg, client, hc, logger),
	}
	if usesInference(cfg.Inference) {
		svc.Inference = inf
	}

	var closers []func(context.Context) error
	if c, ok := client.(io.Closer); ok {
		closers = append(closers, func(context.Context) error { return c.Close() })
	}
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph, logger)
		if err != nil {
			logger.Warn("analysis archive disabled", "error", err)
		} else {
			if err := d.BuildIndices(ctx); err != nil {
				logger.Warn("failed to build archive indices", "error", err)
			}
			svc.Archive = archive.NewStore(d, logger)
			closers = append(closers, d.Close)
		}
	}

	closeAll := func(ctx context.Context) error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c(ctx))
		}
		return errors.Join(errs...)
	}
	return svc, closeAll
}

// usesInference reports whether any role is served by a hosted model.
func usesInference(cfg config.InferenceConfig) bool {
	for _, id := range []string{cfg.ChestModel, cfg.SkinModel, cfg.MRIModel, cfg.PrescriptionOCR, cfg.ZeroShotModel, cfg.RiskModel} {
		if id != "" {
			return true
		}
	}
	return false
}

// buildOCR chains the image-to-text model before tesseract. Nil means no
// engine is available.
func buildOCR(cfg *config.Config, inf *inference.Client, tess ocr.Engine, logger *slog.Logger) ocr.Engine {
	var engines []ocr.Engine
	if id := cfg.Inference.PrescriptionOCR; id != "" {
		engines = append(engines, ocr.NewCaptionEngine(inf.CaptionModel(id)))
	}
	if cfg.OCR.Tesseract && tess != nil {
		engines = append(engines, tess)
	}
	if len(engines) == 0 {
		logger.Warn("no ocr engine configured")
		return nil
	}
	chain := ocr.NewChain(logger, engines...)
	logger.Info("ocr configured", "engines", chain.Name())
	return chain
}

func buildLLM(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) llm.LLMClient {
	client, err := llm.NewClient(ctx, cfg)
	if errors.Is(err, llm.ErrNotConfigured) {
		logger.Info("llm not configured, using pattern fallbacks", "reason", err)
		return nil
	}
	if err != nil {
		logger.Warn("failed to initialize llm client", "provider", cfg.Provider, "error", err)
		return nil
	}
	logger.Info("llm configured", "provider", cfg.Provider, "model", cfg.Model)
	return client
}

func buildScans(cfg *config.Config, inf *inference.Client, engine ocr.Engine, logger *slog.Logger) *scans.Analyzer {
	opts := []scans.Option{scans.WithLogger(logger)}
	models := map[string]string{
		"chest": cfg.Inference.ChestModel,
		"skin":  cfg.Inference.SkinModel,
		"mri":   cfg.Inference.MRIModel,
	}
	for scanType, id := range models {
		if id != "" {
			opts = append(opts, scans.WithClassifier(scanType, inf.ImageModel(id)))
		}
	}
	if engine != nil {
		opts = append(opts, scans.WithOCR(engine, cfg.OCR.Languages))
	}
	return scans.NewAnalyzer(cfg.Scans, opts...)
}

func buildPrescription(cfg *config.Config, inf *inference.Client, engine ocr.Engine, logger *slog.Logger) *prescription.Reader {
	var zs prescription.ZeroShotClassifier
	if id := cfg.Inference.ZeroShotModel; id != "" {
		zs = inf.ZeroShotModel(id)
	}
	return prescription.NewReader(engine, zs, cfg.OCR.Languages, logger, prescription.WithMaxPixels(cfg.Limits.MaxImagePixels))
}

func buildRisk(cfg *config.Config, inf *inference.Client, logger *slog.Logger) *risk.Classifier {
	var m risk.TextClassifier
	if id := cfg.Inference.RiskModel; id != "" {
		m = inf.TextModel(id)
	}
	return risk.NewClassifier(m, cfg.Inference.RiskLabels, logger)
}

func buildAdvisor(cfg *config.Config, client llm.LLMClient, hc *http.Client, logger *slog.Logger) *advisor.Advisor {
	var searcher search.Searcher
	sc, err := search.NewSerperClient(cfg.Search, hc)
	if err != nil {
		logger.Info("article search disabled", "reason", err)
	} else {
		searcher = sc
	}

	var reranker llm.RerankerClient
	if client != nil {
		reranker = llm.NewSimpleLLMReranker(client)
	}

	return advisor.New(client, searcher, reranker, advisor.Prompts{
		Summary:         cfg.Prompts.Advisor.Summary,
		Recommendations: cfg.Prompts.Advisor.Recommendations,
	}, logger)
}
