// Package server exposes the analysis services over HTTP. Each service can
// run on its own listener or all of them can share one router.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/advisor"
	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/prescription"
	"github.com/agenthands/medscan/internal/core/report"
	"github.com/agenthands/medscan/internal/core/risk"
	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/gin-gonic/gin"
)

// Service names, also used as the `service` field of health responses.
const (
	ServiceScans        = "scans"
	ServicePrescription = "prescription"
	ServiceRisk         = "risk"
	ServiceReport       = "report"
	ServiceAdvisor      = "advisor"
)

// Names lists every service in start order.
func Names() []string {
	return []string{ServiceScans, ServicePrescription, ServiceRisk, ServiceReport, ServiceAdvisor}
}

// maxUpload bounds the multipart memory used per request.
const maxUpload = 32 << 20

// HealthChecker is a dependency whose reachability /health reports.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// healthTimeout bounds each dependency check behind /health.
const healthTimeout = 3 * time.Second

// Services holds the analyzers behind the routes. Archive and Inference
// are optional.
type Services struct {
	Scans        *scans.Analyzer
	Prescription *prescription.Reader
	Risk         *risk.Classifier
	Report       *report.Analyzer
	Advisor      *advisor.Advisor
	Archive      *archive.Store
	Inference    HealthChecker
}

type Server struct {
	svc    *Services
	limits config.LimitsConfig
	logger *slog.Logger
}

type Option func(*Server)

// WithLimits sets the request body and image size limits. Non-positive
// values keep the defaults.
func WithLimits(l config.LimitsConfig) Option {
	return func(s *Server) {
		if l.MaxUploadBytes > 0 {
			s.limits.MaxUploadBytes = l.MaxUploadBytes
		}
		if l.MaxImagePixels > 0 {
			s.limits.MaxImagePixels = l.MaxImagePixels
		}
	}
}

func New(svc *Services, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{svc: svc, limits: config.Default().Limits, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the engine for a single service. Archive routes are added
// to every service router when the archive is configured.
func (s *Server) Router(name string) (*gin.Engine, error) {
	r := s.engine()
	if err := s.mount(r, name); err != nil {
		return nil, err
	}
	r.GET("/health", s.health(name))
	s.mountArchive(r)
	return r, nil
}

// CombinedRouter serves every configured service from one engine.
func (s *Server) CombinedRouter() *gin.Engine {
	r := s.engine()
	var names []string
	for _, name := range Names() {
		if s.mount(r, name) == nil {
			names = append(names, name)
		}
	}
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":   "healthy",
			"service":  "medscan",
			"services": names,
		}
		s.archiveHealth(c, body)
		s.inferenceHealth(c, body)
		c.JSON(http.StatusOK, body)
	})
	s.mountArchive(r)
	return r
}

func (s *Server) engine() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = min(maxUpload, s.limits.MaxUploadBytes)
	r.Use(recovery(s.logger), requestLogger(s.logger), cors(), limitBody(s.limits.MaxUploadBytes))
	return r
}

func (s *Server) mount(r *gin.Engine, name string) error {
	switch name {
	case ServiceScans:
		if s.svc.Scans == nil {
			break
		}
		r.POST("/analyze", s.AnalyzeScan)
		r.GET("/models", s.Models)
		return nil
	case ServicePrescription:
		if s.svc.Prescription == nil {
			break
		}
		r.POST("/analyze-prescription", s.AnalyzePrescription)
		return nil
	case ServiceRisk:
		if s.svc.Risk == nil {
			break
		}
		r.POST("/analyze-risk", s.AnalyzeRisk)
		return nil
	case ServiceReport:
		if s.svc.Report == nil {
			break
		}
		r.POST("/analyze-report", s.AnalyzeReport)
		return nil
	case ServiceAdvisor:
		if s.svc.Advisor == nil {
			break
		}
		r.POST("/health-advisor", s.HealthAdvisor)
		return nil
	default:
		return fmt.Errorf("unknown service %q", name)
	}
	return fmt.Errorf("service %q is not configured", name)
}

func (s *Server) mountArchive(r *gin.Engine) {
	if s.svc.Archive == nil {
		return
	}
	r.GET("/analyses/:uuid", s.GetAnalysis)
	r.GET("/patients/:id/analyses", s.ListPatientAnalyses)
}

func (s *Server) health(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "healthy"}
		switch name {
		case ServiceScans:
			info := s.svc.Scans.Models()
			body["service"] = "scans-analyzer"
			body["loaded_models"] = info.LoadedModels
			body["total_models"] = info.Total
			body["supported_scans"] = scans.ScanTypes()
		case ServicePrescription:
			body["service"] = "prescription-reader"
			body["models"] = "not loaded"
			if s.svc.Prescription.HasOCR() && s.svc.Prescription.HasClassifier() {
				body["models"] = "loaded"
			}
		case ServiceRisk:
			body["service"] = "risk-analyzer"
			body["model_loaded"] = s.svc.Risk.ModelLoaded()
		case ServiceReport:
			body["service"] = "report-analyzer"
			body["llm_configured"] = s.svc.Report.HasLLM()
		case ServiceAdvisor:
			body["service"] = "health-advisor"
			body["llm_configured"] = s.svc.Advisor.HasLLM()
			body["search_configured"] = s.svc.Advisor.HasSearch()
		}
		s.archiveHealth(c, body)
		switch name {
		case ServiceScans, ServicePrescription, ServiceRisk:
			s.inferenceHealth(c, body)
		}
		c.JSON(http.StatusOK, body)
	}
}

// archiveHealth reports the archive without failing the health check; the
// services work without it.
func (s *Server) archiveHealth(c *gin.Context, body gin.H) {
	body["archive"] = s.svc.Archive != nil
	if s.svc.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := s.svc.Archive.Ping(ctx); err != nil {
		s.logger.Warn("archive health check failed", "error", err)
		body["archive_reachable"] = false
		return
	}
	body["archive_reachable"] = true
}

// inferenceHealth reports whether the hosted model API answers. The
// services degrade to their heuristics without it.
func (s *Server) inferenceHealth(c *gin.Context, body gin.H) {
	if s.svc.Inference == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := s.svc.Inference.Health(ctx); err != nil {
		s.logger.Warn("inference health check failed", "error", err)
		body["inference_reachable"] = false
		return
	}
	body["inference_reachable"] = true
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// failRead answers a body that could not be read, 413 when the upload
// limit was hit and 400 with msg otherwise.
func failRead(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	fail(c, http.StatusBadRequest, msg)
}
