package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/agenthands/medscan/internal/core/advisor"
	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/core/report"
	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/gin-gonic/gin"
)

type scanResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	*model.ScanResult
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) AnalyzeScan(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		failRead(c, err, "No file uploaded")
		return
	}
	scanType := c.PostForm("scan_type")
	if scanType == "" {
		fail(c, http.StatusBadRequest, "Scan type not specified")
		return
	}
	if fh.Filename == "" {
		fail(c, http.StatusBadRequest, "No file selected")
		return
	}
	if !scans.Supported(scanType) {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Unsupported scan type: %s", scanType))
		return
	}

	data, err := readUpload(fh)
	if err != nil {
		fail(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	img, err := imaging.DecodeLimit(data, s.limits.MaxImagePixels)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid image format")
		return
	}

	result, err := s.svc.Scans.Analyze(c.Request.Context(), img, scanType)
	if errors.Is(err, scans.ErrUnsupportedScanType) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("scan analysis failed", "scan_type", scanType, "error", err)
		fail(c, http.StatusInternalServerError, "Scan analysis failed")
		return
	}

	c.JSON(http.StatusOK, scanResponse{
		Success:    true,
		Filename:   fh.Filename,
		ScanResult: result,
		AnalysisID: s.save(c, archive.FromScan(c.PostForm("patient_id"), fh.Filename, result)),
	})
}

func (s *Server) Models(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Scans.Models())
}

type prescriptionResponse struct {
	Success bool `json:"success"`
	*model.PrescriptionResult
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) AnalyzePrescription(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		failRead(c, err, "No image provided")
		return
	}
	if fh.Filename == "" {
		fail(c, http.StatusBadRequest, "No image selected")
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		fail(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	err = imaging.CheckLimit(data, s.limits.MaxImagePixels)
	var result *model.PrescriptionResult
	if err == nil {
		result, err = s.svc.Prescription.Read(c.Request.Context(), data)
	}
	if errors.Is(err, imaging.ErrInvalidImage) {
		fail(c, http.StatusBadRequest, "Invalid image format")
		return
	}
	if err != nil {
		s.logger.Error("prescription analysis failed", "error", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, prescriptionResponse{
		Success:            true,
		PrescriptionResult: result,
		AnalysisID:         s.save(c, archive.FromPrescription(c.PostForm("patient_id"), fh.Filename, result)),
	})
}

type riskRequest struct {
	Text      *string `json:"text"`
	PatientID string  `json:"patient_id"`
}

type riskResponse struct {
	Success bool `json:"success"`
	model.RiskResult
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) AnalyzeRisk(c *gin.Context) {
	var req riskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failRead(c, err, "Invalid request")
		return
	}
	if req.Text == nil {
		fail(c, http.StatusBadRequest, "Missing 'text' field")
		return
	}

	result := s.svc.Risk.Classify(c.Request.Context(), *req.Text)
	c.JSON(http.StatusOK, riskResponse{
		Success:    true,
		RiskResult: result,
		AnalysisID: s.save(c, archive.FromRisk(req.PatientID, result)),
	})
}

type reportResponse struct {
	Success bool `json:"success"`
	*model.ReportResult
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) AnalyzeReport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		failRead(c, err, "No file provided")
		return
	}
	if fh.Filename == "" {
		fail(c, http.StatusBadRequest, "No file selected")
		return
	}
	data, err := readUpload(fh)
	if err != nil {
		fail(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	result, err := s.svc.Report.Report(c.Request.Context(), fh.Filename, data)
	if errors.Is(err, report.ErrNoText) {
		fail(c, http.StatusBadRequest, "Could not extract text from file")
		return
	}
	if err != nil {
		s.logger.Error("report analysis failed", "filename", fh.Filename, "error", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, reportResponse{
		Success:      true,
		ReportResult: result,
		AnalysisID:   s.save(c, archive.FromReport(c.PostForm("patient_id"), result)),
	})
}

// advisorRequest accepts reportText as an alias of text.
type advisorRequest struct {
	Text       string `json:"text"`
	ReportText string `json:"reportText"`
	PatientID  string `json:"patient_id"`
}

type advisorResponse struct {
	Success bool `json:"success"`
	*model.Advice
	AnalysisID string `json:"analysis_id,omitempty"`
}

func (s *Server) HealthAdvisor(c *gin.Context) {
	var req advisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failRead(c, err, "Invalid request")
		return
	}
	text := req.Text
	if text == "" {
		text = req.ReportText
	}
	if text == "" {
		fail(c, http.StatusBadRequest, "Report text is required")
		return
	}

	advice, err := s.svc.Advisor.Advise(c.Request.Context(), text)
	if errors.Is(err, advisor.ErrTextTooShort) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("health advisor failed", "error", err)
		fail(c, http.StatusInternalServerError, "Failed to process health report")
		return
	}

	c.JSON(http.StatusOK, advisorResponse{
		Success:    true,
		Advice:     advice,
		AnalysisID: s.save(c, archive.FromAdvice(req.PatientID, advice)),
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
