package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/advisor"
	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/prescription"
	"github.com/agenthands/medscan/internal/core/report"
	"github.com/agenthands/medscan/internal/core/risk"
	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/agenthands/medscan/internal/driver"
	"github.com/agenthands/medscan/internal/llm"
	"github.com/agenthands/medscan/internal/ocr"
	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubOCR struct{ text string }

func (s stubOCR) Name() string { return "stub" }

func (s stubOCR) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{PlainText: s.text, Engine: "stub"}, nil
}

type fixture struct {
	server *Server
	graph  *driver.MockDriver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	graph := &driver.MockDriver{}
	client := &llm.MockLLMClient{Response: "ok"}
	svc := &Services{
		Scans:        scans.NewAnalyzer(config.Default().Scans),
		Prescription: prescription.NewReader(stubOCR{text: "Rx\nParacetamol 500mg twice daily"}, nil, nil, nil),
		Risk:         risk.NewClassifier(nil, nil, nil),
		Report:       report.NewAnalyzer(nil, "", nil),
		Advisor:      advisor.New(client, nil, nil, advisor.Prompts{}, nil),
		Archive:      archive.NewStore(graph, nil),
	}
	return &fixture{server: New(svc, nil), graph: graph}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.server.CombinedRouter().ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func grayPNG(t *testing.T, w, h int, v uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST with one file part and plain fields.
func multipartRequest(t *testing.T, path, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRouter_Health(t *testing.T) {
	f := newFixture(t)
	services := map[string]string{
		ServiceScans:        "scans-analyzer",
		ServicePrescription: "prescription-reader",
		ServiceRisk:         "risk-analyzer",
		ServiceReport:       "report-analyzer",
		ServiceAdvisor:      "health-advisor",
	}
	for name, service := range services {
		t.Run(name, func(t *testing.T) {
			r, err := f.server.Router(name)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "healthy", body["status"])
			assert.Equal(t, service, body["service"])
		})
	}
}

func TestRouter_UnknownService(t *testing.T) {
	_, err := newFixture(t).server.Router("billing")
	assert.Error(t, err)
}

func TestRouter_ServiceNotConfigured(t *testing.T) {
	_, err := New(&Services{}, nil).Router(ServiceRisk)
	assert.Error(t, err)
}

func TestRouter_OnlyMountsOwnRoutes(t *testing.T) {
	r, err := newFixture(t).server.Router(ServiceRisk)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest("/health-advisor", `{"text":"long enough report text"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCombinedRouter_Health(t *testing.T) {
	w, body := newFixture(t).do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "medscan", body["service"])
	assert.Len(t, body["services"], 5)
	assert.Equal(t, true, body["archive"])
	assert.Equal(t, true, body["archive_reachable"])
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) error { return s.err }

func TestHealth_Inference(t *testing.T) {
	f := newFixture(t)

	get := func(t *testing.T, name string) map[string]any {
		t.Helper()
		r, err := f.server.Router(name)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	assert.NotContains(t, get(t, ServiceScans), "inference_reachable")

	f.server.svc.Inference = stubHealth{}
	assert.Equal(t, true, get(t, ServiceScans)["inference_reachable"])
	assert.NotContains(t, get(t, ServiceReport), "inference_reachable")

	f.server.svc.Inference = stubHealth{err: errors.New("dial tcp: refused")}
	body := get(t, ServiceRisk)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["inference_reachable"])

	_, combined := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, false, combined["inference_reachable"])
}

func TestHealth_ArchiveUnreachable(t *testing.T) {
	f := newFixture(t)
	f.graph.PingErr = errors.New("connection refused")

	r, err := f.server.Router(ServiceRisk)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "risk-analyzer", body["service"])
	assert.Equal(t, true, body["archive"])
	assert.Equal(t, false, body["archive_reachable"])
}

func TestAnalyzeScan(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/analyze", "file", "liver.png", grayPNG(t, 64, 64, 128), map[string]string{"scan_type": "liver"})

	w, body := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "liver.png", body["filename"])
	assert.Equal(t, "Liver Scan", body["scan_type"])
	assert.Equal(t, "Normal", body["status"])
	assert.Equal(t, []any{"Normal liver structure"}, body["detected_conditions"])
	assert.Equal(t, false, body["ai_model_used"])
	assert.NotContains(t, body, "analysis_id")
	assert.Empty(t, f.graph.Queries)
}

func TestAnalyzeScan_ArchivesWithPatient(t *testing.T) {
	f := newFixture(t)
	req := multipartRequest(t, "/analyze", "file", "liver.png", grayPNG(t, 64, 64, 128), map[string]string{
		"scan_type":  "liver",
		"patient_id": "p-1",
	})

	w, body := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotEmpty(t, body["analysis_id"])
	require.NotEmpty(t, f.graph.Queries)
	assert.Equal(t, driver.SaveAnalysisQuery, f.graph.Queries[0].Query)
	assert.Equal(t, "p-1", f.graph.Queries[0].Params["patient_id"])
}

func TestAnalyzeScan_ArchiveFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.graph.Err = assert.AnError
	req := multipartRequest(t, "/analyze", "file", "liver.png", grayPNG(t, 32, 32, 128), map[string]string{
		"scan_type":  "liver",
		"patient_id": "p-1",
	})

	w, body := f.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "analysis_id")
}

func TestAnalyzeScan_BadInput(t *testing.T) {
	img := grayPNG(t, 16, 16, 0)
	tests := []struct {
		name  string
		req   func(t *testing.T) *http.Request
		msg   string
	}{
		{"no file", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/analyze", "", "", nil, map[string]string{"scan_type": "mri"})
		}, "No file uploaded"},
		{"no scan type", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/analyze", "file", "a.png", img, nil)
		}, "Scan type not specified"},
		{"unsupported type", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/analyze", "file", "a.png", img, map[string]string{"scan_type": "ultrasound"})
		}, "Unsupported scan type: ultrasound"},
		{"not an image", func(t *testing.T) *http.Request {
			return multipartRequest(t, "/analyze", "file", "a.png", []byte("not an image"), map[string]string{"scan_type": "mri"})
		}, "Invalid image format"},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := f.do(t, tt.req(t))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestUploadLimits(t *testing.T) {
	svc := newFixture(t).server.svc

	t.Run("body over the byte limit", func(t *testing.T) {
		s := New(svc, nil, WithLimits(config.LimitsConfig{MaxUploadBytes: 1024}))
		req := multipartRequest(t, "/analyze", "file", "big.png", bytes.Repeat([]byte{0x42}, 4096), map[string]string{"scan_type": "liver"})

		w := httptest.NewRecorder()
		s.CombinedRouter().ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)

		w = httptest.NewRecorder()
		s.CombinedRouter().ServeHTTP(w, jsonRequest("/analyze-risk", `{"text":"`+strings.Repeat("a", 4096)+`"}`))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("image over the pixel limit", func(t *testing.T) {
		s := New(svc, nil, WithLimits(config.LimitsConfig{MaxImagePixels: 100}))
		for path, field := range map[string]string{"/analyze": "file", "/analyze-prescription": "image"} {
			req := multipartRequest(t, path, field, "scan.png", grayPNG(t, 64, 64, 128), map[string]string{"scan_type": "liver"})

			w := httptest.NewRecorder()
			s.CombinedRouter().ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Contains(t, w.Body.String(), "Invalid image format", path)
		}
	})

	t.Run("defaults accept ordinary uploads", func(t *testing.T) {
		s := New(svc, nil, WithLimits(config.LimitsConfig{}))
		assert.Equal(t, config.Default().Limits, s.limits)
	})
}

func TestModels(t *testing.T) {
	w, body := newFixture(t).do(t, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["loaded_ai_models"])
	assert.Len(t, body["scan_types"], 7)
}

func TestAnalyzePrescription(t *testing.T) {
	req := multipartRequest(t, "/analyze-prescription", "image", "rx.png", grayPNG(t, 16, 16, 255), nil)

	w, body := newFixture(t).do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Rx\nParacetamol 500mg twice daily", body["extracted_text"])
	assert.Equal(t, prescription.LabelUnknown, body["classification"])
	assert.Equal(t, false, body["is_prescription"])
	assert.NotEmpty(t, body["medicines"])
}

func TestAnalyzePrescription_BadInput(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, multipartRequest(t, "/analyze-prescription", "", "", nil, map[string]string{"x": "y"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No image provided", body["error"])

	w, body = f.do(t, multipartRequest(t, "/analyze-prescription", "image", "rx.png", []byte("garbage"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid image format", body["error"])
}

func TestAnalyzeRisk(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		level  string
		method string
		msg    string
	}{
		{"suicidal keywords", `{"text":"I want to end my life"}`, http.StatusOK, risk.LevelSuicidal, risk.MethodKeyword, ""},
		{"empty text", `{"text":"   "}`, http.StatusOK, risk.LevelNormal, risk.MethodEmpty, ""},
		{"missing text", `{"other":"x"}`, http.StatusBadRequest, "", "", "Missing 'text' field"},
		{"invalid json", `{"text":`, http.StatusBadRequest, "", "", "Invalid request"},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := f.do(t, jsonRequest("/analyze-risk", tt.body))
			require.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.msg, body["error"])
				return
			}
			assert.Equal(t, true, body["success"])
			assert.Equal(t, tt.level, body["risk_level"])
			assert.Equal(t, tt.method, body["method"])
		})
	}
}

func TestAnalyzeReport(t *testing.T) {
	text := "Patient report. Blood pressure 150/95 noted at the visit."
	req := multipartRequest(t, "/analyze-report", "file", "report.txt", []byte(text), nil)

	w, body := newFixture(t).do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "report.txt", body["filename"])
	assert.Equal(t, text, body["extracted_text"])
	assert.Equal(t, float64(len(text)), body["full_text_length"])

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, analysis["method"])
}

func TestAnalyzeReport_BadInput(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, multipartRequest(t, "/analyze-report", "", "", nil, map[string]string{"x": "y"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file provided", body["error"])

	w, body = f.do(t, multipartRequest(t, "/analyze-report", "file", "empty.txt", []byte("  \n "), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Could not extract text from file", body["error"])
}

func TestHealthAdvisor(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, jsonRequest("/health-advisor", `{"reportText":"Hemoglobin slightly low, glucose normal."}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ok", body["summary"])
	assert.Equal(t, "ok", body["recommendations"])
	assert.Equal(t, []any{}, body["articles"])
}

func TestHealthAdvisor_BadInput(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, jsonRequest("/health-advisor", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Report text is required", body["error"])

	w, body = f.do(t, jsonRequest("/health-advisor", `{"text":"short"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, advisor.ErrTextTooShort.Error(), body["error"])
}

var analysisKeys = []string{"uuid", "patient_id", "kind", "title", "status", "created_at", "recommendations", "payload"}

func TestGetAnalysis(t *testing.T) {
	f := newFixture(t)
	f.graph.Results = map[string]neo4j.EagerResult{
		driver.GetAnalysisQuery: {Records: []*neo4j.Record{
			driver.Record(analysisKeys, "a-1", "p-1", "risk", "Risk assessment", "Anxious",
				"2026-03-01T10:00:00Z", []any{"Talk to someone"}, ""),
		}},
	}

	w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/analyses/a-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a-1", analysis["uuid"])

	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/analyses/a-1?format=markdown", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "# Risk assessment")
	assert.Contains(t, w.Body.String(), "Talk to someone")
}

func TestGetAnalysis_NotFound(t *testing.T) {
	w, body := newFixture(t).do(t, httptest.NewRequest(http.MethodGet, "/analyses/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestListPatientAnalyses(t *testing.T) {
	f := newFixture(t)
	f.graph.Results = map[string]neo4j.EagerResult{
		driver.ListPatientAnalysesQuery: {Records: []*neo4j.Record{
			driver.Record(analysisKeys, "a-2", "p-1", "report", "Report: r.pdf", "Low", "2026-03-02T10:00:00Z", nil, ""),
		}},
	}

	w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/patients/p-1/analyses?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p-1", body["patient_id"])
	assert.Len(t, body["analyses"], 1)
	assert.Equal(t, int64(10), f.graph.Queries[0].Params["limit"])

	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/patients/p-1/analyses?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveRoutesNeedStore(t *testing.T) {
	f := newFixture(t)
	f.server.svc.Archive = nil

	w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/analyses/a-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecovery(t *testing.T) {
	s := newFixture(t).server
	r := s.engine()
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, w.Body.String())
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w, _ := f.do(t, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w, _ = f.do(t, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBuild_Defaults(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""

	svc, closeFn := Build(context.Background(), cfg, BuildOptions{})
	require.NotNil(t, svc)
	defer func() { assert.NoError(t, closeFn(context.Background())) }()

	assert.Empty(t, svc.Scans.LoadedModels())
	assert.False(t, svc.Prescription.HasOCR())
	assert.True(t, svc.Prescription.HasClassifier())
	assert.False(t, svc.Risk.ModelLoaded())
	assert.False(t, svc.Report.HasLLM())
	assert.False(t, svc.Advisor.HasLLM())
	assert.False(t, svc.Advisor.HasSearch())
	assert.Nil(t, svc.Archive)
	// the default zero-shot model is hosted
	assert.NotNil(t, svc.Inference)

	cfg.Inference.ZeroShotModel = ""
	svc, _ = Build(context.Background(), cfg, BuildOptions{})
	assert.Nil(t, svc.Inference)
}

func TestBuild_WithModels(t *testing.T) {
	cfg := config.Default()
	cfg.Inference.ChestModel = "org/pneumonia"
	cfg.Inference.RiskModel = "org/risk"
	cfg.Inference.PrescriptionOCR = "org/donut"
	cfg.Search.APIKey = "serper-key"
	cfg.LLM = config.LLMConfig{Provider: "ollama", Model: "llama3"}

	svc, _ := Build(context.Background(), cfg, BuildOptions{Tesseract: stubOCR{}})

	assert.Equal(t, []string{"chest"}, svc.Scans.LoadedModels())
	assert.True(t, svc.Prescription.HasOCR())
	assert.True(t, svc.Risk.ModelLoaded())
	assert.True(t, svc.Report.HasLLM())
	assert.True(t, svc.Advisor.HasLLM())
	assert.True(t, svc.Advisor.HasSearch())
}
