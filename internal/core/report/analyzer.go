// Package report extracts medical values from uploaded reports, with an
// LLM when one is configured and fixed patterns otherwise.
package report

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/llm"
	"github.com/agenthands/medscan/internal/logging"
)

const (
	MethodNoText   = "no-text"
	MethodJSON     = "llm-json"
	MethodSections = "llm-sections"
	MethodMedical  = "llm-medical"

	minTextLength = 10
	maxPromptText = 8000
	previewLength = 5000
)

// DefaultPrompt asks for one "Parameter: Value (Normal range) - Status"
// line per value. {text} is replaced with the report.
const DefaultPrompt = `Extract medical values from this report:

{text}

Find:
- Blood pressure readings
- Lab values (hemoglobin, glucose, etc.)
- Vital signs

Format as: Parameter: Value (Normal range) - Status`

var medicalTerms = []string{
	"pressure", "hemoglobin", "glucose", "cholesterol", "heart rate", "bpm", "mmhg", "g/dl", "mg/dl",
}

type Analyzer struct {
	llm    llm.LLMClient
	prompt string
	logger *slog.Logger
}

func NewAnalyzer(client llm.LLMClient, prompt string, logger *slog.Logger) *Analyzer {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Analyzer{llm: client, prompt: prompt, logger: logger}
}

func (a *Analyzer) HasLLM() bool { return a.llm != nil }

// Report extracts the text of an upload and analyzes it.
func (a *Analyzer) Report(ctx context.Context, filename string, data []byte) (*model.ReportResult, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		a.logger.Warn("report text extraction failed", "filename", filename, "error", err)
		text = ""
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	a.logger.Debug("report text extracted", "filename", filename, "chars", utf8.RuneCountInString(text))

	return &model.ReportResult{
		Filename:       filename,
		ExtractedText:  common.Truncate(text, previewLength),
		FullTextLength: utf8.RuneCountInString(text),
		Analysis:       a.Analyze(ctx, text),
	}, nil
}

// Analyze never fails: LLM errors fall back to pattern extraction.
func (a *Analyzer) Analyze(ctx context.Context, text string) model.ReportAnalysis {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength {
		return NoTextAnalysis()
	}

	if a.llm != nil {
		prompt := strings.ReplaceAll(a.prompt, "{text}", common.Truncate(text, maxPromptText))
		resp, err := a.llm.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(resp) != "" {
			return ParseResponse(resp)
		}
		a.logger.Warn("report llm failed, using pattern extraction", "error", err)
	}

	return patternAnalysis(text)
}

// patternAnalysis prefers the strict value patterns and only uses the
// keyword analysis when it finds something they missed.
func patternAnalysis(text string) model.ReportAnalysis {
	res := ExtractValues(text)
	if res.KeyValues[0] != "No medical values found in standard format" {
		return res
	}
	if kw := KeywordAnalysis(text); kw.KeyValues[0] != "No numerical values found in report" {
		return kw
	}
	return res
}

func NoTextAnalysis() model.ReportAnalysis {
	return model.ReportAnalysis{
		Summary:     "No readable text found in document",
		KeyValues:   []string{"Text extraction failed"},
		Findings:    []string{"Document may be image-based or corrupted"},
		Suggestions: []string{"Try uploading a text-based PDF"},
		RiskLevel:   model.RiskUnknown,
		Confidence:  0.1,
		Method:      MethodNoText,
	}
}

type jsonAnalysis struct {
	Summary     string   `json:"summary"`
	KeyValues   []string `json:"key_values"`
	Findings    []string `json:"findings"`
	Suggestions []string `json:"suggestions"`
	RiskLevel   string   `json:"risk_level"`
}

// ParseResponse reads an LLM answer as a JSON object, as SUMMARY:/...
// sections, or as loose value lines, in that order.
func ParseResponse(resp string) model.ReportAnalysis {
	if j, err := common.ParseJSON[jsonAnalysis](resp); err == nil && (j.Summary != "" || len(j.KeyValues) > 0) {
		return withDefaults(model.ReportAnalysis{
			Summary:     j.Summary,
			KeyValues:   j.KeyValues,
			Findings:    j.Findings,
			Suggestions: j.Suggestions,
			RiskLevel:   NormalizeRisk(j.RiskLevel),
			Confidence:  0.9,
			Method:      MethodJSON,
		})
	}
	if strings.Contains(resp, "SUMMARY:") {
		return parseSections(resp)
	}
	return parseValueLines(resp)
}

func parseSections(resp string) model.ReportAnalysis {
	var (
		res                        model.ReportAnalysis
		current                    *[]string
		risk                       string
		values, findings, suggests []string
		seenFindings, seenSuggests bool
	)

	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			res.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
			current = nil
		case strings.HasPrefix(line, "NUMERICAL VALUES:"):
			values, current = []string{}, &values
		case strings.HasPrefix(line, "KEY FINDINGS:"):
			findings, current, seenFindings = []string{}, &findings, true
		case strings.HasPrefix(line, "RECOMMENDATIONS:"):
			suggests, current, seenSuggests = []string{}, &suggests, true
		case strings.HasPrefix(line, "RISK ASSESSMENT:"):
			risk = strings.TrimSpace(strings.TrimPrefix(line, "RISK ASSESSMENT:"))
		case line == "" || current == nil:
			// text outside a list section
		case strings.HasPrefix(line, "-"):
			*current = append(*current, strings.TrimSpace(strings.TrimPrefix(line, "-")))
		case strings.HasPrefix(line, "•"):
			*current = append(*current, strings.TrimSpace(strings.TrimPrefix(line, "•")))
		case !isUpper(line):
			*current = append(*current, line)
		}
	}

	if res.Summary == "" {
		res.Summary = "Medical report analyzed"
	}
	res.KeyValues = values
	if res.KeyValues == nil {
		res.KeyValues = []string{}
	}
	res.Findings = findings
	if !seenFindings {
		res.Findings = []string{"Report processed successfully"}
	}
	res.Suggestions = suggests
	if !seenSuggests {
		res.Suggestions = []string{"Maintain regular health checkups"}
	}
	res.RiskLevel = model.RiskLow
	if risk != "" {
		res.RiskLevel = NormalizeRisk(risk)
	}
	res.Confidence = 0.9
	res.Method = MethodSections
	return res
}

var bulletReplacer = strings.NewReplacer("- ", "", "• ", "", "* ", "")

func parseValueLines(resp string) model.ReportAnalysis {
	var values []string
	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, ":") && !common.ContainsAny(line, []string{"mmHg", "g/dL", "mg/dL"}) {
			continue
		}
		clean := bulletReplacer.Replace(line)
		if common.ContainsAny(strings.ToLower(clean), medicalTerms) {
			values = append(values, clean)
		}
	}
	if len(values) == 0 {
		values = []string{"No medical values detected in this report"}
	}
	return model.ReportAnalysis{
		Summary:     "Medical values extracted from report",
		KeyValues:   values,
		Findings:    []string{"Medical parameters identified"},
		Suggestions: []string{"Consult healthcare provider for interpretation"},
		RiskLevel:   model.RiskMedium,
		Confidence:  0.8,
		Method:      MethodMedical,
	}
}

func withDefaults(a model.ReportAnalysis) model.ReportAnalysis {
	if a.Summary == "" {
		a.Summary = "Medical report analyzed"
	}
	if a.KeyValues == nil {
		a.KeyValues = []string{}
	}
	if len(a.Findings) == 0 {
		a.Findings = []string{"Report processed successfully"}
	}
	if len(a.Suggestions) == 0 {
		a.Suggestions = []string{"Maintain regular health checkups"}
	}
	a.Confidence = common.Clamp01(a.Confidence)
	return a
}

// NormalizeRisk maps free-form risk text onto the fixed levels.
func NormalizeRisk(s string) model.RiskLevel {
	l := strings.ToLower(s)
	switch {
	case l == "":
		return model.RiskLow
	case strings.Contains(l, "high"):
		return model.RiskHigh
	case strings.Contains(l, "medium"), strings.Contains(l, "moderate"):
		return model.RiskMedium
	case strings.Contains(l, "low"):
		return model.RiskLow
	default:
		return model.RiskUnknown
	}
}

// isUpper reports whether s has letters and none of them is lower case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
