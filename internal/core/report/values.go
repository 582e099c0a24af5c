package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agenthands/medscan/internal/core/model"
)

type labRange struct {
	re       *regexp.Regexp
	name     string
	unit     string
	min, max float64
}

var (
	bpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{2,3})/(\d{2,3})\s*mmhg`),
		regexp.MustCompile(`blood pressure[:\s]*(\d{2,3})/(\d{2,3})`),
		regexp.MustCompile(`bp[:\s]*(\d{2,3})/(\d{2,3})`),
	}

	labPatterns = []labRange{
		{regexp.MustCompile(`hemoglobin[:\s]*(\d+\.?\d*)\s*g/dl`), "Hemoglobin", "g/dL", 12, 16},
		{regexp.MustCompile(`glucose[:\s]*(\d+)\s*mg/dl`), "Glucose", "mg/dL", 70, 100},
		{regexp.MustCompile(`cholesterol[:\s]*(\d+)\s*mg/dl`), "Cholesterol", "mg/dL", 0, 200},
	}

	// wider set used by the keyword analysis when nothing else matched
	keywordLabPatterns = []labRange{
		labPatterns[0],
		{regexp.MustCompile(`hb[:\s]*(\d+\.?\d*)\s*g/dl`), "Hemoglobin", "g/dL", 12, 16},
		labPatterns[1],
		labPatterns[2],
		{regexp.MustCompile(`wbc[:\s]*(\d+\.?\d*)`), "WBC Count", "/μL", 4000, 11000},
		{regexp.MustCompile(`rbc[:\s]*(\d+\.?\d*)`), "RBC Count", "million/μL", 4.5, 5.5},
	}

	hemoglobinRe = regexp.MustCompile(`h[ae]moglobin[:\s]*(\d+\.?\d*)`)
	glucoseRe    = regexp.MustCompile(`glucose[:\s]*(\d+)`)
)

const (
	MethodRegex   = "regex-extraction"
	MethodKeyword = "keyword-fallback"
)

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func bloodPressure(sys, dia int) string {
	status := "Elevated"
	if sys < 120 && dia < 80 {
		status = "Normal"
	}
	return fmt.Sprintf("Blood Pressure: %d/%d mmHg (Normal: <120/80) - %s", sys, dia, status)
}

func (l labRange) format(v float64) string {
	status := "Normal"
	switch {
	case v < l.min:
		status = "Low"
	case v > l.max:
		status = "High"
	}
	return fmt.Sprintf("%s: %s %s (Normal: %s-%s) - %s", l.name, num(v), l.unit, num(l.min), num(l.max), status)
}

// collector keeps values in match order without exact duplicates.
type collector struct {
	values []string
	seen   map[string]bool
}

func (c *collector) add(v string) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[v] {
		return
	}
	c.seen[v] = true
	c.values = append(c.values, v)
}

func (c *collector) bp(lower string, patterns []*regexp.Regexp) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			sys, _ := strconv.Atoi(m[1])
			dia, _ := strconv.Atoi(m[2])
			c.add(bloodPressure(sys, dia))
		}
	}
}

func (c *collector) labs(lower string, patterns []labRange) {
	for _, l := range patterns {
		for _, m := range l.re.FindAllStringSubmatch(lower, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			c.add(l.format(v))
		}
	}
}

// ExtractValues pulls blood pressure and common lab values out of report
// text with fixed patterns.
func ExtractValues(text string) model.ReportAnalysis {
	lower := strings.ToLower(text)

	var c collector
	c.bp(lower, bpPatterns)
	c.labs(lower, labPatterns)

	risk := model.RiskLow
	for _, v := range c.values {
		if strings.Contains(v, "High") || strings.Contains(v, "Elevated") {
			risk = model.RiskMedium
			break
		}
	}

	values := c.values
	if len(values) == 0 {
		values = []string{"No medical values found in standard format"}
	}

	return model.ReportAnalysis{
		Summary:     "Medical values extracted using pattern matching",
		KeyValues:   values,
		Findings:    []string{"Automated extraction completed"},
		Suggestions: []string{"Review values with healthcare provider"},
		RiskLevel:   risk,
		Confidence:  0.7,
		Method:      MethodRegex,
	}
}

// KeywordAnalysis looks for hemoglobin and glucose readings and raises the
// risk for low hemoglobin or high glucose. When neither is found it falls
// back to the wider lab pattern set.
func KeywordAnalysis(text string) model.ReportAnalysis {
	lower := strings.ToLower(text)

	var (
		c           collector
		findings    []string
		suggestions []string
		risk        = model.RiskLow
	)

	if strings.Contains(lower, "hemoglobin") || strings.Contains(lower, "hb") {
		if m := hemoglobinRe.FindStringSubmatch(lower); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				c.add(fmt.Sprintf("Hemoglobin: %s g/dL", num(v)))
				if v < 12 {
					findings = append(findings, "Low hemoglobin detected")
					suggestions = append(suggestions, "Consider iron-rich foods and supplements")
					risk = model.RiskMedium
				}
			}
		}
	}

	if strings.Contains(lower, "glucose") {
		if m := glucoseRe.FindStringSubmatch(lower); m != nil {
			v, _ := strconv.Atoi(m[1])
			c.add(fmt.Sprintf("Glucose: %d mg/dL", v))
			if v > 140 {
				findings = append(findings, "Elevated glucose levels")
				suggestions = append(suggestions, "Monitor blood sugar and consider dietary changes")
				risk = model.RiskHigh
			}
		}
	}

	if len(findings) == 0 {
		findings = []string{"Medical parameters within expected ranges"}
	}

	if len(c.values) == 0 {
		c.labs(lower, keywordLabPatterns)
		c.bp(lower, bpPatterns[:1])
	}

	if len(suggestions) == 0 {
		suggestions = []string{"Continue regular health monitoring", "Maintain healthy lifestyle"}
	}

	values := c.values
	if len(values) == 0 {
		values = []string{"No numerical values found in report"}
	}

	return model.ReportAnalysis{
		Summary:     "Medical report processed with keyword analysis",
		KeyValues:   values,
		Findings:    findings,
		Suggestions: suggestions,
		RiskLevel:   risk,
		Confidence:  0.7,
		Method:      MethodKeyword,
	}
}
