package model

type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown"
)

// ReportAnalysis is the structured reading of a medical report.
type ReportAnalysis struct {
	Summary     string    `json:"summary"`
	KeyValues   []string  `json:"key_values"`
	Findings    []string  `json:"findings"`
	Suggestions []string  `json:"suggestions"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Confidence  float64   `json:"confidence"`
	Method      string    `json:"method"`
}

type ReportResult struct {
	Filename       string         `json:"filename"`
	ExtractedText  string         `json:"extracted_text"`
	FullTextLength int            `json:"full_text_length"`
	Analysis       ReportAnalysis `json:"analysis"`
}
