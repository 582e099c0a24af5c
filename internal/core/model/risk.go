package model

type RiskResult struct {
	RiskLevel  string  `json:"risk_level"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}
