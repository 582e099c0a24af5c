package model

import "time"

type AnalysisKind string

const (
	KindScan         AnalysisKind = "scan"
	KindPrescription AnalysisKind = "prescription"
	KindRisk         AnalysisKind = "risk"
	KindReport       AnalysisKind = "report"
	KindAdvice       AnalysisKind = "advice"
)

type ArchivedFinding struct {
	Condition  string  `json:"condition"`
	Confidence float64 `json:"confidence"`
}

// ArchivedAnalysis is a finished analysis stored for a patient. Payload
// holds the response body exactly as it was returned.
type ArchivedAnalysis struct {
	UUID            string            `json:"uuid"`
	PatientID       string            `json:"patient_id"`
	Kind            AnalysisKind      `json:"kind"`
	Title           string            `json:"title"`
	Status          string            `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	Findings        []ArchivedFinding `json:"findings"`
	Recommendations []string          `json:"recommendations"`
	Payload         string            `json:"payload,omitempty"`
}
