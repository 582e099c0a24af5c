package archive

import (
	"encoding/json"
	"fmt"

	"github.com/agenthands/medscan/internal/core/model"
)

// FromScan archives a scan result. Findings keep their reported scores.
func FromScan(patientID, filename string, r *model.ScanResult) *model.ArchivedAnalysis {
	a := base(patientID, model.KindScan, fmt.Sprintf("%s: %s", r.ScanType, filename), string(r.Status), r)
	for _, c := range r.Conditions {
		a.Findings = append(a.Findings, model.ArchivedFinding{Condition: c, Confidence: scoreFor(r, c)})
	}
	a.Recommendations = r.Recommendations
	return a
}

// scoreFor finds the confidence of a condition. Conditions and score keys
// differ, so the highest score stands in when the scan is abnormal.
func scoreFor(r *model.ScanResult, condition string) float64 {
	if v, ok := r.ConfidenceScores[condition]; ok {
		return v
	}
	if r.Status == model.StatusNormal {
		return 0
	}
	best := 0.0
	for _, v := range r.ConfidenceScores {
		best = max(best, v)
	}
	return best
}

func FromPrescription(patientID, filename string, r *model.PrescriptionResult) *model.ArchivedAnalysis {
	a := base(patientID, model.KindPrescription, "Prescription: "+filename, r.Classification, r)
	for _, m := range r.Medicines {
		a.Findings = append(a.Findings, model.ArchivedFinding{
			Condition:  fmt.Sprintf("%s %s (%s)", m.Name, m.Dosage, m.Frequency),
			Confidence: r.Confidence,
		})
	}
	return a
}

func FromRisk(patientID string, r model.RiskResult) *model.ArchivedAnalysis {
	a := base(patientID, model.KindRisk, "Risk assessment", r.RiskLevel, r)
	a.Findings = []model.ArchivedFinding{{Condition: r.RiskLevel, Confidence: r.Confidence}}
	return a
}

func FromReport(patientID string, r *model.ReportResult) *model.ArchivedAnalysis {
	a := base(patientID, model.KindReport, "Report: "+r.Filename, string(r.Analysis.RiskLevel), r)
	for _, v := range r.Analysis.KeyValues {
		a.Findings = append(a.Findings, model.ArchivedFinding{Condition: v, Confidence: r.Analysis.Confidence})
	}
	a.Recommendations = r.Analysis.Suggestions
	return a
}

func FromAdvice(patientID string, r *model.Advice) *model.ArchivedAnalysis {
	a := base(patientID, model.KindAdvice, "Health advice", "", r)
	for _, art := range r.Articles {
		a.Findings = append(a.Findings, model.ArchivedFinding{Condition: art.Title + " - " + art.URL})
	}
	a.Recommendations = []string{r.Recommendations}
	return a
}

func base(patientID string, kind model.AnalysisKind, title, status string, payload any) *model.ArchivedAnalysis {
	a := &model.ArchivedAnalysis{
		PatientID: patientID,
		Kind:      kind,
		Title:     title,
		Status:    status,
	}
	if b, err := json.Marshal(payload); err == nil {
		a.Payload = string(b)
	}
	return a
}
