package model

// Prediction is one label/score pair returned by an external classifier.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Finding is a single heuristic or model detection. ScoreKey names the
// entry under which Confidence is reported in confidence_scores.
type Finding struct {
	Condition  string  `json:"condition"`
	ScoreKey   string  `json:"score_key"`
	Confidence float64 `json:"confidence"`
}

type FindingList []Finding

// Conditions returns the condition texts in detection order.
func (l FindingList) Conditions() []string {
	out := make([]string, len(l))
	for i, f := range l {
		out[i] = f.Condition
	}
	return out
}

// Scores maps score keys to confidences. A repeated key keeps its first value.
func (l FindingList) Scores() map[string]float64 {
	out := make(map[string]float64, len(l))
	for _, f := range l {
		if _, ok := out[f.ScoreKey]; !ok {
			out[f.ScoreKey] = f.Confidence
		}
	}
	return out
}

type ScanStatus string

const (
	StatusNormal   ScanStatus = "Normal"
	StatusAbnormal ScanStatus = "Abnormal"
)

type ScanResult struct {
	ScanType          string             `json:"scan_type"`
	Status            ScanStatus         `json:"status"`
	Conditions        []string           `json:"detected_conditions"`
	ConfidenceScores  map[string]float64 `json:"confidence_scores"`
	Findings          string             `json:"findings"`
	Recommendations   []string           `json:"recommendations"`
	AIModelUsed       bool               `json:"ai_model_used"`
	ValidationMessage string             `json:"validation_message"`
	ImageValidated    bool               `json:"image_validated"`
}
