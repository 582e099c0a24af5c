package prescription

import (
	"context"
	"strings"

	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
)

const (
	LabelPrescription    = "medical prescription"
	LabelNotPrescription = "not medical prescription"
	LabelUnknown         = "unknown"
	LabelError           = "error"

	keywordOverrideConfidence = 0.75
)

var CandidateLabels = []string{LabelPrescription, LabelNotPrescription}

var medicalKeywords = []string{
	"prescribed", "take", "mg", "ml", "mcg", "capsules", "tablets", "dosage",
	"dr.", "doctor", "patient", "medications", "apply", "signature",
	"clinic", "pharmacy", "rx", "dose", "medicine", "drug", "tablet",
	"syrup", "injection", "ointment", "cream", "drops", "inhaler",
	"morning", "evening", "daily", "twice", "thrice", "before meals", "after meals",
}

// ZeroShotClassifier scores text against candidate labels, best first.
type ZeroShotClassifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]model.Prediction, error)
}

// Classify decides whether text reads like a prescription. The model label
// is overridden when keyword evidence disagrees with it.
func Classify(ctx context.Context, zs ZeroShotClassifier, text string) (model.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" || zs == nil {
		return model.ClassificationResult{Label: LabelUnknown}, nil
	}

	preds, err := zs.Classify(ctx, text, CandidateLabels)
	if err != nil || len(preds) == 0 {
		return model.ClassificationResult{Label: LabelError}, err
	}

	label := preds[0].Label
	confidence := preds[0].Score

	hasKeywords := common.ContainsAny(strings.ToLower(text), medicalKeywords)
	switch {
	case label == LabelNotPrescription && hasKeywords:
		label = LabelPrescription
		confidence = max(confidence, keywordOverrideConfidence)
	case label == LabelPrescription && !hasKeywords:
		label = LabelNotPrescription
		confidence = max(confidence, keywordOverrideConfidence)
	}

	return model.ClassificationResult{Label: label, Confidence: common.Clamp01(confidence)}, nil
}
