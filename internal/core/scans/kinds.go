package scans

import (
	"errors"
	"strings"

	"github.com/agenthands/medscan/internal/core/model"
)

var ErrUnsupportedScanType = errors.New("unsupported scan type")

// kind describes one scan type: how it is prepared, which rules run and
// what a clean result looks like.
type kind struct {
	id       string
	display  string
	title    string
	normal   string
	keywords []string
	clahe    bool

	rules     func(s *scan)
	recommend func(f model.FindingList) []string

	// set for the types that can blend a pretrained classifier
	blend       func(s *scan, preds []model.Prediction, threshold float64)
	modelDetail string
	cvDetail    string
}

var kinds = []*kind{
	{
		id:          "mri",
		display:     "MRI Brain Scan",
		title:       "MRI Brain Scan (AI + Computer Vision)",
		normal:      "No significant abnormalities detected",
		keywords:    []string{"mri", "magnetic", "resonance", "brain", "axial", "sagittal", "coronal"},
		rules:       mriRules,
		recommend:   mriRecommend,
		blend:       mriBlend,
		modelDetail: "Brain Analysis",
		cvDetail:    "Advanced Computer Vision",
	},
	{
		id:        "xray",
		display:   "X-Ray Analysis",
		title:     "X-Ray Analysis",
		normal:    "No significant abnormalities detected",
		keywords:  []string{"x-ray", "xray", "radiograph", "chest", "bone", "fracture"},
		clahe:     true,
		rules:     xrayRules,
		recommend: xrayRecommend,
		cvDetail:  "Advanced Computer Vision (Fracture + Bone Analysis)",
	},
	{
		id:          "chest",
		display:     "Chest Scan",
		title:       "Chest X-Ray Analysis",
		normal:      "Normal chest findings",
		keywords:    []string{"chest", "lung", "thorax", "cardiac", "pulmonary"},
		clahe:       true,
		rules:       chestRules,
		recommend:   chestRecommend,
		blend:       chestBlend,
		modelDetail: "Pneumonia Detection",
		cvDetail:    "Advanced Computer Vision",
	},
	{
		id:        "kidney",
		display:   "Kidney Scan",
		title:     "Kidney Scan",
		normal:    "Normal kidney structure",
		keywords:  []string{"kidney", "renal", "nephro", "ureter", "bladder"},
		rules:     kidneyRules,
		recommend: simpleRecommend("Nephrologist review", "Continue regular monitoring"),
		cvDetail:  "Advanced Computer Vision (Cyst + Stone Detection)",
	},
	{
		id:        "heart",
		display:   "Heart Scan",
		title:     "Heart Scan",
		normal:    "Normal cardiac structure",
		keywords:  []string{"heart", "cardiac", "echo", "ecg", "ekg", "coronary"},
		rules:     heartRules,
		recommend: simpleRecommend("Cardiologist evaluation", "Regular cardiac monitoring"),
		cvDetail:  "Advanced Computer Vision (Cardiomegaly Detection)",
	},
	{
		id:          "skin",
		display:     "Skin Analysis",
		title:       "Dermatological Analysis",
		normal:      "Normal skin appearance",
		keywords:    []string{"dermatology", "skin", "lesion", "mole", "melanoma"},
		rules:       skinRules,
		recommend:   skinRecommend,
		blend:       skinBlend,
		modelDetail: "Skin Lesion Classifier",
		cvDetail:    "ABCDE Analysis + Computer Vision",
	},
	{
		id:        "liver",
		display:   "Liver Scan",
		title:     "Liver Scan",
		normal:    "Normal liver structure",
		keywords:  []string{"liver", "hepatic", "abdomen", "abdominal"},
		rules:     liverRules,
		recommend: simpleRecommend("Hepatologist consultation", "Regular liver function monitoring"),
		cvDetail:  "Advanced Computer Vision (Fatty Liver + Texture Analysis)",
	},
}

func lookup(id string) (*kind, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, k := range kinds {
		if k.id == id {
			return k, true
		}
	}
	return nil, false
}

// ScanTypes lists the supported scan type ids in display order.
func ScanTypes() []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.id
	}
	return out
}

// Supported reports whether the analyzer knows the scan type.
func Supported(id string) bool {
	_, ok := lookup(id)
	return ok
}

func simpleRecommend(abnormal, normal string) func(model.FindingList) []string {
	return func(f model.FindingList) []string {
		if len(f) > 0 {
			return []string{abnormal}
		}
		return []string{normal}
	}
}

func anyConditionContains(f model.FindingList, terms ...string) bool {
	for _, c := range f {
		lc := strings.ToLower(c.Condition)
		for _, t := range terms {
			if strings.Contains(lc, t) {
				return true
			}
		}
	}
	return false
}
