package scans

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/agenthands/medscan/internal/ocr"
	"github.com/agenthands/medscan/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	name  string
	preds []model.Prediction
	err   error
	calls int
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(ctx context.Context, image []byte) ([]model.Prediction, error) {
	s.calls++
	return s.preds, s.err
}

type stubOCR struct {
	text string
	err  error
}

func (s stubOCR) Name() string { return "stub" }

func (s stubOCR) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{PlainText: s.text, Engine: "stub"}, s.err
}

func uniform(w, h int, v uint8) *imaging.Decoded {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return &imaging.Decoded{Image: img, Format: "png", Orientation: 1}
}

func defaults() config.ScansConfig { return config.Default().Scans }

func TestAnalyze_UnsupportedType(t *testing.T) {
	a := NewAnalyzer(defaults())
	_, err := a.Analyze(context.Background(), uniform(10, 10, 0), "ultrasound")
	assert.ErrorIs(t, err, ErrUnsupportedScanType)
}

func TestAnalyze_RuleOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		scanType  string
		value     uint8
		status    model.ScanStatus
		title     string
		condition string
		rec       string
	}{
		{"bright liver", "liver", 230, model.StatusAbnormal, "Liver Scan", "Increased liver density - possible fatty liver", "Hepatologist consultation"},
		{"gray liver", "liver", 128, model.StatusNormal, "Liver Scan", "Normal liver structure", "Regular liver function monitoring"},
		{"dark kidney", "kidney", 0, model.StatusAbnormal, "Kidney Scan", "Possible kidney atrophy", "Nephrologist review"},
		{"bright heart", "heart", 255, model.StatusAbnormal, "Heart Scan", "Cardiomegaly detected", "Cardiologist evaluation"},
		{"dark mri", "MRI", 0, model.StatusAbnormal, "MRI Brain Scan (AI + Computer Vision)", "Possible ventricular enlargement", "Regular follow-up recommended"},
	}

	a := NewAnalyzer(defaults())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), uniform(64, 64, tt.value), tt.scanType)
			require.NoError(t, err)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.title, res.ScanType)
			require.NotEmpty(t, res.Conditions)
			assert.Equal(t, tt.condition, res.Conditions[0])
			assert.Equal(t, []string{tt.rec}, res.Recommendations)
			assert.True(t, res.ImageValidated)
			assert.False(t, res.AIModelUsed)
			for k, v := range res.ConfidenceScores {
				assert.True(t, v >= 0 && v <= 1, k)
			}
		})
	}
}

func TestAnalyze_HeartScores(t *testing.T) {
	res, err := NewAnalyzer(defaults()).Analyze(context.Background(), uniform(64, 64, 255), "heart")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiomegaly detected", "Possible ventricular hypertrophy"}, res.Conditions)
	assert.Equal(t, map[string]float64{"Cardiomegaly": 0.81, "Hypertrophy": 0.74}, res.ConfidenceScores)
	assert.Equal(t, "Cardiomegaly detected; Possible ventricular hypertrophy", res.Findings)
}

func TestAnalyze_MRIClassifierBlend(t *testing.T) {
	m := &stubClassifier{name: "google/vit-base-patch16-224", preds: []model.Prediction{
		{Label: "tumor", Score: 0.9},
		{Label: "normal", Score: 0.2},
	}}
	a := NewAnalyzer(defaults(), WithClassifier("mri", m))

	res, err := a.Analyze(context.Background(), uniform(64, 64, 0), "mri")
	require.NoError(t, err)

	assert.Equal(t, 1, m.calls)
	assert.True(t, res.AIModelUsed)
	assert.Equal(t, []string{"AI Detection: tumor", "Possible ventricular enlargement"}, res.Conditions)
	assert.Equal(t, 0.9, res.ConfidenceScores["AI_tumor"])
	assert.NotContains(t, res.ConfidenceScores, "AI_normal")
}

func TestAnalyze_ClassifierFailureKeepsRules(t *testing.T) {
	m := &stubClassifier{name: "m", err: errors.New("503")}
	a := NewAnalyzer(defaults(), WithClassifier("mri", m))

	res, err := a.Analyze(context.Background(), uniform(64, 64, 0), "mri")
	require.NoError(t, err)

	assert.False(t, res.AIModelUsed)
	assert.Equal(t, []string{"Possible ventricular enlargement"}, res.Conditions)
}

func TestAnalyze_ChestPneumonia(t *testing.T) {
	m := &stubClassifier{name: "Borjamg/pneumonia_model", preds: []model.Prediction{
		{Label: "PNEUMONIA", Score: 0.8},
		{Label: "NORMAL", Score: 0.2},
	}}
	a := NewAnalyzer(defaults(), WithClassifier("chest", m))

	res, err := a.Analyze(context.Background(), uniform(64, 64, 128), "chest")
	require.NoError(t, err)

	assert.Equal(t, model.StatusAbnormal, res.Status)
	assert.Equal(t, "Pneumonia detected - PNEUMONIA", res.Conditions[0])
	assert.Equal(t, 0.8, res.ConfidenceScores["Pneumonia"])
	assert.Equal(t, []string{"Urgent pulmonologist consultation"}, res.Recommendations)
}

func TestAnalyze_ChestThresholdFromConfig(t *testing.T) {
	m := &stubClassifier{name: "m", preds: []model.Prediction{{Label: "PNEUMONIA", Score: 0.55}}}
	cfg := defaults()
	cfg.ChestThreshold = 0.6
	a := NewAnalyzer(cfg, WithClassifier("chest", m))

	res, err := a.Analyze(context.Background(), uniform(64, 64, 128), "chest")
	require.NoError(t, err)
	assert.NotContains(t, res.Conditions, "Pneumonia detected - PNEUMONIA")
}

func TestAnalyze_SkinMalignancy(t *testing.T) {
	m := &stubClassifier{name: "skin", preds: []model.Prediction{{Label: "melanoma", Score: 0.7}}}
	a := NewAnalyzer(defaults(), WithClassifier("skin", m))

	res, err := a.Analyze(context.Background(), uniform(64, 64, 128), "skin")
	require.NoError(t, err)

	assert.Equal(t, "Classified as: melanoma", res.Conditions[0])
	assert.Equal(t, "HIGH RISK: Malignant lesion detected", res.Conditions[1])
	assert.Equal(t, 0.7, res.ConfidenceScores["Malignancy Risk"])
	assert.Equal(t, []string{"URGENT: Immediate dermatologist consultation required"}, res.Recommendations)
}

func TestAnalyze_ChestAspectRatio(t *testing.T) {
	res, err := NewAnalyzer(defaults()).Analyze(context.Background(), uniform(300, 100, 128), "chest")
	require.NoError(t, err)
	assert.False(t, res.ImageValidated)
	assert.Equal(t, "Image dimensions don't match typical chest X-ray format", res.ValidationMessage)
	assert.NotEmpty(t, res.Status)
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name string
		ocr  stubOCR
		want string
	}{
		{"keywords", stubOCR{text: "MRI Brain AXIAL T2"}, "Validated: Found relevant keywords mri, brain, axial"},
		{"no keywords", stubOCR{text: "hello"}, "No specific keywords found, proceeding with analysis"},
		{"no text", stubOCR{err: ocr.ErrNoText}, "No specific keywords found, proceeding with analysis"},
		{"failure", stubOCR{err: errors.New("tesseract crashed")}, "Validation warning: tesseract crashed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyzer(defaults(), WithOCR(tt.ocr, []string{"eng"}))
			res, err := a.Analyze(context.Background(), uniform(32, 32, 0), "mri")
			require.NoError(t, err)
			assert.True(t, res.ImageValidated)
			assert.Equal(t, tt.want, res.ValidationMessage)
		})
	}
}

func TestModels(t *testing.T) {
	chest := &stubClassifier{name: "Borjamg/pneumonia_model"}
	a := NewAnalyzer(defaults(),
		WithClassifier("chest", chest),
		WithClassifier("kidney", &stubClassifier{name: "ignored"}),
		WithClassifier("skin", nil),
	)

	info := a.Models()
	assert.Equal(t, []string{"chest"}, info.LoadedModels)
	assert.Equal(t, 1, info.Total)
	assert.Equal(t, "Borjamg/pneumonia_model (Pneumonia Detection)", info.ModelDetails["chest"])
	assert.Equal(t, "ABCDE Analysis + Computer Vision", info.ModelDetails["skin"])
	assert.Equal(t, "Advanced Computer Vision (Cyst + Stone Detection)", info.ModelDetails["kidney"])
	assert.Equal(t, "X-Ray Analysis", info.ScanTypes["xray"])
	assert.Len(t, info.ScanTypes, 7)
}

func TestScanTypes(t *testing.T) {
	assert.Equal(t, []string{"mri", "xray", "chest", "kidney", "heart", "skin", "liver"}, ScanTypes())
	assert.True(t, Supported(" Chest "))
	assert.False(t, Supported("pet"))
}

func TestAsymmetry_SymmetricSquare(t *testing.T) {
	g := vision.NewGray(40, 40)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			g.Set(y, x, 255)
		}
	}
	contours := vision.FindExternalContours(g)
	require.Len(t, contours, 1)

	a, ok := asymmetry(contours[0], 40, 40)
	require.True(t, ok)
	assert.InDelta(t, 0, a, 1e-9)
}

// painted builds a processedSize square gray image from paint.
func painted(paint func(x, y int) uint8) *imaging.Decoded {
	img := image.NewRGBA(image.Rect(0, 0, processedSize, processedSize))
	for y := 0; y < processedSize; y++ {
		for x := 0; x < processedSize; x++ {
			v := paint(x, y)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return &imaging.Decoded{Image: img, Format: "png", Orientation: 1}
}

func inRect(x, y, x0, y0, x1, y1 int) bool {
	return x >= x0 && x < x1 && y >= y0 && y < y1
}

func TestAnalyze_SyntheticLesions(t *testing.T) {
	squares := func(x, y int) uint8 {
		for _, row := range []int{50, 150} {
			for k := 0; k < 4; k++ {
				if inRect(x, y, 20+50*k, row, 30+50*k, row+10) {
					return 255
				}
			}
		}
		return 0
	}
	stripes := func(x, y int) uint8 {
		if y >= 8 && y < 216 && x%16 >= 4 && x%16 < 12 && x < 220 {
			return 255
		}
		return 0
	}

	tests := []struct {
		name       string
		scanType   string
		paint      func(x, y int) uint8
		conditions []string
	}{
		{"kidney cysts", "kidney", squares,
			[]string{"Multiple cystic lesions detected", "Possible kidney atrophy"}},
		{"kidney single mass", "kidney", func(x, y int) uint8 {
			if inRect(x, y, 62, 62, 162, 162) {
				return 200
			}
			return 0
		}, []string{"Normal kidney structure"}},
		{"heart enlarged", "heart", func(x, y int) uint8 {
			if inRect(x, y, 80, 80, 144, 144) {
				return 255
			}
			return 0
		}, []string{"Cardiomegaly detected", "Possible ventricular hypertrophy"}},
		{"heart dense core", "heart", func(x, y int) uint8 {
			if inRect(x, y, 100, 100, 124, 124) {
				return 255
			}
			return 0
		}, []string{"Possible ventricular hypertrophy"}},
		{"heart dark", "heart", func(x, y int) uint8 { return 0 },
			[]string{"Normal cardiac structure"}},
		{"liver striped", "liver", stripes,
			[]string{"Heterogeneous liver texture", "Multiple nodular lesions"}},
		{"liver few nodules", "liver", squares, []string{"Normal liver structure"}},
	}

	a := NewAnalyzer(defaults())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), painted(tt.paint), tt.scanType)
			require.NoError(t, err)
			assert.Equal(t, tt.conditions, res.Conditions)
		})
	}
}

func TestAnalyze_SkinABCDE(t *testing.T) {
	a := NewAnalyzer(defaults())

	t.Run("off-centre lesion", func(t *testing.T) {
		lesion := painted(func(x, y int) uint8 {
			if inRect(x, y, 20, 60, 100, 160) {
				return 255
			}
			return 0
		})
		res, err := a.Analyze(context.Background(), lesion, "skin")
		require.NoError(t, err)

		assert.Equal(t, model.StatusAbnormal, res.Status)
		assert.Equal(t, []string{
			"Asymmetric lesion detected (ABCDE: A)",
			"Large diameter lesion (ABCDE: D)",
			"Very dark pigmentation - monitor closely",
			"Heterogeneous texture detected",
		}, res.Conditions)
		assert.Equal(t, 0.95, res.ConfidenceScores["Asymmetry"])
		assert.Equal(t, 0.95, res.ConfidenceScores["Large Diameter"])
		assert.Equal(t, []string{"Dermatologist examination recommended"}, res.Recommendations)
	})

	t.Run("centred lesion", func(t *testing.T) {
		lesion := painted(func(x, y int) uint8 {
			if inRect(x, y, 72, 60, 152, 160) {
				return 255
			}
			return 0
		})
		res, err := a.Analyze(context.Background(), lesion, "skin")
		require.NoError(t, err)

		assert.NotContains(t, res.Conditions, "Asymmetric lesion detected (ABCDE: A)")
		assert.Contains(t, res.Conditions, "Large diameter lesion (ABCDE: D)")
		assert.NotContains(t, res.Conditions, "Irregular borders detected (ABCDE: B)")
		assert.NotContains(t, res.Conditions, "Multiple colors detected (ABCDE: C)")
	})
}

func TestAnalyze_SyntheticLines(t *testing.T) {
	grid := painted(func(x, y int) uint8 {
		if x >= 12 && x < 212 && y >= 20 && y < 212 && (y-20)%24 < 4 {
			return 255
		}
		return 0
	})
	res, err := NewAnalyzer(defaults()).Analyze(context.Background(), grid, "xray")
	require.NoError(t, err)

	assert.Contains(t, res.Conditions, "Potential fracture lines detected")
	assert.Contains(t, res.Conditions, "Possible foreign object or metal implant detected")
	assert.Equal(t, []string{"Orthopedic consultation recommended"}, res.Recommendations)
}

func TestAnalyze_MRIAsymmetry(t *testing.T) {
	half := painted(func(x, y int) uint8 {
		if x < processedSize/2 {
			return 200
		}
		return 0
	})
	res, err := NewAnalyzer(defaults()).Analyze(context.Background(), half, "mri")
	require.NoError(t, err)

	require.NotEmpty(t, res.Conditions)
	assert.Equal(t, "Brain asymmetry detected - possible mass effect", res.Conditions[0])
	assert.Equal(t, 0.95, res.ConfidenceScores["Asymmetry"])
}
