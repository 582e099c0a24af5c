package scans

import (
	"fmt"
	"math"
	"strings"

	"github.com/agenthands/medscan/internal/core/common"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/agenthands/medscan/internal/vision"
)

const processedSize = 224

// scan carries one image through preprocessing and the rule set.
type scan struct {
	img *imaging.Decoded
	// p is the gray, resized image scaled to [0,1]; p8 is the same image
	// mapped back to 8 bits.
	p        *vision.Float
	p8       *vision.Gray
	findings model.FindingList
}

func (s *scan) add(condition, key string, confidence float64) {
	s.findings = append(s.findings, model.Finding{
		Condition:  condition,
		ScoreKey:   key,
		Confidence: common.Clamp01(confidence),
	})
}

func preprocess(img *imaging.Decoded, k *kind) *scan {
	gray := img.Gray()
	if k.clahe {
		gray = vision.CLAHE(gray, 2.0, 8, 8)
	}
	p := vision.Resize(gray, processedSize, processedSize).Float()
	return &scan{img: img, p: p, p8: p.Uint8()}
}

func capped(v float64) float64 { return math.Min(0.95, v) }

func mriRules(s *scan) {
	p := s.p
	h, w := p.Rows, p.Cols

	edges := vision.Canny(s.p8, 30, 100)
	contours := vision.FindExternalContours(edges)

	left := p.Region(0, h, 0, w/2)
	right := p.Region(0, h, w/2, w).FlipLR()
	if diff := left.MeanAbsDiff(right); diff > 0.15 {
		s.add("Brain asymmetry detected - possible mass effect", "Asymmetry", capped(diff*5))
	}

	if p.CountAbove(p.Mean()+2*p.Std()) > 100 {
		s.add("Hyperintense lesions detected", "Hyperintense Lesions", 0.78)
	}

	large := 0
	for _, c := range contours {
		if vision.ContourArea(c) > 50 {
			large++
		}
	}
	if large > 5 {
		s.add("Multiple lesions detected - requires further evaluation", "Multiple Lesions", 0.82)
	}

	if p.Region(h/3, 2*h/3, w/3, 2*w/3).Mean() < 0.2 {
		s.add("Possible ventricular enlargement", "Ventricular Enlargement", 0.71)
	}
}

func mriRecommend(f model.FindingList) []string {
	switch {
	case len(f) > 2:
		return []string{"Urgent neurologist consultation recommended"}
	case len(f) > 0:
		return []string{"Regular follow-up recommended"}
	default:
		return []string{"Normal MRI findings"}
	}
}

func mriBlend(s *scan, preds []model.Prediction, threshold float64) {
	for _, pr := range preds {
		if pr.Score > threshold {
			s.add("AI Detection: "+pr.Label, "AI_"+pr.Label, pr.Score)
		}
	}
}

var fractureHough = vision.HoughParams{
	Rho:           1,
	Theta:         math.Pi / 180,
	Threshold:     50,
	MinLineLength: 30,
	MaxLineGap:    10,
}

func xrayRules(s *scan) {
	p := s.p
	h, w := p.Rows, p.Cols

	blurred := vision.GaussianBlur5(s.p8)
	combined := vision.BitwiseOr(vision.Canny(blurred, 50, 150), vision.SobelAbs(blurred, 1, 1))
	if lines := vision.HoughLinesP(combined, fractureHough); len(lines) > 5 {
		s.add("Potential fracture lines detected", "Fracture Lines", capped(float64(len(lines))*0.1))
	}

	if float64(p.CountAbove(0.7))/float64(len(p.Pix)) < 0.15 {
		s.add("Low bone density detected - possible osteoporosis", "Low Bone Density", 0.73)
	}

	joints := []*vision.Float{
		p.Region(h/4, h/2, w/4, 3*w/4),
		p.Region(h/2, 3*h/4, w/4, 3*w/4),
	}
	for i, region := range joints {
		if region.Std() > 0.25 {
			s.add(fmt.Sprintf("Joint space irregularity detected in region %d", i+1),
				fmt.Sprintf("Joint Issue %d", i+1), 0.68)
		}
	}

	if p.CountAbove(0.95) > 10 {
		s.add("Possible foreign object or metal implant detected", "Foreign Object", 0.85)
	}
}

func xrayRecommend(f model.FindingList) []string {
	switch {
	case anyConditionContains(f, "fracture"):
		return []string{"Orthopedic consultation recommended"}
	case len(f) > 0:
		return []string{"Radiologist review recommended"}
	default:
		return []string{"Normal X-ray findings"}
	}
}

func chestRules(s *scan) {
	p := s.p
	h, w := p.Rows, p.Cols

	left := p.Region(h/4, 3*h/4, w/8, w/2-w/8).Mean()
	right := p.Region(h/4, 3*h/4, w/2+w/8, 7*w/8).Mean()
	if d := math.Abs(left - right); d > 0.2 {
		s.add("Significant lung field asymmetry", "Lung Asymmetry", capped(d*4))
	}

	if p.CountAbove(p.Mean()+2*p.Std()) > 200 {
		s.add("Pulmonary consolidation detected", "Consolidation", 0.82)
	}

	heartWidth := 0
	for _, v := range p.Region(h/3, 2*h/3, 2*w/5, 3*w/5).ColumnMax() {
		if v > 0.6 {
			heartWidth++
		}
	}
	if ratio := float64(heartWidth) / float64(w); ratio > 0.5 {
		s.add("Cardiomegaly - enlarged heart", "Cardiomegaly", capped(ratio*1.5))
	}

	if p.Region(2*h/3, h, 0, w).Mean() > 0.7 {
		s.add("Possible pleural effusion", "Pleural Effusion", 0.74)
	}

	if p.CountBelow(0.1) > 500 {
		s.add("Possible pneumothorax", "Pneumothorax", 0.69)
	}
}

func chestRecommend(f model.FindingList) []string {
	switch {
	case anyConditionContains(f, "pneumonia"):
		return []string{"Urgent pulmonologist consultation"}
	case len(f) > 0:
		return []string{"Pulmonologist consultation recommended"}
	default:
		return []string{"Regular chest monitoring"}
	}
}

func chestBlend(s *scan, preds []model.Prediction, threshold float64) {
	for _, pr := range preds {
		if pr.Score <= threshold {
			continue
		}
		label := strings.ToLower(pr.Label)
		switch {
		case strings.Contains(label, "pneumonia"):
			s.add("Pneumonia detected - "+pr.Label, "Pneumonia", pr.Score)
		case !strings.Contains(label, "normal"):
			s.add("Abnormality detected - "+pr.Label, pr.Label, pr.Score)
		}
	}
}

func kidneyRules(s *scan) {
	if len(vision.FindExternalContours(s.p8)) > 5 {
		s.add("Multiple cystic lesions detected", "Cysts", 0.73)
	}
	if s.p.CountAbove(0.3) < 5000 {
		s.add("Possible kidney atrophy", "Atrophy", 0.69)
	}
}

func heartRules(s *scan) {
	region := s.p.Region(80, 144, 80, 144)
	if region.CountAbove(0.4) > 2000 {
		s.add("Cardiomegaly detected", "Cardiomegaly", 0.81)
	}
	if region.Region(20, 44, 20, 44).Mean() > 0.7 {
		s.add("Possible ventricular hypertrophy", "Hypertrophy", 0.74)
	}
}

var (
	malignantTerms = []string{"melanoma", "carcinoma", "malignant"}
	highRiskTerms  = []string{"melanoma", "carcinoma", "malignant", "high risk"}
)

func skinBlend(s *scan, preds []model.Prediction, threshold float64) {
	for _, pr := range preds {
		if pr.Score <= threshold {
			continue
		}
		s.add("Classified as: "+pr.Label, pr.Label, pr.Score)
		label := strings.ToLower(pr.Label)
		for _, t := range malignantTerms {
			if strings.Contains(label, t) {
				s.add("HIGH RISK: Malignant lesion detected", "Malignancy Risk", pr.Score)
				break
			}
		}
	}
}

func skinRules(s *scan) {
	p := s.p

	binary, _ := vision.OtsuBinary(s.p8)
	contours := vision.FindExternalContours(binary)
	largest := vision.LargestContour(contours)

	// A: asymmetry of the filled lesion around its centroid column
	if largest >= 0 {
		if a, ok := asymmetry(contours[largest], p.Rows, p.Cols); ok && a > 0.3 {
			s.add("Asymmetric lesion detected (ABCDE: A)", "Asymmetry", capped(a*2))
		}
	}

	// B: edge density relative to the darker area
	edges := vision.Canny(s.p8, 50, 150)
	border := float64(edges.CountNonZero()) / float64(p.CountBelow(0.8)+1)
	if border > 0.1 {
		s.add("Irregular borders detected (ABCDE: B)", "Border Irregularity", capped(border*8))
	}

	// C: spread of the per-channel standard deviations
	b, g, r := s.img.Channels()
	stds := &vision.Float{Rows: 1, Cols: 3, Pix: []float64{
		b.Float().Std() * 255, g.Float().Std() * 255, r.Float().Std() * 255,
	}}
	if cv := stds.Var(); cv > 500 {
		s.add("Multiple colors detected (ABCDE: C)", "Color Variation", capped(cv/1000))
	}

	// D: diameter of a circle with the lesion's area
	if largest >= 0 {
		d := 2 * math.Sqrt(vision.ContourArea(contours[largest])/math.Pi)
		if d > 50 {
			s.add("Large diameter lesion (ABCDE: D)", "Large Diameter", capped(d/100))
		}
	}

	if p.Mean() < 0.3 {
		s.add("Very dark pigmentation - monitor closely", "Dark Pigmentation", 0.75)
	}

	if v := p.Var(); v > 0.05 {
		s.add("Heterogeneous texture detected", "Texture Heterogeneity", capped(v*15))
	}
}

// asymmetry compares the left and mirrored right halves of the filled
// contour split at the centroid column.
func asymmetry(c vision.Contour, rows, cols int) (float64, bool) {
	m := vision.ContourMoments(c)
	if m.M00 == 0 {
		return 0, false
	}
	cx := int(m.M10 / m.M00)

	mask := vision.FillContour(rows, cols, c)
	width := min(cx, cols-cx)

	var diff, total float64
	for y := 0; y < rows; y++ {
		row := mask.Pix[y*cols : (y+1)*cols]
		for x := 0; x < width; x++ {
			diff += math.Abs(float64(row[x]) - float64(row[cols-1-x]))
		}
		for _, v := range row {
			total += float64(v)
		}
	}
	if total == 0 {
		return 0, false
	}
	return diff / total, true
}

func skinRecommend(f model.FindingList) []string {
	switch {
	case anyConditionContains(f, highRiskTerms...):
		return []string{"URGENT: Immediate dermatologist consultation required"}
	case len(f) > 0:
		return []string{"Dermatologist examination recommended"}
	default:
		return []string{"Regular skin self-examination"}
	}
}

func liverRules(s *scan) {
	p := s.p
	if p.Mean() > 0.6 {
		s.add("Increased liver density - possible fatty liver", "Fatty Liver", 0.77)
	}
	if p.Var() > 0.05 {
		s.add("Heterogeneous liver texture", "Texture Abnormality", 0.71)
	}
	if len(vision.FindExternalContours(s.p8)) > 8 {
		s.add("Multiple nodular lesions", "Nodules", 0.69)
	}
}
