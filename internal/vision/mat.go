// Package vision implements the small set of image kernels the scan
// analyzer needs: contrast equalization, resizing, blurring, gradients,
// edge detection, thresholding, contour extraction and line detection.
//
// Matrices are single channel and row-major. Kernels follow the OpenCV
// definitions closely enough that the hand-tuned scan thresholds keep
// their meaning.
package vision

import (
	"image"
	"math"
)

// Gray is an 8-bit single channel matrix.
type Gray struct {
	Rows, Cols int
	Pix        []uint8
}

func NewGray(rows, cols int) *Gray {
	return &Gray{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

func (m *Gray) At(r, c int) uint8 { return m.Pix[r*m.Cols+c] }

func (m *Gray) Set(r, c int, v uint8) { m.Pix[r*m.Cols+c] = v }

func (m *Gray) Clone() *Gray {
	out := NewGray(m.Rows, m.Cols)
	copy(out.Pix, m.Pix)
	return out
}

func (m *Gray) CountNonZero() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Float scales the matrix into [0,1].
func (m *Gray) Float() *Float {
	out := NewFloat(m.Rows, m.Cols)
	for i, v := range m.Pix {
		out.Pix[i] = float64(v) / 255.0
	}
	return out
}

// Image shares the pixel buffer with an image.Gray.
func (m *Gray) Image() *image.Gray {
	return &image.Gray{Pix: m.Pix, Stride: m.Cols, Rect: image.Rect(0, 0, m.Cols, m.Rows)}
}

// GrayFromImage copies an image.Gray into a matrix.
func GrayFromImage(img *image.Gray) *Gray {
	b := img.Bounds()
	out := NewGray(b.Dy(), b.Dx())
	for y := 0; y < out.Rows; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+out.Cols]
		copy(out.Pix[y*out.Cols:], row)
	}
	return out
}

// Float is a float64 single channel matrix, usually normalized to [0,1].
type Float struct {
	Rows, Cols int
	Pix        []float64
}

func NewFloat(rows, cols int) *Float {
	return &Float{Rows: rows, Cols: cols, Pix: make([]float64, rows*cols)}
}

func (f *Float) At(r, c int) float64 { return f.Pix[r*f.Cols+c] }

// Region copies rows [r0,r1) and columns [c0,c1). Bounds are clamped the
// way slice expressions on arrays are.
func (f *Float) Region(r0, r1, c0, c1 int) *Float {
	r0, r1 = clampRange(r0, r1, f.Rows)
	c0, c1 = clampRange(c0, c1, f.Cols)
	out := NewFloat(r1-r0, c1-c0)
	for r := r0; r < r1; r++ {
		copy(out.Pix[(r-r0)*out.Cols:], f.Pix[r*f.Cols+c0:r*f.Cols+c1])
	}
	return out
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// FlipLR mirrors the columns.
func (f *Float) FlipLR() *Float {
	out := NewFloat(f.Rows, f.Cols)
	for r := 0; r < f.Rows; r++ {
		for c := 0; c < f.Cols; c++ {
			out.Pix[r*f.Cols+c] = f.Pix[r*f.Cols+f.Cols-1-c]
		}
	}
	return out
}

func (f *Float) Mean() float64 {
	if len(f.Pix) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range f.Pix {
		sum += v
	}
	return sum / float64(len(f.Pix))
}

// Var is the population variance.
func (f *Float) Var() float64 {
	if len(f.Pix) == 0 {
		return math.NaN()
	}
	mean := f.Mean()
	var sum float64
	for _, v := range f.Pix {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(f.Pix))
}

func (f *Float) Std() float64 { return math.Sqrt(f.Var()) }

func (f *Float) CountAbove(t float64) int {
	n := 0
	for _, v := range f.Pix {
		if v > t {
			n++
		}
	}
	return n
}

func (f *Float) CountBelow(t float64) int {
	n := 0
	for _, v := range f.Pix {
		if v < t {
			n++
		}
	}
	return n
}

// MeanAbsDiff is mean(|f-g|) over matrices of equal shape.
func (f *Float) MeanAbsDiff(g *Float) float64 {
	n := min(len(f.Pix), len(g.Pix))
	if n == 0 {
		return math.NaN()
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(f.Pix[i] - g.Pix[i])
	}
	return sum / float64(n)
}

// ColumnMax returns the maximum of every column.
func (f *Float) ColumnMax() []float64 {
	out := make([]float64, f.Cols)
	for c := 0; c < f.Cols; c++ {
		m := math.Inf(-1)
		for r := 0; r < f.Rows; r++ {
			m = math.Max(m, f.Pix[r*f.Cols+c])
		}
		out[c] = m
	}
	return out
}

// Uint8 maps [0,1] back to 0..255, truncating like an integer cast.
func (f *Float) Uint8() *Gray {
	out := NewGray(f.Rows, f.Cols)
	for i, v := range f.Pix {
		out.Pix[i] = saturate(math.Floor(v*255.0 + 1e-9))
	}
	return out
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func saturateRound(v float64) uint8 {
	return saturate(math.Round(v))
}

// reflect101 maps an out of range index to the mirrored one without
// repeating the edge pixel (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate clamps an out of range index to the edge (aaaaaa|abcdefgh|hhhhhhh).
func replicate(i, n int) int {
	return max(0, min(i, n-1))
}

// BitwiseOr combines two masks of equal shape.
func BitwiseOr(a, b *Gray) *Gray {
	out := NewGray(a.Rows, a.Cols)
	for i := range out.Pix {
		out.Pix[i] = a.Pix[i] | b.Pix[i]
	}
	return out
}
