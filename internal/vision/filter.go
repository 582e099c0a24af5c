package vision

import "math"

// gaussian5 is the fixed binomial kernel used for a 5 tap blur when no
// sigma is given.
var gaussian5 = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// GaussianBlur5 applies a separable 5x5 Gaussian with reflected borders.
func GaussianBlur5(src *Gray) *Gray {
	tmp := NewFloat(src.Rows, src.Cols)
	for y := 0; y < src.Rows; y++ {
		for x := 0; x < src.Cols; x++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += gaussian5[k+2] * float64(src.At(y, reflect101(x+k, src.Cols)))
			}
			tmp.Pix[y*src.Cols+x] = s
		}
	}

	out := NewGray(src.Rows, src.Cols)
	for y := 0; y < src.Rows; y++ {
		for x := 0; x < src.Cols; x++ {
			var s float64
			for k := -2; k <= 2; k++ {
				s += gaussian5[k+2] * tmp.At(reflect101(y+k, src.Rows), x)
			}
			out.Set(y, x, saturateRound(s))
		}
	}
	return out
}

// sobel3 builds the 3x3 kernel as the outer product of per axis taps,
// the difference tap on every axis with a derivative order of one. border
// maps out of range indices back into the image.
func sobel3(src *Gray, dx, dy int, border func(i, n int) int) *Float {
	smooth := [3]float64{1, 2, 1}
	diff := [3]float64{-1, 0, 1}

	kx, ky := smooth, smooth
	if dx == 1 {
		kx = diff
	}
	if dy == 1 {
		ky = diff
	}

	out := NewFloat(src.Rows, src.Cols)
	for y := 0; y < src.Rows; y++ {
		for x := 0; x < src.Cols; x++ {
			var s float64
			for j := -1; j <= 1; j++ {
				sy := border(y+j, src.Rows)
				for i := -1; i <= 1; i++ {
					s += ky[j+1] * kx[i+1] * float64(src.At(sy, border(x+i, src.Cols)))
				}
			}
			out.Pix[y*src.Cols+x] = s
		}
	}
	return out
}

// SobelAbs returns |d^(dx+dy) src / dx dy| saturated to 8 bits, with
// reflected borders.
func SobelAbs(src *Gray, dx, dy int) *Gray {
	g := sobel3(src, dx, dy, reflect101)
	out := NewGray(src.Rows, src.Cols)
	for i, v := range g.Pix {
		out.Pix[i] = saturate(math.Abs(v))
	}
	return out
}
