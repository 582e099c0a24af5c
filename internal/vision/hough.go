package vision

import (
	"image"
	"math"
)

// Segment is a detected line segment between two pixel positions.
type Segment struct {
	P0, P1 image.Point
}

// HoughParams configures the progressive probabilistic Hough transform.
type HoughParams struct {
	Rho           float64
	Theta         float64
	Threshold     int
	MinLineLength int
	MaxLineGap    int
}

const houghShift = 16

// HoughLinesP finds line segments among the non-zero pixels of src.
// Points are visited in raster order rather than randomly so the result
// is reproducible for a given image.
func HoughLinesP(src *Gray, p HoughParams) []Segment {
	rows, cols := src.Rows, src.Cols
	if rows == 0 || cols == 0 || p.Rho <= 0 || p.Theta <= 0 {
		return nil
	}

	numAngle := int(math.Round(math.Pi / p.Theta))
	numRho := int(math.Round(float64((cols+rows)*2+1) / p.Rho))
	irho := 1 / p.Rho

	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		ang := float64(n) * p.Theta
		cosT[n] = math.Cos(ang) * irho
		sinT[n] = math.Sin(ang) * irho
	}

	accum := make([]int, numAngle*numRho)
	mask := make([]bool, rows*cols)
	var points []image.Point
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if src.Pix[y*cols+x] != 0 {
				mask[y*cols+x] = true
				points = append(points, image.Pt(x, y))
			}
		}
	}

	vote := func(pt image.Point, delta int) (int, int) {
		best, bestN := p.Threshold-1, -1
		for n := 0; n < numAngle; n++ {
			r := int(math.Round(float64(pt.X)*cosT[n]+float64(pt.Y)*sinT[n])) + (numRho-1)/2
			if r < 0 || r >= numRho {
				continue
			}
			idx := n*numRho + r
			accum[idx] += delta
			if accum[idx] > best {
				best, bestN = accum[idx], n
			}
		}
		return best, bestN
	}

	var lines []Segment
	for _, pt := range points {
		if !mask[pt.Y*cols+pt.X] {
			continue
		}

		maxVal, maxN := vote(pt, 1)
		if maxVal < p.Threshold || maxN < 0 {
			continue
		}

		// walk along the line in both directions from pt
		a := -sinT[maxN] * p.Rho
		b := cosT[maxN] * p.Rho
		x0, y0 := pt.X, pt.Y
		var dx0, dy0 int
		xflag := math.Abs(a) > math.Abs(b)
		if xflag {
			dx0 = 1
			if a <= 0 {
				dx0 = -1
			}
			dy0 = int(math.Round(b * float64(int(1)<<houghShift) / math.Abs(a)))
			y0 = (y0 << houghShift) + (1 << (houghShift - 1))
		} else {
			dy0 = 1
			if b <= 0 {
				dy0 = -1
			}
			dx0 = int(math.Round(a * float64(int(1)<<houghShift) / math.Abs(b)))
			x0 = (x0 << houghShift) + (1 << (houghShift - 1))
		}

		at := func(x, y int) (int, int) {
			if xflag {
				return x, y >> houghShift
			}
			return x >> houghShift, y
		}

		var ends [2]image.Point
		for k := 0; k < 2; k++ {
			gap := 0
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				j, i := at(x, y)
				if j < 0 || j >= cols || i < 0 || i >= rows {
					break
				}
				if mask[i*cols+j] {
					gap = 0
					ends[k] = image.Pt(j, i)
				} else if gap++; gap > p.MaxLineGap {
					break
				}
			}
		}

		good := abs(ends[1].X-ends[0].X) >= p.MinLineLength || abs(ends[1].Y-ends[0].Y) >= p.MinLineLength

		for k := 0; k < 2; k++ {
			x, y, dx, dy := x0, y0, dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for ; ; x, y = x+dx, y+dy {
				j, i := at(x, y)
				if j < 0 || j >= cols || i < 0 || i >= rows {
					break
				}
				if mask[i*cols+j] {
					if good {
						vote(image.Pt(j, i), -1)
					}
					mask[i*cols+j] = false
				}
				if i == ends[k].Y && j == ends[k].X {
					break
				}
			}
		}

		if good {
			lines = append(lines, Segment{P0: ends[0], P1: ends[1]})
		}
	}
	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
