package vision

import "math"

const (
	edgeNone   uint8 = 0
	edgeWeak   uint8 = 1
	edgeStrong uint8 = 2
)

// Canny detects edges with 3x3 Sobel gradients over replicated borders, L1
// magnitude, non-maximum suppression and hysteresis between low and high.
// Edge pixels are 255.
func Canny(src *Gray, low, high float64) *Gray {
	if low > high {
		low, high = high, low
	}
	rows, cols := src.Rows, src.Cols
	gx := sobel3(src, 1, 0, replicate)
	gy := sobel3(src, 0, 1, replicate)

	mag := NewFloat(rows, cols)
	for i := range mag.Pix {
		mag.Pix[i] = math.Abs(gx.Pix[i]) + math.Abs(gy.Pix[i])
	}

	magAt := func(r, c int) float64 {
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return 0
		}
		return mag.Pix[r*cols+c]
	}

	// tan(22.5) and tan(67.5) split the gradient into four directions
	const tan22 = 0.4142135623730951
	const tan67 = 2.414213562373095

	state := make([]uint8, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m := mag.Pix[r*cols+c]
			if m <= low {
				continue
			}
			x, y := gx.Pix[r*cols+c], gy.Pix[r*cols+c]
			ax, ay := math.Abs(x), math.Abs(y)

			var isMax bool
			switch {
			case ay <= ax*tan22:
				isMax = m > magAt(r, c-1) && m >= magAt(r, c+1)
			case ay >= ax*tan67:
				isMax = m > magAt(r-1, c) && m >= magAt(r+1, c)
			// diagonals are strict on both sides
			case (x > 0) == (y > 0):
				isMax = m > magAt(r-1, c-1) && m > magAt(r+1, c+1)
			default:
				isMax = m > magAt(r-1, c+1) && m > magAt(r+1, c-1)
			}
			if !isMax {
				continue
			}
			if m > high {
				state[r*cols+c] = edgeStrong
			} else {
				state[r*cols+c] = edgeWeak
			}
		}
	}

	out := NewGray(rows, cols)
	stack := make([]int, 0, 64)
	for i, s := range state {
		if s == edgeStrong && out.Pix[i] == 0 {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pr, pc := p/cols, p%cols
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := pr+dr, pc+dc
					if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
						continue
					}
					n := nr*cols + nc
					if state[n] != edgeNone && out.Pix[n] == 0 {
						out.Pix[n] = 255
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return out
}
