package vision

// resizeBits is the fixed-point precision of the interpolation weights.
const resizeBits = 11

// Resize scales with OpenCV's INTER_LINEAR: every destination pixel samples
// the 2x2 source neighbourhood around ((d+0.5)*scale-0.5) whatever the
// ratio, so stripes narrower than the scale factor survive a downscale.
// An exact halving averages 2x2 blocks, as OpenCV does.
func Resize(src *Gray, cols, rows int) *Gray {
	if src.Cols == 2*cols && src.Rows == 2*rows {
		return halve(src)
	}

	xs, xw := linearTaps(src.Cols, cols)
	ys, yw := linearTaps(src.Rows, rows)

	const one = 1 << resizeBits
	out := NewGray(rows, cols)
	hrow := func(sy int) []int64 {
		row := make([]int64, cols)
		base := sy * src.Cols
		for dx := 0; dx < cols; dx++ {
			sx := xs[dx]
			nx := min(sx+1, src.Cols-1)
			row[dx] = int64(src.Pix[base+sx])*int64(one-xw[dx]) + int64(src.Pix[base+nx])*int64(xw[dx])
		}
		return row
	}

	const round = 1 << (2*resizeBits - 1)
	for dy := 0; dy < rows; dy++ {
		sy := ys[dy]
		r0 := hrow(sy)
		r1 := hrow(min(sy+1, src.Rows-1))
		b1 := int64(yw[dy])
		b0 := int64(one) - b1
		for dx := 0; dx < cols; dx++ {
			v := (b0*r0[dx] + b1*r1[dx] + round) >> (2 * resizeBits)
			out.Pix[dy*cols+dx] = uint8(min(v, 255))
		}
	}
	return out
}

// linearTaps returns, per destination index, the left source index and the
// fixed-point weight of its right neighbour. Coordinates outside the source
// clamp to the edge pixel with zero weight.
func linearTaps(srcN, dstN int) ([]int, []int) {
	scale := float64(srcN) / float64(dstN)
	idx := make([]int, dstN)
	w := make([]int, dstN)
	for d := 0; d < dstN; d++ {
		f := (float64(d)+0.5)*scale - 0.5
		s := int(f)
		if f < 0 {
			s = 0
			f = 0
		}
		frac := f - float64(s)
		if s >= srcN-1 {
			s = srcN - 1
			frac = 0
		}
		left := int(float64(1<<resizeBits)*(1-frac) + 0.5)
		idx[d] = s
		w[d] = 1<<resizeBits - left
	}
	return idx, w
}

// halve is INTER_AREA for an exact factor of two.
func halve(src *Gray) *Gray {
	out := NewGray(src.Rows/2, src.Cols/2)
	for y := 0; y < out.Rows; y++ {
		top := 2 * y * src.Cols
		bottom := top + src.Cols
		for x := 0; x < out.Cols; x++ {
			s := int(src.Pix[top+2*x]) + int(src.Pix[top+2*x+1]) +
				int(src.Pix[bottom+2*x]) + int(src.Pix[bottom+2*x+1])
			out.Pix[y*out.Cols+x] = uint8((s + 2) >> 2)
		}
	}
	return out
}
