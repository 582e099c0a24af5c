package vision

import "math"

const histSize = 256

// CLAHE applies contrast limited adaptive histogram equalization over a
// tilesX by tilesY grid, interpolating bilinearly between tile mappings.
func CLAHE(src *Gray, clipLimit float64, tilesX, tilesY int) *Gray {
	if src.Rows == 0 || src.Cols == 0 {
		return src.Clone()
	}

	// the image is virtually padded so every tile has the same size
	tileW := (src.Cols + tilesX - 1) / tilesX
	tileH := (src.Rows + tilesY - 1) / tilesY
	tileArea := tileW * tileH

	clip := 0
	if clipLimit > 0 {
		clip = max(int(clipLimit*float64(tileArea)/histSize), 1)
	}

	luts := make([][histSize]uint8, tilesX*tilesY)
	lutScale := float64(histSize-1) / float64(tileArea)

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [histSize]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				sy := reflect101(y, src.Rows)
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[src.At(sy, reflect101(x, src.Cols))]++
				}
			}

			if clip > 0 {
				clipHistogram(&hist, clip)
			}

			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = saturateRound(float64(sum) * lutScale)
			}
		}
	}

	out := NewGray(src.Rows, src.Cols)
	invW := 1.0 / float64(tileW)
	invH := 1.0 / float64(tileH)

	for y := 0; y < src.Rows; y++ {
		tyf := float64(y)*invH - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := min(ty1+1, tilesY-1)
		ty1 = max(ty1, 0)

		for x := 0; x < src.Cols; x++ {
			txf := float64(x)*invW - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := min(tx1+1, tilesX-1)
			tx1 = max(tx1, 0)

			v := src.At(y, x)
			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bottom := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			out.Set(y, x, saturateRound(top*(1-ya)+bottom*ya))
		}
	}
	return out
}

// clipHistogram caps every bin and spreads the excess evenly, handing the
// remainder out one count per step.
func clipHistogram(hist *[histSize]int, clip int) {
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}

	batch := excess / histSize
	residual := excess - batch*histSize
	for i := range hist {
		hist[i] += batch
	}

	if residual > 0 {
		step := max(histSize/residual, 1)
		for i := 0; i < histSize && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}
