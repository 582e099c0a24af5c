package vision

// OtsuThreshold returns the threshold maximizing between-class variance.
func OtsuThreshold(src *Gray) uint8 {
	var hist [histSize]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := float64(len(src.Pix))
	if total == 0 {
		return 0
	}

	var mu float64
	for i, h := range hist {
		mu += float64(i) * float64(h) / total
	}

	var (
		q1, s1   float64
		maxSigma float64
		best     int
	)
	for i := 0; i < histSize; i++ {
		p := float64(hist[i]) / total
		q1 += p
		s1 += float64(i) * p
		q2 := 1 - q1
		if q1 < 1e-7 || q2 < 1e-7 {
			continue
		}
		mu1 := s1 / q1
		mu2 := (mu - s1) / q2
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return uint8(best)
}

// Threshold sets pixels above t to maxVal and the rest to zero.
func Threshold(src *Gray, t uint8, maxVal uint8) *Gray {
	out := NewGray(src.Rows, src.Cols)
	for i, v := range src.Pix {
		if v > t {
			out.Pix[i] = maxVal
		}
	}
	return out
}

// OtsuBinary thresholds src at its Otsu level.
func OtsuBinary(src *Gray) (*Gray, uint8) {
	t := OtsuThreshold(src)
	return Threshold(src, t, 255), t
}
