package vision

import (
	"image"
	"math"
	"sort"
)

// Contour is the closed outer boundary of a connected component, one
// point per boundary pixel.
type Contour []image.Point

// neighbors in counterclockwise order starting east, as (dx, dy) with y
// growing downwards.
var neighbors = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// FindExternalContours returns the outer borders of every 8-connected
// non-zero component that is not nested inside a hole of another one.
// Contours are ordered by the raster position of their top-left pixel.
func FindExternalContours(src *Gray) []Contour {
	rows, cols := src.Rows, src.Cols
	if rows == 0 || cols == 0 {
		return nil
	}
	fg := func(x, y int) bool {
		return x >= 0 && x < cols && y >= 0 && y < rows && src.Pix[y*cols+x] != 0
	}

	outside := outerBackground(src)

	label := make([]int, rows*cols)
	var contours []Contour
	next := 0
	queue := make([]int, 0, 256)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := y*cols + x
			if src.Pix[i] == 0 || label[i] != 0 {
				continue
			}
			next++
			label[i] = next
			queue = append(queue[:0], i)
			external := false

			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				px, py := p%cols, p/cols
				if px == 0 || py == 0 || px == cols-1 || py == rows-1 {
					external = true
				}
				for d, n := range neighbors {
					nx, ny := px+n.X, py+n.Y
					if nx < 0 || nx >= cols || ny < 0 || ny >= rows {
						continue
					}
					j := ny*cols + nx
					if src.Pix[j] == 0 {
						// only 4-neighbors connect to the background
						if d%2 == 0 && outside[j] {
							external = true
						}
						continue
					}
					if label[j] == 0 {
						label[j] = next
						queue = append(queue, j)
					}
				}
			}

			if external {
				contours = append(contours, traceBorder(x, y, fg))
			}
		}
	}
	return contours
}

// outerBackground marks zero pixels 4-connected to the image border.
func outerBackground(src *Gray) []bool {
	rows, cols := src.Rows, src.Cols
	seen := make([]bool, rows*cols)
	queue := make([]int, 0, 2*(rows+cols))

	push := func(x, y int) {
		i := y*cols + x
		if src.Pix[i] == 0 && !seen[i] {
			seen[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < cols; x++ {
		push(x, 0)
		push(x, rows-1)
	}
	for y := 0; y < rows; y++ {
		push(0, y)
		push(cols-1, y)
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		px, py := p%cols, p/cols
		for d := 0; d < 8; d += 2 {
			nx, ny := px+neighbors[d].X, py+neighbors[d].Y
			if nx >= 0 && nx < cols && ny >= 0 && ny < rows {
				push(nx, ny)
			}
		}
	}
	return seen
}

// traceBorder follows the outer border clockwise from the top-left pixel
// of a component, whose west neighbor is background.
func traceBorder(x0, y0 int, fg func(x, y int) bool) Contour {
	start := image.Pt(x0, y0)

	// clockwise from west for the first foreground neighbor
	first := -1
	for k := 0; k < 8; k++ {
		d := (4 - k + 8) % 8
		n := start.Add(neighbors[d])
		if fg(n.X, n.Y) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}

	p1 := start.Add(neighbors[first])
	prev := p1
	cur := start
	contour := Contour{}

	for {
		// resume counterclockwise right after the pixel we came from
		back := direction(cur, prev)
		var nxt image.Point
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := cur.Add(neighbors[d])
			if fg(n.X, n.Y) {
				nxt = n
				break
			}
		}

		contour = append(contour, cur)
		if nxt == start && cur == p1 {
			break
		}
		prev, cur = cur, nxt
	}
	return contour
}

func direction(from, to image.Point) int {
	delta := to.Sub(from)
	for d, n := range neighbors {
		if n == delta {
			return d
		}
	}
	return 0
}

// Moments holds the spatial moments up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// ContourMoments integrates over the polygon with Green's theorem. The
// orientation is normalized so M00 is never negative.
func ContourMoments(c Contour) Moments {
	var a00, a10, a01 float64
	n := len(c)
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		xi, yi := float64(p.X), float64(p.Y)
		xj, yj := float64(q.X), float64(q.Y)
		cross := xi*yj - xj*yi
		a00 += cross
		a10 += cross * (xi + xj)
		a01 += cross * (yi + yj)
	}
	m := Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}

// ContourArea is the polygon area enclosed by the boundary pixel centers.
func ContourArea(c Contour) float64 {
	return ContourMoments(c).M00
}

// LargestContour returns the index of the contour with the greatest area,
// the first one on ties, or -1 for none.
func LargestContour(cs []Contour) int {
	best, bestArea := -1, math.Inf(-1)
	for i, c := range cs {
		if a := ContourArea(c); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// FillContour rasterizes the polygon plus its boundary pixels into a
// rows by cols mask of 255s.
func FillContour(rows, cols int, c Contour) *Gray {
	out := NewGray(rows, cols)
	n := len(c)
	xs := make([]float64, 0, 16)

	for y := 0; y < rows; y++ {
		xs = xs[:0]
		fy := float64(y)
		for i := 0; i < n; i++ {
			p, q := c[i], c[(i+1)%n]
			y1, y2 := float64(p.Y), float64(q.Y)
			if y1 == y2 {
				continue
			}
			lo, hi := math.Min(y1, y2), math.Max(y1, y2)
			if fy < lo || fy >= hi {
				continue
			}
			x := float64(p.X) + (fy-y1)*float64(q.X-p.X)/(y2-y1)
			xs = append(xs, x)
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			from := max(int(math.Ceil(xs[i])), 0)
			to := min(int(math.Floor(xs[i+1])), cols-1)
			for x := from; x <= to; x++ {
				out.Set(y, x, 255)
			}
		}
	}

	for _, p := range c {
		if p.X >= 0 && p.X < cols && p.Y >= 0 && p.Y < rows {
			out.Set(p.Y, p.X, 255)
		}
	}
	return out
}
