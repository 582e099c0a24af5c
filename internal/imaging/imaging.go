// Package imaging decodes uploaded scans into matrices for the vision
// kernels. Any format registered with image.Decode is accepted and EXIF
// orientation is applied before analysis.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/agenthands/medscan/internal/vision"
	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("invalid image format")

// ErrImageTooLarge is an ErrInvalidImage for images whose declared size
// exceeds the pixel limit. Nothing is decoded in that case.
var ErrImageTooLarge = fmt.Errorf("%w: image too large", ErrInvalidImage)

// DefaultMaxPixels is the limit Decode applies.
const DefaultMaxPixels = 50_000_000

// Decoded is an upload converted to 8-bit RGBA with its orientation fixed.
type Decoded struct {
	Image       *image.RGBA
	Format      string
	Orientation int
}

func (d *Decoded) Width() int  { return d.Image.Bounds().Dx() }
func (d *Decoded) Height() int { return d.Image.Bounds().Dy() }

// Decode fails with ErrInvalidImage for empty or undecodable data.
func Decode(data []byte) (*Decoded, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit reads the header first and refuses images with more than
// maxPixels pixels. A non-positive maxPixels disables the check.
func DecodeLimit(data []byte, maxPixels int) (*Decoded, error) {
	if err := CheckLimit(data, maxPixels); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrInvalidImage
	}

	orientation := Orientation(data)
	return &Decoded{
		Image:       ApplyOrientation(toRGBA(img), orientation),
		Format:      format,
		Orientation: orientation,
	}, nil
}

// CheckLimit reads only the image header and fails with ErrImageTooLarge
// when it declares more than maxPixels pixels.
func CheckLimit(data []byte, maxPixels int) error {
	if len(data) == 0 {
		return ErrInvalidImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Orientation reads the EXIF orientation tag, 1 when absent or unreadable.
func Orientation(data []byte) int {
	raw, err := exif.SearchAndExtractExif(data)
	if err != nil || raw == nil {
		return 1
	}
	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return 1
	}
	for _, e := range entries {
		if e.TagName != "Orientation" {
			continue
		}
		if v, ok := e.Value.([]uint16); ok && len(v) > 0 && v[0] >= 1 && v[0] <= 8 {
			return int(v[0])
		}
	}
	return 1
}

// ApplyOrientation rotates and mirrors so the image displays upright.
func ApplyOrientation(src *image.RGBA, orientation int) *image.RGBA {
	if orientation <= 1 || orientation > 8 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	// transposing orientations swap the axes
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			}
			dst.SetRGBA(dx, dy, src.RGBAAt(x, y))
		}
	}
	return dst
}

// Gray converts with the ITU-R 601 luma weights in 14-bit fixed point.
func (d *Decoded) Gray() *vision.Gray {
	w, h := d.Width(), d.Height()
	out := vision.NewGray(h, w)
	pix := d.Image.Pix
	stride := d.Image.Stride
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
			out.Pix[y*w+x] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
		}
	}
	return out
}

// Channels splits the image into blue, green and red planes.
func (d *Decoded) Channels() (b, g, r *vision.Gray) {
	w, h := d.Width(), d.Height()
	b, g, r = vision.NewGray(h, w), vision.NewGray(h, w), vision.NewGray(h, w)
	pix := d.Image.Pix
	stride := d.Image.Stride
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			r.Pix[y*w+x] = pix[i]
			g.Pix[y*w+x] = pix[i+1]
			b.Pix[y*w+x] = pix[i+2]
		}
	}
	return b, g, r
}

// PNG re-encodes the upright image for external classifiers.
func (d *Decoded) PNG() ([]byte, error) {
	return EncodePNG(d.Image)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// GrayRGB expands a single channel matrix to an RGB image, the form image
// classifiers expect.
func GrayRGB(m *vision.Gray) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Cols, m.Rows))
	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			v := m.At(y, x)
			out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
