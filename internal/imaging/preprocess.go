package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
)

// Mode selects the preprocessing profile for recognition.
type Mode string

const (
	// Printed optimizes for payload size: printed text tolerates lossy
	// compression, so pages are downscaled and re-encoded as JPEG.
	Printed Mode = "printed"

	// Handwriting optimizes for stroke fidelity: greyscale, contrast
	// normalization, gamma, binarization and sharpening, kept lossless.
	// Lossy compression destroys thin strokes.
	Handwriting Mode = "handwriting"
)

// ParseMode maps the ocr_mode request field to a Mode. Anything that is not
// explicitly handwriting is treated as printed.
func ParseMode(s string) Mode {
	if s == string(Handwriting) {
		return Handwriting
	}
	return Printed
}

// Preprocess normalizes one raster image for recognition and re-encodes it
// according to mode. Corrupt input surfaces ErrImageProcessing; the caller
// skips the page and continues.
func Preprocess(data []byte, mode Mode) ([]byte, error) {
	img, err := decodeOriented(data)
	if err != nil {
		return nil, err
	}
	return Encode(PreprocessImage(img, mode), mode)
}

// Decode decodes any registered format, honoring EXIF orientation for JPEG
// input. Corrupt input surfaces ErrImageProcessing.
func Decode(data []byte) (image.Image, error) {
	return decodeOriented(data)
}

// PreprocessImage applies the mode's pixel transforms without encoding.
func PreprocessImage(img image.Image, mode Mode) image.Image {
	if mode == Handwriting {
		g := toGray(img)
		normalizeContrast(g)
		applyGamma(g, constants.HandwritingGamma)
		threshold(g, constants.HandwritingThreshold)
		return sharpen(g)
	}
	if w := img.Bounds().Dx(); w > constants.PrintedMaxWidth {
		img = scaleToWidth(img, constants.PrintedMaxWidth)
	}
	return img
}

// Encode serializes a preprocessed image in the mode's target format.
func Encode(img image.Image, mode Mode) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if mode == Handwriting {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.PrintedJPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", common.ErrImageProcessing, mode, err)
	}
	return buf.Bytes(), nil
}

// MIMEType returns the transport content type for a mode's encoding.
func MIMEType(mode Mode) string {
	if mode == Handwriting {
		return "image/png"
	}
	return "image/jpeg"
}

// decodeOriented decodes any registered format and applies the EXIF
// orientation when the source is a JPEG photograph.
func decodeOriented(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", common.ErrImageProcessing, err)
	}
	if format == "jpeg" {
		if o := jpegOrientation(data); o > 1 {
			img = applyOrientation(img, o)
		}
	}
	return img, nil
}

func scaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	b := img.Bounds()
	g := image.NewGray(b)
	xdraw.Draw(g, b, img, b.Min, xdraw.Src)
	return g
}

// normalizeContrast stretches the histogram to the full 0..255 range.
func normalizeContrast(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range g.Pix {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi <= lo {
		return
	}
	scale := 255.0 / float64(hi-lo)
	for i, p := range g.Pix {
		g.Pix[i] = uint8(math.Round(float64(p-lo) * scale))
	}
}

func applyGamma(g *image.Gray, gamma float64) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(255.0 * math.Pow(float64(i)/255.0, gamma)))
	}
	for i, p := range g.Pix {
		g.Pix[i] = lut[p]
	}
}

// threshold binarizes against a soft cutoff: everything at or above cut goes
// white, the rest keeps its value so faint strokes survive.
func threshold(g *image.Gray, cut uint8) {
	for i, p := range g.Pix {
		if p >= cut {
			g.Pix[i] = 255
		}
	}
}

// sharpen applies a 3x3 unsharp kernel (center 5, cross -1).
func sharpen(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, g.Pix)
	at := func(x, y int) int {
		return int(g.Pix[y*g.Stride+x])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 5*at(x, y) - at(x-1, y) - at(x+1, y) - at(x, y-1) - at(x, y+1)
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			out.Pix[y*out.Stride+x] = uint8(v)
		}
	}
	return out
}

// applyOrientation maps EXIF orientation values 2..8 onto flips/rotations.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipH(img)
	case 3:
		return rotate180(img)
	case 4:
		return flipV(img)
	case 5:
		return flipH(rotate90(img))
	case 6:
		return rotate90(img)
	case 7:
		return flipH(rotate270(img))
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y, x-b.Min.X, img.At(x, y))
		}
	}
	return dst
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return dst
}

func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(y-b.Min.Y, b.Max.X-1-x, img.At(x, y))
		}
	}
	return dst
}

func flipH(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, y-b.Min.Y, img.At(x, y))
		}
	}
	return dst
}

func flipV(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return dst
}

var white = color.Gray{Y: 255}
