package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/doclab-pl/doclab/internal/common"
)

// StackVertical merges an ordered list of images into one tall composite:
// width is the maximum input width, height the sum of input heights, narrower
// images left-aligned on a white background. One composite lets a single
// reasoning call see multi-page context. An empty list fails with
// ErrComposition; the caller degrades to text-only evidence.
func StackVertical(images []image.Image) (image.Image, error) {
	if len(images) == 0 {
		return nil, common.ErrComposition
	}

	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(white), image.Point{}, xdraw.Src)

	y := 0
	for _, img := range images {
		b := img.Bounds()
		xdraw.Draw(dst, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, xdraw.Over)
		y += b.Dy()
	}
	return dst, nil
}

// EncodeJPEG serializes a composite at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%w: encode composite: %v", common.ErrImageProcessing, err)
	}
	return buf.Bytes(), nil
}
