package imaging

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/doclab-pl/doclab/constants"
)

// TileQuadrants splits an image into a 2x2 grid of overlapping tiles.
// Each shared edge overlaps by TileOverlapFraction of the dimension so
// content straddling a seam appears in two tiles. Recognition models have a
// fixed effective resolution; quadrants keep a high-resolution handwriting
// scan within it. Always returns exactly 4 tiles in reading order (top-left,
// top-right, bottom-left, bottom-right); tiny inputs may yield near-duplicate
// tiles, which is acceptable.
func TileQuadrants(img image.Image) []image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ox := int(float64(w) * constants.TileOverlapFraction)
	oy := int(float64(h) * constants.TileOverlapFraction)
	wHalf, hHalf := w/2, h/2

	rects := []image.Rectangle{
		image.Rect(0, 0, wHalf+ox, hHalf+oy),
		image.Rect(max(wHalf-ox, 0), 0, w, hHalf+oy),
		image.Rect(0, max(hHalf-oy, 0), wHalf+ox, h),
		image.Rect(max(wHalf-ox, 0), max(hHalf-oy, 0), w, h),
	}

	tiles := make([]image.Image, 0, len(rects))
	for _, r := range rects {
		r = r.Intersect(image.Rect(0, 0, w, h))
		tiles = append(tiles, crop(img, r.Add(b.Min)))
	}
	return tiles
}

func crop(img image.Image, r image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, r.Min, xdraw.Src)
	return dst
}
