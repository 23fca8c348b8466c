package imaging

import (
	"image"
	"testing"
)

func TestTileQuadrants_ProducesFourTiles(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1000, 800))

	tiles := TileQuadrants(src)

	if len(tiles) != 4 {
		t.Fatalf("expected 4 tiles, got %d", len(tiles))
	}
}

func TestTileQuadrants_TilesCoverWithOverlap(t *testing.T) {
	const w, h = 1000, 800
	src := image.NewGray(image.Rect(0, 0, w, h))

	tiles := TileQuadrants(src)

	// Each tile spans half the source plus the overlap margin.
	wantW := w/2 + int(float64(w)*0.10)
	wantH := h/2 + int(float64(h)*0.10)
	for i, tile := range tiles {
		b := tile.Bounds()
		if b.Dx() != wantW || b.Dy() != wantH {
			t.Errorf("tile %d: got %dx%d, want %dx%d", i, b.Dx(), b.Dy(), wantW, wantH)
		}
	}

	// Together the tiles must cover every source pixel.
	total := wantW * wantH * 4
	if total < w*h {
		t.Errorf("tiles cover %d pixels, source has %d", total, w*h)
	}
}

func TestTileQuadrants_TinyImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 3))

	tiles := TileQuadrants(src)

	if len(tiles) != 4 {
		t.Fatalf("expected 4 tiles even for a tiny image, got %d", len(tiles))
	}
	for i, tile := range tiles {
		b := tile.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 {
			t.Errorf("tile %d has empty bounds %v", i, b)
		}
	}
}
