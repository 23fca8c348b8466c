package extract

import (
	"context"

	"github.com/doclab-pl/doclab/internal/imaging"
	"github.com/doclab-pl/doclab/internal/raster"
	"github.com/doclab-pl/doclab/internal/recognition"
)

// State names the position of the pipeline's strategy machine.
type State string

const (
	StateEmbeddedText   State = "embedded-text"
	StateStructuredText State = "structured-text"
	StateVisualOCR      State = "visual-ocr"
	StateDone           State = "done"
)

// Provenance carries diagnostics about how the text was obtained. Internal
// only; never interpreted by callers beyond logging and debug output.
type Provenance struct {
	Method        State `json:"method"`
	PagesRendered int   `json:"pages_rendered,omitempty"`
	Tiles         int   `json:"tiles,omitempty"`
	Batches       int   `json:"batches,omitempty"`
	Chars         int   `json:"chars"`
}

// Result is the pipeline's final output: the best available reading of the
// document plus its provenance.
type Result struct {
	Text       string
	Provenance Provenance
}

// Recognizer is the vision OCR dependency.
type Recognizer interface {
	RecognizeAll(ctx context.Context, payloads []recognition.Payload, mode imaging.Mode) (string, int, error)
}

// EmbeddedExtractor is the text-layer dependency.
type EmbeddedExtractor interface {
	EmbeddedText(ctx context.Context, document []byte) (string, int, error)
}

// PageRenderer is the rasterization dependency.
type PageRenderer interface {
	RenderPages(ctx context.Context, document []byte, maxPages int, scale float64) ([]raster.Page, error)
}
