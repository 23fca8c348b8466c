package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/imaging"
	"github.com/doclab-pl/doclab/internal/pdftext"
	"github.com/doclab-pl/doclab/internal/recognition"
)

// Pipeline extracts text from an uploaded document. For a PDF it walks the
// cheapest strategy first: the embedded text layer, then a structured parse
// of the same layer, and only when neither yields enough characters does it
// rasterize pages and send them through vision OCR. Image uploads go
// straight to OCR.
type Pipeline struct {
	embedded   EmbeddedExtractor
	renderer   PageRenderer
	recognizer Recognizer
	logger     *slog.Logger

	maxTextPages   int
	maxRenderPages int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline wires the pipeline with its three strategies.
func NewPipeline(embedded EmbeddedExtractor, renderer PageRenderer, recognizer Recognizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedded:       embedded,
		renderer:       renderer,
		recognizer:     recognizer,
		logger:         slog.Default(),
		maxTextPages:   constants.MaxTextPages,
		maxRenderPages: constants.MaxRenderPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractPDF returns the best available reading of the PDF. minChars is the
// plausibility floor for the text-layer strategies; below it the pipeline
// escalates to visual OCR. The text layer is never discarded: when OCR runs,
// its output is appended after whatever the text layer produced.
func (p *Pipeline) ExtractPDF(ctx context.Context, document []byte, mode imaging.Mode, minChars int) (Result, error) {
	var (
		layerText string
		method    = StateEmbeddedText
	)

	if text, pages, err := p.embedded.EmbeddedText(ctx, document); err != nil {
		p.logger.Warn("extract.embedded_failed", "error", err)
	} else {
		layerText = strings.TrimSpace(text)
		p.logger.Info("extract.embedded", "pages", pages, "chars", len(layerText))
	}

	if len(layerText) < minChars {
		if text, pages, err := pdftext.StructuredText(document, p.maxTextPages); err != nil {
			p.logger.Warn("extract.structured_failed", "error", err)
		} else if structured := strings.TrimSpace(text); len(structured) > len(layerText) {
			layerText = structured
			method = StateStructuredText
			p.logger.Info("extract.structured", "pages", pages, "chars", len(structured))
		}
	}

	if len(layerText) >= minChars {
		return Result{
			Text: layerText,
			Provenance: Provenance{
				Method: method,
				Chars:  len(layerText),
			},
		}, nil
	}

	ocr, prov, err := p.ocrPDF(ctx, document, mode)
	if err != nil {
		if layerText != "" {
			// Thin text layer is still better than nothing.
			p.logger.Warn("extract.ocr_failed_using_layer", "error", err, "chars", len(layerText))
			return Result{
				Text:       layerText,
				Provenance: Provenance{Method: method, Chars: len(layerText)},
			}, nil
		}
		return Result{}, err
	}

	text := ocr
	if layerText != "" {
		text = layerText + "\n\n" + ocr
		prov.Method = StateDone
	}
	prov.Chars = len(text)
	return Result{Text: text, Provenance: prov}, nil
}

// ExtractImages runs every uploaded image through preprocessing and vision
// OCR in upload order. Images that fail to decode are skipped.
func (p *Pipeline) ExtractImages(ctx context.Context, images [][]byte, mode imaging.Mode) (Result, error) {
	payloads := make([]recognition.Payload, 0, len(images))
	tiles := 0
	for i, data := range images {
		decoded, err := imaging.Decode(data)
		if err != nil {
			p.logger.Warn("extract.image_skip", "index", i, "error", err)
			continue
		}
		img := imaging.PreprocessImage(decoded, mode)
		if mode == imaging.Handwriting {
			for _, tile := range imaging.TileQuadrants(img) {
				encoded, err := imaging.Encode(tile, mode)
				if err != nil {
					return Result{}, err
				}
				payloads = append(payloads, recognition.Payload{Data: encoded, MIME: imaging.MIMEType(mode)})
				tiles++
			}
			continue
		}
		encoded, err := imaging.Encode(img, mode)
		if err != nil {
			return Result{}, err
		}
		payloads = append(payloads, recognition.Payload{Data: encoded, MIME: imaging.MIMEType(mode)})
	}
	if len(payloads) == 0 {
		return Result{}, fmt.Errorf("no decodable images: %w", common.ErrExtractionFailed)
	}

	text, batches, err := p.recognizer.RecognizeAll(ctx, payloads, mode)
	if err != nil {
		return Result{}, fmt.Errorf("image recognition: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("recognition returned no text: %w", common.ErrExtractionFailed)
	}
	return Result{
		Text: text,
		Provenance: Provenance{
			Method:  StateVisualOCR,
			Tiles:   tiles,
			Batches: batches,
			Chars:   len(text),
		},
	}, nil
}

// Extract dispatches on file format.
func (p *Pipeline) Extract(ctx context.Context, document []byte, format constants.FileFormat, mode imaging.Mode, minChars int) (Result, error) {
	switch format {
	case constants.PDF:
		return p.ExtractPDF(ctx, document, mode, minChars)
	case constants.IMAGE:
		return p.ExtractImages(ctx, [][]byte{document}, mode)
	default:
		return Result{}, fmt.Errorf("format %q: %w", format, common.ErrUnsupportedDocument)
	}
}

func (p *Pipeline) ocrPDF(ctx context.Context, document []byte, mode imaging.Mode) (string, Provenance, error) {
	scale := constants.RenderScalePrinted
	if mode == imaging.Handwriting {
		scale = constants.RenderScaleHandwriting
	}
	pages, err := p.renderer.RenderPages(ctx, document, p.maxRenderPages, scale)
	if err != nil {
		return "", Provenance{}, fmt.Errorf("render pages: %w", err)
	}
	if len(pages) == 0 {
		return "", Provenance{}, fmt.Errorf("no pages rendered: %w", common.ErrExtractionFailed)
	}

	payloads := make([]recognition.Payload, 0, len(pages))
	tiles := 0
	for _, page := range pages {
		decoded, err := imaging.Decode(page.PNG)
		if err != nil {
			p.logger.Warn("extract.page_skip", "page", page.Index, "error", err)
			continue
		}
		img := imaging.PreprocessImage(decoded, mode)
		if mode == imaging.Handwriting {
			for _, tile := range imaging.TileQuadrants(img) {
				encoded, err := imaging.Encode(tile, mode)
				if err != nil {
					return "", Provenance{}, err
				}
				payloads = append(payloads, recognition.Payload{Data: encoded, MIME: imaging.MIMEType(mode)})
				tiles++
			}
			continue
		}
		encoded, err := imaging.Encode(img, mode)
		if err != nil {
			return "", Provenance{}, err
		}
		payloads = append(payloads, recognition.Payload{Data: encoded, MIME: imaging.MIMEType(mode)})
	}
	if len(payloads) == 0 {
		return "", Provenance{}, fmt.Errorf("no usable page images: %w", common.ErrExtractionFailed)
	}

	text, batches, err := p.recognizer.RecognizeAll(ctx, payloads, mode)
	if err != nil {
		return "", Provenance{}, err
	}
	if strings.TrimSpace(text) == "" {
		return "", Provenance{}, fmt.Errorf("recognition returned no text: %w", common.ErrExtractionFailed)
	}
	return text, Provenance{
		Method:        StateVisualOCR,
		PagesRendered: len(pages),
		Tiles:         tiles,
		Batches:       batches,
	}, nil
}
