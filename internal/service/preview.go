package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/extract"
	"github.com/doclab-pl/doclab/internal/imaging"
)

const previewExcerptChars = 1200

// Preview is a cheap recognition probe: how much text can be read from the
// file and through which strategy.
type Preview struct {
	Mode    string `json:"mode"`
	Chars   int    `json:"chars"`
	Excerpt string `json:"excerpt"`
}

// OCRPreview extracts text from one file and reports the strategy used.
func (v *Verifier) OCRPreview(ctx context.Context, data []byte, mime string) (Preview, error) {
	var (
		result extract.Result
		err    error
		mode   string
	)
	switch {
	case mime == "application/pdf":
		result, err = v.pipeline.ExtractPDF(ctx, data, imaging.Printed, constants.MinTextPreview)
		if err != nil {
			return Preview{}, err
		}
		if result.Provenance.Method == extract.StateEmbeddedText || result.Provenance.Method == extract.StateStructuredText {
			mode = "pdf-text"
		} else {
			mode = "pdf-vision"
		}
	case strings.HasPrefix(mime, "image/"):
		result, err = v.pipeline.ExtractImages(ctx, [][]byte{data}, imaging.Printed)
		if err != nil {
			return Preview{}, err
		}
		mode = "image-vision"
	default:
		return Preview{}, fmt.Errorf("unsupported content type %q: %w", mime, common.ErrUnsupportedDocument)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return Preview{}, fmt.Errorf("no text recognized: %w", common.ErrExtractionFailed)
	}
	excerpt := common.TruncateUTF8(text, previewExcerptChars)
	return Preview{Mode: mode, Chars: len(text), Excerpt: excerpt}, nil
}
