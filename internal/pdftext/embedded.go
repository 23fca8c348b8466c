// Package pdftext extracts text layers from PDFs without image recognition.
// Two independent extractors are kept on purpose: the poppler text dump and
// the in-process parser fail on different classes of malformed PDFs, and the
// pipeline takes whichever reading is longer.
package pdftext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/raster"
)

// Config for the embedded-layer extractor.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	TempDir   string
}

// Extractor dumps the embedded text layer of a PDF via pdftotext.
type Extractor struct {
	cfg    Config
	runner raster.Runner
}

func NewExtractor(cfg Config, runner raster.Runner) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if runner == nil {
		runner = raster.ExecRunner{}
	}
	return &Extractor{cfg: cfg, runner: runner}
}

// EmbeddedText returns the text layer and the page count (form feeds are the
// page separator in pdftotext output). Works only for born-digital PDFs;
// scans yield empty or near-empty text, which the caller treats as "advance
// to the next strategy", not an error.
func (e *Extractor) EmbeddedText(ctx context.Context, document []byte) (string, int, error) {
	var text string
	err := common.WithTemporaryBytes(e.cfg.TempDir, "doclab-pdftext-*.pdf", document, func(path string) error {
		out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
			"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
		if err != nil {
			return fmt.Errorf("%w: pdftotext: %v (%s)", common.ErrUnsupportedDocument, err, strings.TrimSpace(string(errb)))
		}
		text = string(out)
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	pages := 1 + strings.Count(text, "\f")
	return strings.TrimSpace(text), pages, nil
}
