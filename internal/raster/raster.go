package raster

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/doclab-pl/doclab/internal/common"
)

// Page is one rasterized page in page order. Indexes are 1-based.
type Page struct {
	Index int
	PNG   []byte
}

// Config for the rasterizer.
type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	TempDir  string // scratch space; if empty -> os.TempDir()
}

// Rasterizer renders PDF pages to PNG through pdftoppm, using pdfcpu to
// validate the stream and clamp the requested page count to the true one.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, runner Runner, logger *slog.Logger) *Rasterizer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger}
}

// RenderPages renders up to maxPages pages of document at the given scale
// (1.0 = 72 DPI). A byte stream that cannot be parsed as a PDF fails with
// ErrUnsupportedDocument. Pure transformation: all scratch files are removed
// before return.
func (r *Rasterizer) RenderPages(ctx context.Context, document []byte, maxPages int, scale float64) ([]Page, error) {
	var pages []Page
	err := common.WithTemporaryDir(r.cfg.TempDir, "doclab-raster-*", func(dir string) error {
		in := filepath.Join(dir, "in.pdf")
		if err := os.WriteFile(in, document, 0o600); err != nil {
			return fmt.Errorf("write scratch pdf: %w", err)
		}

		count, err := api.PageCountFile(in)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrUnsupportedDocument, err)
		}
		if maxPages > 0 && count > maxPages {
			count = maxPages
		}
		if count < 1 {
			return fmt.Errorf("%w: document has no pages", common.ErrUnsupportedDocument)
		}

		dpi := int(math.Round(72 * scale))
		prefix := filepath.Join(dir, "page")
		_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
			"-r", fmt.Sprintf("%d", dpi),
			"-f", "1", "-l", fmt.Sprintf("%d", count),
			"-png", in, prefix)
		if err != nil {
			return fmt.Errorf("%w: pdftoppm: %v (%s)", common.ErrUnsupportedDocument, err, truncate(string(errb), 512))
		}

		// pdftoppm pads page numbers to a fixed width, so a plain string
		// sort restores page order.
		matches, _ := filepath.Glob(prefix + "-*.png")
		sort.Strings(matches)
		if len(matches) == 0 {
			return fmt.Errorf("%w: no pages rendered", common.ErrUnsupportedDocument)
		}

		for i, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				r.logger.Warn("raster.read_page_failed", "path", m, "error", err)
				continue
			}
			pages = append(pages, Page{Index: i + 1, PNG: data})
		}
		r.logger.Debug("raster.rendered", "pages", len(pages), "dpi", dpi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}
