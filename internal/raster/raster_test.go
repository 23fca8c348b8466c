package raster

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doclab-pl/doclab/internal/common"
)

type recordingRunner struct {
	calls int
}

func (r *recordingRunner) Run(context.Context, string, ...string) ([]byte, []byte, error) {
	r.calls++
	return nil, nil, nil
}

func TestRenderPages_RejectsNonPDF(t *testing.T) {
	runner := &recordingRunner{}
	ras := NewRasterizer(Config{TempDir: t.TempDir()}, runner, nil)

	_, err := ras.RenderPages(context.Background(), []byte("definitely not a pdf"), 10, 2.0)
	if !errors.Is(err, common.ErrUnsupportedDocument) {
		t.Fatalf("err = %v, want ErrUnsupportedDocument", err)
	}
	// Validation happens before any external process is spawned.
	if runner.calls != 0 {
		t.Errorf("pdftoppm ran %d times on invalid input", runner.calls)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate(strings.Repeat("x", 20), 10)
	if got != strings.Repeat("x", 10)+"...(truncated)" {
		t.Errorf("truncate long = %q", got)
	}
}
