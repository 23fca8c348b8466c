package pdftext

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	stdout []byte
	err    error
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	f.args = args
	return f.stdout, nil, f.err
}

func TestEmbeddedText(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("strona pierwsza\fstrona druga\f")}
	e := NewExtractor(Config{TempDir: t.TempDir()}, runner)

	text, pages, err := e.EmbeddedText(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("EmbeddedText: %v", err)
	}
	if text != "strona pierwsza\fstrona druga" {
		t.Errorf("text = %q", text)
	}
	// Form feeds separate pages in pdftotext output.
	if pages != 3 {
		t.Errorf("pages = %d", pages)
	}
	// Output goes to stdout, not a sibling file.
	if len(runner.args) == 0 || runner.args[len(runner.args)-1] != "-" {
		t.Errorf("args = %v", runner.args)
	}
}

func TestEmbeddedText_ToolFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	e := NewExtractor(Config{TempDir: t.TempDir()}, runner)

	if _, _, err := e.EmbeddedText(context.Background(), []byte("junk")); err == nil {
		t.Fatal("expected an error when pdftotext fails")
	}
}

func TestStructuredText_RejectsGarbage(t *testing.T) {
	if _, _, err := StructuredText([]byte("not a pdf at all"), 20); err == nil {
		t.Fatal("expected an error for a non-PDF stream")
	}
}
