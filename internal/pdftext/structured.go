package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/doclab-pl/doclab/internal/common"
)

// StructuredText walks the PDF page tree in-process and concatenates the
// plain text of up to maxPages pages, one page per paragraph block. Catches
// a different class of malformed PDFs than the pdftotext dump.
func StructuredText(document []byte, maxPages int) (text string, pages int, err error) {
	// The parser panics on some malformed cross-reference tables; the
	// pipeline treats that the same as a parse error.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: pdf parse panic: %v", common.ErrUnsupportedDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", common.ErrUnsupportedDocument, err)
	}

	total := r.NumPage()
	limit := total
	if maxPages > 0 && limit > maxPages {
		limit = maxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			// skip the page, keep the rest
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return strings.TrimSpace(b.String()), limit, nil
}
