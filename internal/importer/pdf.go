package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFImporter handles PDF files. Each page becomes a run of paragraphs.
type PDFImporter struct{}

func (p *PDFImporter) Import(r io.Reader, filename string) (*Draft, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	pages, err := extractPDFPages(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var blocks []string
	for _, page := range pages {
		blocks = append(blocks, pageParagraphs(page)...)
	}

	return newDraft(baseName(filename), strings.Join(blocks, "\n\n"), nil), nil
}

func extractPDFPages(ra io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdflib.NewReader(ra, size)
	if err != nil {
		return nil, err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pageParagraphs splits page text on blank lines and joins wrapped lines.
func pageParagraphs(page string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(page, "\r\n", "\n"), "\n\n") {
		if t := strings.Join(strings.Fields(block), " "); t != "" {
			out = append(out, t)
		}
	}
	return out
}
