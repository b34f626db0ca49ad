package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVImporter renders a CSV file as a GFM table. The first row is the header.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) (*Draft, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := baseName(filename)
	if len(records) == 0 {
		return newDraft(title, "", nil), nil
	}

	headers := records[0]
	width := len(headers)
	for _, row := range records[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = tableCell(cells[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range records[1:] {
		writeRow(row)
	}

	d := newDraft(title, b.String(), nil)
	// A summary of the raw table would just be pipes.
	d.ShortDescription = fmt.Sprintf("Table with %d rows: %s.", len(records)-1, strings.Join(headers, ", "))
	return d, nil
}

func tableCell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
