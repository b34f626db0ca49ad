package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXImporter handles .docx files. Heading styles map to Markdown heading
// levels; the first level-one heading becomes the title.
type DOCXImporter struct{}

func (p *DOCXImporter) Import(r io.Reader, filename string) (*Draft, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	title := ""
	var blocks []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		level := docxHeadingLevel(para)
		switch {
		case level == 1 && title == "":
			title = text
		case level > 0:
			blocks = append(blocks, strings.Repeat("#", level)+" "+text)
		default:
			blocks = append(blocks, text)
		}
	}
	if title == "" {
		title = baseName(filename)
	}

	return newDraft(title, strings.Join(blocks, "\n\n"), nil), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if style == "title" {
		return 1
	}
	if len(style) == len("heading1") && strings.HasPrefix(style, "heading") {
		if n := style[len(style)-1]; n >= '1' && n <= '6' {
			return int(n - '0')
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
