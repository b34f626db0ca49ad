package importer

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTMLImporter handles HTML files, converting the body to Markdown.
type HTMLImporter struct{}

func (p *HTMLImporter) Import(r io.Reader, filename string) (*Draft, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := collapse(doc.Find("head title").First().Text())

	body := doc.Find("body")
	// Skip non-content elements.
	body.Find("script, style, nav, footer, header, noscript").Remove()

	if h1 := body.Find("h1").First(); h1.Length() > 0 {
		if title == "" {
			title = collapse(h1.Text())
		}
		if collapse(h1.Text()) == title {
			h1.Remove()
		}
	}
	if title == "" {
		title = baseName(filename)
	}

	content, err := body.Html()
	if err != nil {
		return nil, fmt.Errorf("serialize html body: %w", err)
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("convert html to markdown: %w", err)
	}

	return newDraft(title, markdown, nil), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
