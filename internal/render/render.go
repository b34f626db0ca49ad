package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/zg0ul/portfolio/internal/toc"
)

// Document is a rendered project body.
type Document struct {
	HTML     template.HTML
	Headings []toc.HeadingEntry
	Outline  []*toc.OutlineNode
	Words    int
}

// Renderer turns Markdown (with embedded component tags) into HTML.
type Renderer struct {
	md         goldmark.Markdown
	components []Component
}

// New creates a renderer applying components in order.
func New(components ...Component) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
		),
		goldmark.WithRendererOptions(
			// Bodies are written by the site admin and may embed component tags.
			gmhtml.WithUnsafe(),
		),
	)
	return &Renderer{md: md, components: components}
}

// Render converts source to HTML, substitutes components and stamps
// heading anchors.
func (r *Renderer) Render(source string) (*Document, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	root, err := html.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	body := findBody(root)
	if body == nil {
		body = root
	}

	doc := goquery.NewDocumentFromNode(body)
	for _, c := range r.components {
		doc.Find(c.Selector).Each(func(_ int, s *goquery.Selection) {
			c.Apply(s)
		})
	}

	headings := toc.Extract(body)
	toc.Stamp(body, headings)

	var out strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
	}

	return &Document{
		HTML:     template.HTML(out.String()),
		Headings: headings,
		Outline:  toc.Build(headings),
		Words:    len(strings.Fields(textContent(body))),
	}, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}
