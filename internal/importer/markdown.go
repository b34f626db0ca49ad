package importer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/zg0ul/portfolio/internal/project"
)

// MarkdownImporter handles Markdown files with optional YAML front matter.
type MarkdownImporter struct{}

func (p *MarkdownImporter) Import(r io.Reader, filename string) (*Draft, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	fm, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}

	title := stringField(fm, "title")
	if title == "" {
		var ok bool
		if title, body, ok = takeTitleHeading(body); !ok {
			title = baseName(filename)
		}
	}

	return newDraft(title, string(body), fm), nil
}

// splitFrontMatter separates a leading "---" delimited YAML block.
func splitFrontMatter(src []byte) (map[string]any, []byte, error) {
	src = bytes.TrimPrefix(src, []byte("\ufeff"))
	normalized := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, src, nil
	}

	rest := normalized[len("---\n"):]
	var block, body []byte
	if bytes.HasPrefix(rest, []byte("---\n")) || bytes.Equal(rest, []byte("---")) {
		block, body = nil, bytes.TrimPrefix(rest[3:], []byte("\n"))
	} else {
		end := bytes.Index(rest, []byte("\n---\n"))
		switch {
		case end >= 0:
			block, body = rest[:end], rest[end+len("\n---\n"):]
		case bytes.HasSuffix(rest, []byte("\n---")):
			block, body = rest[:len(rest)-len("\n---")], nil
		default:
			// No closing delimiter: treat the whole file as body.
			return nil, src, nil
		}
	}

	fm := map[string]any{}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, nil, fmt.Errorf("%w: front matter: %v", project.ErrInvalid, err)
	}
	return fm, body, nil
}

// takeTitleHeading returns the text of the first level-one ATX heading and
// the body with that heading line removed.
func takeTitleHeading(src []byte) (string, []byte, bool) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 || h.Lines().Len() == 0 {
			continue
		}
		title := strings.TrimSpace(string(headingText(h, src)))
		seg := h.Lines().At(0)
		start := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
		if start >= len(src) || src[start] != '#' {
			// Setext heading; keep it in the body.
			return title, src, title != ""
		}
		end := len(src)
		if i := bytes.IndexByte(src[seg.Start:], '\n'); i >= 0 {
			end = seg.Start + i + 1
		}
		out := make([]byte, 0, len(src)-(end-start))
		out = append(out, src[:start]...)
		out = append(out, src[end:]...)
		return title, out, title != ""
	}
	return "", src, false
}

func headingText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			continue
		}
		if s, ok := c.(*ast.String); ok {
			buf.Write(s.Value)
			continue
		}
		buf.Write(headingText(c, src))
	}
	return buf.Bytes()
}
