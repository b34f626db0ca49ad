package excerpt

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// EstimateWords counts whitespace-separated words.
func EstimateWords(s string) int {
	return len(strings.Fields(s))
}

// ReadingTime returns whole minutes to read words, never less than one
// for non-empty content.
func ReadingTime(words int) int {
	if words <= 0 {
		return 0
	}
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Summarize builds a short description from the first paragraph of a
// Markdown body: whole sentences up to maxChars, or a word-boundary cut
// with an ellipsis when the first sentence alone is too long.
func Summarize(markdown string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 160
	}
	para := firstParagraph([]byte(markdown))
	if para == "" {
		return ""
	}
	if len(para) <= maxChars {
		return para
	}

	var out strings.Builder
	for _, sent := range splitSentences(para) {
		if out.Len() > 0 && out.Len()+1+len(sent) > maxChars {
			break
		}
		if out.Len() == 0 && len(sent) > maxChars {
			return cutWords(sent, maxChars)
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(sent)
	}
	return out.String()
}

// firstParagraph returns the plain text of the first paragraph block.
func firstParagraph(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() != ast.KindParagraph {
			continue
		}
		t := strings.Join(strings.Fields(inlineText(n, src)), " ")
		if t != "" {
			return t
		}
	}
	return ""
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			buf.Write(v.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.Image:
			// Alt text would read oddly in a summary.
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

// splitSentences does basic sentence splitting.
func splitSentences(s string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range s {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(s) && s[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if t := strings.TrimSpace(current.String()); t != "" {
		sentences = append(sentences, t)
	}
	return sentences
}

func cutWords(s string, maxChars int) string {
	limit := maxChars - len("…")
	if limit <= 0 {
		return "…"
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}
