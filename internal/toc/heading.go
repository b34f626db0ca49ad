// Package toc builds a navigable table of contents from rendered content.
//
// Extraction keeps h2 and h3 only: h1 is the page title and deeper levels
// are too granular for navigation.
package toc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// headingSelector matches the levels that appear in the outline.
const headingSelector = "h2, h3"

// HeadingEntry is one heading found in rendered content.
type HeadingEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Slug normalizes heading text into an anchor: lowercase, runs of
// non-alphanumerics collapsed to a single hyphen, hyphens trimmed.
// It returns "" when nothing alphanumeric remains.
func Slug(text string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// idSet hands out unique anchors in document order.
type idSet map[string]bool

func (s idSet) claim(base string) string {
	if !s[base] {
		s[base] = true
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !s[candidate] {
			s[candidate] = true
			return candidate
		}
	}
}

// Extract returns the h2/h3 headings under root in document order, each
// with a unique anchor. It does not modify the tree, so repeated calls on
// the same content return identical results.
func Extract(root *html.Node) []HeadingEntry {
	if root == nil {
		return nil
	}
	var entries []HeadingEntry
	ids := idSet{}
	goquery.NewDocumentFromNode(root).Find(headingSelector).Each(func(i int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		base := Slug(text)
		if base == "" {
			base = fmt.Sprintf("section-%d", i+1)
		}
		entries = append(entries, HeadingEntry{
			ID:    ids.claim(base),
			Text:  text,
			Level: headingLevel(goquery.NodeName(s)),
		})
	})
	return entries
}

// ExtractHTML parses a fragment of rendered HTML and extracts its headings.
func ExtractHTML(fragment string) ([]HeadingEntry, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Extract(doc), nil
}

// Stamp sets the id attribute of every h2/h3 under root to the anchor of
// the matching entry. entries must come from Extract on the same tree.
func Stamp(root *html.Node, entries []HeadingEntry) {
	if root == nil {
		return
	}
	goquery.NewDocumentFromNode(root).Find(headingSelector).Each(func(i int, s *goquery.Selection) {
		if i < len(entries) {
			s.SetAttr("id", entries[i].ID)
		}
	})
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
