package render

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Component rewrites every element matching Selector.
type Component struct {
	Selector string
	Apply    func(s *goquery.Selection)
}

// Defaults returns the standard component set for project bodies.
// siteHost identifies internal links; imageURL rewrites image sources and
// may be nil.
func Defaults(siteHost string, imageURL func(src string) string) []Component {
	cs := []Component{
		ExternalLinks(siteHost),
		CodeLanguage(),
		Callout(),
		ResponsiveTables(),
	}
	if imageURL != nil {
		cs = append(cs, ProxiedImages(imageURL))
	}
	return cs
}

// ExternalLinks opens off-site links in a new tab.
func ExternalLinks(siteHost string) Component {
	return Component{
		Selector: "a[href]",
		Apply: func(s *goquery.Selection) {
			href, _ := s.Attr("href")
			u, err := url.Parse(href)
			if err != nil || u.Host == "" || strings.EqualFold(u.Hostname(), siteHost) {
				return
			}
			s.SetAttr("target", "_blank")
			s.SetAttr("rel", "noopener noreferrer")
		},
	}
}

// ProxiedImages routes images through the image proxy and lazy-loads them.
func ProxiedImages(imageURL func(src string) string) Component {
	return Component{
		Selector: "img[src]",
		Apply: func(s *goquery.Selection) {
			src, _ := s.Attr("src")
			s.SetAttr("src", imageURL(src))
			s.SetAttr("loading", "lazy")
			s.SetAttr("decoding", "async")
		},
	}
}

// CodeLanguage copies the language-* class from <code> to its <pre>, which
// is where Prism looks for it.
func CodeLanguage() Component {
	return Component{
		Selector: "pre > code[class]",
		Apply: func(s *goquery.Selection) {
			class, _ := s.Attr("class")
			for _, c := range strings.Fields(class) {
				if strings.HasPrefix(c, "language-") {
					s.Parent().AddClass(c)
					return
				}
			}
		},
	}
}

// Callout turns <callout type="warning"> into a styled <aside>.
func Callout() Component {
	return Component{
		Selector: "callout",
		Apply: func(s *goquery.Selection) {
			kind, ok := s.Attr("type")
			if !ok || kind == "" {
				kind = "note"
			}
			s.RemoveAttr("type")
			for _, n := range s.Nodes {
				n.Data = "aside"
				n.DataAtom = atom.Aside
			}
			s.AddClass("callout", "callout-"+kind)
			s.SetAttr("role", "note")
		},
	}
}

// ResponsiveTables wraps tables so wide ones scroll horizontally.
func ResponsiveTables() Component {
	return Component{
		Selector: "table",
		Apply: func(s *goquery.Selection) {
			if p := s.Parent(); p.HasClass("table-wrapper") {
				return
			}
			for _, n := range s.Nodes {
				wrapper := &html.Node{
					Type:     html.ElementNode,
					Data:     "div",
					DataAtom: atom.Div,
					Attr:     []html.Attribute{{Key: "class", Val: "table-wrapper"}},
				}
				n.Parent.InsertBefore(wrapper, n)
				n.Parent.RemoveChild(n)
				wrapper.AppendChild(n)
			}
		},
	}
}
