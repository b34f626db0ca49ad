package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/zg0ul/portfolio/internal/excerpt"
	"github.com/zg0ul/portfolio/internal/project"
)

// summaryChars bounds generated short descriptions.
const summaryChars = 160

// Importer converts an uploaded document into a project draft.
type Importer interface {
	Import(r io.Reader, filename string) (*Draft, error)
}

// Draft is an imported document awaiting review.
type Draft struct {
	Title            string         `json:"title"`
	Slug             string         `json:"slug"`
	ShortDescription string         `json:"short_description"`
	Markdown         string         `json:"markdown"`
	FrontMatter      map[string]any `json:"front_matter,omitempty"`
}

// SupportedExtensions lists file extensions the importer can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate importer for a filename.
func ForFile(filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file extension %q", project.ErrInvalid, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Import picks the importer for filename and runs it.
func Import(r io.Reader, filename string) (*Draft, error) {
	imp, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	return imp.Import(r, filename)
}

// baseName strips the directory and extension from a filename.
func baseName(filename string) string {
	name := filepath.Base(filename)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// newDraft fills the derived fields of a draft.
func newDraft(title, markdown string, fm map[string]any) *Draft {
	d := &Draft{
		Title:       strings.TrimSpace(title),
		Markdown:    strings.TrimSpace(markdown) + "\n",
		FrontMatter: fm,
	}
	if s := stringField(fm, "slug"); s != "" {
		d.Slug = s
	} else {
		d.Slug = project.Slugify(d.Title)
	}
	d.ShortDescription = stringField(fm, "short_description")
	if d.ShortDescription == "" {
		d.ShortDescription = stringField(fm, "description")
	}
	if d.ShortDescription == "" {
		d.ShortDescription = excerpt.Summarize(d.Markdown, summaryChars)
	}
	return d
}

// Project converts the draft into a validated project. Front matter keys
// featured_image, github_url, live_url, tags and featured carry over.
func (d *Draft) Project() (*project.Project, error) {
	p := &project.Project{
		Title:            d.Title,
		Slug:             d.Slug,
		ShortDescription: d.ShortDescription,
		LongDescription:  d.Markdown,
		FeaturedImage:    stringField(d.FrontMatter, "featured_image"),
		GithubURL:        stringField(d.FrontMatter, "github_url"),
		LiveURL:          stringField(d.FrontMatter, "live_url"),
		Tags:             stringsField(d.FrontMatter, "tags"),
	}
	if v, ok := d.FrontMatter["featured"].(bool); ok {
		p.Featured = v
	}
	if err := project.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func stringField(fm map[string]any, key string) string {
	if fm == nil {
		return ""
	}
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}

func stringsField(fm map[string]any, key string) []string {
	if fm == nil {
		return nil
	}
	switch v := fm[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
