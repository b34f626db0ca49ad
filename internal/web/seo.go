package web

import (
	"strings"

	"github.com/zg0ul/portfolio/internal/project"
)

// Open Graph image geometry for project pages.
const (
	ogImageWidth  = 1200
	ogImageHeight = 630
	ogLocale      = "en_US"
)

// Site identifies the public site.
type Site struct {
	URL  string
	Name string
}

func (s Site) abs(path string) string {
	return strings.TrimRight(s.URL, "/") + path
}

// Metadata is the head metadata for a page.
type Metadata struct {
	Title       string
	Description string
	Canonical   string
	OpenGraph   OpenGraph
	Twitter     Twitter
}

type OpenGraph struct {
	Title       string
	Description string
	URL         string
	SiteName    string
	Locale      string
	Type        string
	Images      []OGImage
}

type OGImage struct {
	URL    string
	Width  int
	Height int
	Alt    string
}

type Twitter struct {
	Card        string
	Title       string
	Description string
	Images      []string
}

// ProjectMetadata builds the metadata for a project page.
func ProjectMetadata(site Site, p *project.Project) Metadata {
	url := site.abs("/projects/" + p.Slug)
	title := p.Title + " | " + site.Name

	m := Metadata{
		Title:       title,
		Description: p.ShortDescription,
		Canonical:   url,
		OpenGraph: OpenGraph{
			Title:       title,
			Description: p.ShortDescription,
			URL:         url,
			SiteName:    site.Name,
			Locale:      ogLocale,
			Type:        "website",
		},
		Twitter: Twitter{
			Card:        "summary_large_image",
			Title:       title,
			Description: p.ShortDescription,
		},
	}
	if p.FeaturedImage != "" {
		img := ogImageURL(p.FeaturedImage)
		m.OpenGraph.Images = []OGImage{{
			URL:    img,
			Width:  ogImageWidth,
			Height: ogImageHeight,
			Alt:    p.Title + " project showcase",
		}}
		m.Twitter.Images = []string{img}
	}
	return m
}

// NotFoundMetadata is used when a slug matches nothing.
func NotFoundMetadata(site Site) Metadata {
	return Metadata{
		Title:       "Project Not Found",
		Description: "The requested project could not be found.",
		OpenGraph: OpenGraph{
			Title:    "Project Not Found",
			SiteName: site.Name,
			Locale:   ogLocale,
			Type:     "website",
		},
		Twitter: Twitter{Card: "summary"},
	}
}

// IndexMetadata describes the project listing.
func IndexMetadata(site Site) Metadata {
	url := site.abs("/projects")
	desc := "Projects by " + strings.TrimSuffix(site.Name, "'s Projects") + "."
	return Metadata{
		Title:       site.Name,
		Description: desc,
		Canonical:   url,
		OpenGraph: OpenGraph{
			Title:       site.Name,
			Description: desc,
			URL:         url,
			SiteName:    site.Name,
			Locale:      ogLocale,
			Type:        "website",
		},
		Twitter: Twitter{Card: "summary", Title: site.Name, Description: desc},
	}
}

// ogImageURL asks the image host for a 1200x630 webp crop.
func ogImageURL(src string) string {
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}
	return src + sep + "width=1200&height=630&resize=cover&format=webp"
}
