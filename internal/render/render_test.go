package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zg0ul/portfolio/internal/toc"
)

const body = "# Project\n\nIntro text with a [repo](https://github.com/zg0ul/x) and [home](https://zg0ul.com/about).\n\n" +
	"## Setup\n\n![diagram](https://cdn.example.com/d.png)\n\n" +
	"```go\nfmt.Println(\"hi\")\n```\n\n" +
	"### Setup\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n" +
	"<Callout type=\"warning\">\n\nBe careful.\n\n</Callout>\n\n" +
	"## API & Usage!\n\n#### Too deep\n"

func newTestRenderer() *Renderer {
	return New(Defaults("zg0ul.com", func(src string) string { return "/_image?url=" + src })...)
}

func TestRender_HeadingsAndAnchors(t *testing.T) {
	doc, err := newTestRenderer().Render(body)
	require.NoError(t, err)

	assert.Equal(t, []toc.HeadingEntry{
		{ID: "setup", Text: "Setup", Level: 2},
		{ID: "setup-2", Text: "Setup", Level: 3},
		{ID: "api-usage", Text: "API & Usage!", Level: 2},
	}, doc.Headings)

	out := string(doc.HTML)
	assert.Contains(t, out, `<h2 id="setup">Setup</h2>`)
	assert.Contains(t, out, `<h3 id="setup-2">Setup</h3>`)
	assert.Contains(t, out, `<h2 id="api-usage">API &amp; Usage!</h2>`)
	assert.NotContains(t, out, "<body>")
}

func TestRender_Components(t *testing.T) {
	doc, err := newTestRenderer().Render(body)
	require.NoError(t, err)
	out := string(doc.HTML)

	assert.Contains(t, out, `href="https://github.com/zg0ul/x" target="_blank" rel="noopener noreferrer"`)
	assert.NotContains(t, out, `href="https://zg0ul.com/about" target`)
	assert.Contains(t, out, `src="/_image?url=https://cdn.example.com/d.png"`)
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `<pre class="language-go"><code class="language-go">`)
	assert.Contains(t, out, `<div class="table-wrapper"><table>`)
	assert.Contains(t, out, `<aside class="callout callout-warning" role="note">`)
	assert.NotContains(t, out, "<callout")
}

func TestRender_Idempotent(t *testing.T) {
	r := newTestRenderer()
	a, err := r.Render(body)
	require.NoError(t, err)
	b, err := r.Render(body)
	require.NoError(t, err)
	assert.Equal(t, a.Headings, b.Headings)
	assert.Equal(t, a.HTML, b.HTML)
}

func TestRender_NoHeadings(t *testing.T) {
	doc, err := New().Render("Just a paragraph of five words.")
	require.NoError(t, err)
	assert.Empty(t, doc.Headings)
	assert.Equal(t, 6, doc.Words)
	assert.True(t, strings.HasPrefix(string(doc.HTML), "<p>"))
}

func TestRender_Empty(t *testing.T) {
	doc, err := New().Render("")
	require.NoError(t, err)
	assert.Empty(t, doc.Headings)
	assert.Equal(t, 0, doc.Words)
}

func TestRender_Typographer(t *testing.T) {
	doc, err := New().Render(`He said "ship it" -- then waited...`)
	require.NoError(t, err)
	out := string(doc.HTML)
	assert.Contains(t, out, "“ship it”")
	assert.Contains(t, out, "–")
	assert.Contains(t, out, "…")
}
