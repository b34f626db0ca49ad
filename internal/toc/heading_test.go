package toc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"API & Usage!", "api-usage"},
		{"Setup", "setup"},
		{"  Getting   Started  ", "getting-started"},
		{"--Edge--Case--", "edge-case"},
		{"v2.0 Release", "v2-0-release"},
		{"Café Déjà Vu", "café-déjà-vu"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "Slug(%q)", tt.in)
	}
}

func TestExtractHTML_LevelsAndOrder(t *testing.T) {
	entries, err := ExtractHTML(`
<h1>Title</h1>
<h2>Intro</h2>
<p>text</p>
<h3>Background</h3>
<h4>Too deep</h4>
<h2>Results</h2>
<h5>Also too deep</h5>`)
	require.NoError(t, err)

	assert.Equal(t, []HeadingEntry{
		{ID: "intro", Text: "Intro", Level: 2},
		{ID: "background", Text: "Background", Level: 3},
		{ID: "results", Text: "Results", Level: 2},
	}, entries)
}

func TestExtractHTML_DuplicateIDs(t *testing.T) {
	entries, err := ExtractHTML(`<h2>Setup</h2><h3>Setup</h3><h2>Setup!</h2>`)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "setup", entries[0].ID)
	assert.Equal(t, "setup-2", entries[1].ID)
	assert.Equal(t, "setup-3", entries[2].ID)
}

func TestExtractHTML_SuffixDoesNotCollideWithLiteral(t *testing.T) {
	entries, err := ExtractHTML(`<h2>Setup 2</h2><h2>Setup</h2><h2>Setup</h2>`)
	require.NoError(t, err)
	ids := []string{entries[0].ID, entries[1].ID, entries[2].ID}
	assert.Equal(t, []string{"setup-2", "setup", "setup-3"}, ids)
}

func TestExtractHTML_EmptyTextFallback(t *testing.T) {
	entries, err := ExtractHTML(`<h2>Intro</h2><h2>   </h2><h3>&amp;&amp;</h3>`)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "section-2", entries[1].ID)
	assert.Equal(t, "section-3", entries[2].ID)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
	}
}

func TestExtractHTML_NestedMarkupText(t *testing.T) {
	entries, err := ExtractHTML(`<h2>Using <code>go   test</code> <em>well</em></h2>`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Using go test well", entries[0].Text)
	assert.Equal(t, "using-go-test-well", entries[0].ID)
}

func TestExtract_Idempotent(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<h2>A</h2><h2>A</h2><h3></h3><h2>B &amp; C</h2>`))
	require.NoError(t, err)

	first := Extract(doc)
	Stamp(doc, first)
	second := Extract(doc)
	assert.Equal(t, first, second)
}

func TestExtract_Nil(t *testing.T) {
	assert.Empty(t, Extract(nil))
}

func TestStamp_SetsAnchors(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<h2 id="old">Intro</h2><h3>Details</h3>`))
	require.NoError(t, err)
	Stamp(doc, Extract(doc))

	var buf strings.Builder
	require.NoError(t, html.Render(&buf, doc))
	out := buf.String()
	assert.Contains(t, out, `<h2 id="intro">Intro</h2>`)
	assert.Contains(t, out, `<h3 id="details">Details</h3>`)
}
