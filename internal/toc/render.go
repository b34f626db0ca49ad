package toc

import (
	"bytes"
	"html/template"
	"io"
)

var navTemplate = template.Must(template.New("nav").Parse(`
{{- define "list" -}}
<ol class="toc-list">
{{- range . }}
<li class="toc-item toc-level-{{ .Entry.Level }}{{ if .Active }} toc-active{{ end }}">
<a href="#{{ .Entry.ID }}" data-toc-target="{{ .Entry.ID }}"{{ if .Active }} aria-current="location"{{ end }}>{{ .Entry.Text }}</a>
{{- if .Children }}{{ template "list" .Children }}{{ end -}}
</li>
{{- end }}
</ol>
{{- end -}}
<nav class="toc toc-{{ .Presentation }}" data-toc-presentation="{{ .Presentation }}" data-toc-state="{{ .State }}" aria-label="Table of contents">
{{- if eq .Presentation "floating" }}
<button type="button" class="toc-trigger" aria-expanded="{{ .Expanded }}" aria-controls="{{ .ListID }}">On this page</button>
{{- else }}
<p class="toc-title">On this page</p>
{{- end }}
<div id="{{ .ListID }}" class="toc-body"{{ if .Hidden }} hidden{{ end }}>
{{ template "list" .Nodes }}
</div>
</nav>
`))

type navNode struct {
	Entry    HeadingEntry
	Active   bool
	Children []navNode
}

type navView struct {
	Presentation string
	State        string
	Expanded     bool
	Hidden       bool
	ListID       string
	Nodes        []navNode
}

// Render writes the widget's current outline as a <nav> element. Empty
// widgets write nothing.
func Render(w io.Writer, widget *Widget) error {
	if widget.Empty() {
		return nil
	}
	active, hasActive := widget.Active()
	state := widget.State()

	var convert func([]*OutlineNode) []navNode
	convert = func(ns []*OutlineNode) []navNode {
		out := make([]navNode, 0, len(ns))
		for _, n := range ns {
			out = append(out, navNode{
				Entry:    n.Entry,
				Active:   hasActive && n.Entry.ID == active.ID,
				Children: convert(n.Children),
			})
		}
		return out
	}

	pres := widget.Presentation()
	return navTemplate.Execute(w, navView{
		Presentation: pres.String(),
		State:        state.String(),
		Expanded:     state == Expanded,
		Hidden:       pres == Floating && state == Collapsed,
		ListID:       "toc-" + pres.String(),
		Nodes:        convert(widget.Outline()),
	})
}

// RenderHTML is Render into a template-safe string.
func RenderHTML(widget *Widget) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Render(&buf, widget); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
