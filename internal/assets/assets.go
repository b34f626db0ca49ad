package assets

import (
	"bytes"
	"embed"
	"html"
	"html/template"
	"path"
)

//go:embed icons/*.svg
var icons embed.FS

// Icon returns the named SVG icon for inline use, with class added to the
// root element. Unknown names render nothing.
func Icon(name, class string) template.HTML {
	data, err := icons.ReadFile(path.Join("icons", name+".svg"))
	if err != nil {
		return ""
	}
	data = bytes.TrimSpace(data)
	if class != "" {
		attr := []byte(` class="` + html.EscapeString(class) + `"`)
		if i := bytes.Index(data, []byte("<svg")); i >= 0 {
			at := i + len("<svg")
			data = append(data[:at:at], append(attr, data[at:]...)...)
		}
	}
	return template.HTML(data)
}

// FuncMap exposes Icon to templates as {{icon "github" "h-4 w-4"}}.
func FuncMap() template.FuncMap {
	return template.FuncMap{"icon": Icon}
}
