package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIcon_InjectsClass(t *testing.T) {
	got := string(Icon("github", "icon h-4"))
	assert.True(t, strings.HasPrefix(got, `<svg class="icon h-4" xmlns=`), got)
	assert.True(t, strings.HasSuffix(got, "</svg>"))
}

func TestIcon_EscapesClass(t *testing.T) {
	got := string(Icon("clock", `x" onload="alert(1)`))
	assert.NotContains(t, got, `onload="alert`)
}

func TestIcon_Unknown(t *testing.T) {
	assert.Empty(t, Icon("nope", "x"))
	assert.Empty(t, Icon("../assets", ""))
}

func TestIcon_Reusable(t *testing.T) {
	a := Icon("eye", "one")
	b := Icon("eye", "two")
	assert.Contains(t, string(a), `class="one"`)
	assert.NotContains(t, string(a), "two")
	assert.Contains(t, string(b), `class="two"`)
}
