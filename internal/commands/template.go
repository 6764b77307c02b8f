package commands

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/pixil98/mudcore/internal/display"
)

var templateFuncs = func() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["capitalize"] = display.Capitalize
	funcs["wrap"] = display.WrapWidth
	return funcs
}()

// templateCache holds parsed config templates keyed by their source. Command
// configs are fixed once loaded, so the cache only grows with the command set.
var templateCache sync.Map

// ParseTemplate parses a template string with the sprig functions plus
// capitalize and wrap.
func ParseTemplate(src string) (*template.Template, error) {
	if cached, ok := templateCache.Load(src); ok {
		return cached.(*template.Template), nil
	}
	tmpl, err := template.New("").Funcs(templateFuncs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	actual, _ := templateCache.LoadOrStore(src, tmpl)
	return actual.(*template.Template), nil
}

// ExpandTemplate renders src against data.
func ExpandTemplate(src string, data any) (string, error) {
	tmpl, err := ParseTemplate(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// expandConfigTemplate substitutes inputs and actor fields into a config
// string before the handler runs. Plain strings pass through untouched.
func expandConfigTemplate(src string, rt *RuntimeContext) (string, error) {
	if !strings.Contains(src, "{{") {
		return src, nil
	}
	return ExpandTemplate(src, rt)
}
