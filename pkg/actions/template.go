package actions

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aretw0/taskgraph/pkg/domain"
)

// Template is a configuration string rendered against a fragment context.
type Template struct {
	raw  string
	tmpl *template.Template
}

// ParseTemplate compiles raw. Strings without actions render to themselves.
func ParseTemplate(name, raw string) (*Template, error) {
	if !strings.Contains(raw, "{{") {
		return &Template{raw: raw}, nil
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Funcs(funcs).Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return &Template{raw: raw, tmpl: tmpl}, nil
}

// String returns the unrendered template.
func (t *Template) String() string { return t.raw }

// Render evaluates the template for fctx.
func (t *Template) Render(fctx domain.FragmentContext) (string, error) {
	if t.tmpl == nil {
		return t.raw, nil
	}
	var sb strings.Builder
	if err := t.tmpl.Execute(&sb, TemplateData(fctx)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

var funcs = template.FuncMap{"get": get}

// get follows keys through nested maps and returns "" when one is missing.
func get(v any, keys ...string) any {
	for _, k := range keys {
		var ok bool
		switch m := v.(type) {
		case map[string]any:
			v, ok = m[k]
		case map[string]string:
			v, ok = m[k]
		}
		if !ok {
			return ""
		}
	}
	if v == nil {
		return ""
	}
	return v
}

// TemplateData is the data templates are rendered with.
func TemplateData(fctx domain.FragmentContext) map[string]any {
	f := fctx.Fragment
	return map[string]any{
		"id":      f.ID,
		"type":    f.Type,
		"body":    f.Body,
		"payload": f.Payload,
		"config":  f.Configuration,
		"path":    fctx.Request.Path,
		"method":  fctx.Request.Method,
		"params":  firstValues(fctx.Request.Params),
		"headers": firstValues(fctx.Request.Headers),
	}
}

func firstValues(m map[string][]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
