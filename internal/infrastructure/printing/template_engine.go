package printing

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders certificate markup from a template source.
// Values are HTML-escaped when bound and raw values are inserted verbatim,
// so the output carries each value exactly once in the form it was given.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// NewTemplateEngine creates a new template engine with default configuration
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{}

	e.funcMap = template.FuncMap{
		// String utilities
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": titleCase,
		"trim":  strings.TrimSpace,

		// Conditional
		"default": defaultFunc,
	}

	return e
}

// TemplateData is the data record bound to a template.
// Values are HTML-escaped. Raw values are trusted content (such as data URIs
// for embedded images) and are inserted as-is.
type TemplateData struct {
	Values map[string]string
	Raw    map[string]string
}

// Render substitutes data into the template source and returns the markup.
// Placeholders with no matching field render as empty content.
func (e *TemplateEngine) Render(ctx context.Context, name, source string, data TemplateData) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", NewRenderError(ErrCodeInvalidTemplate, "template content is empty", nil)
	}

	tmpl, err := template.New(name).
		Funcs(e.funcMap).
		Option("missingkey=zero").
		Parse(source)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidTemplate, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data.bind()); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}

	return buf.String(), nil
}

// bind flattens the data into the map the template executes against.
// A map of strings makes missing keys render as "".
func (d TemplateData) bind() map[string]string {
	bound := make(map[string]string, len(d.Values)+len(d.Raw))
	for k, v := range d.Values {
		bound[k] = template.HTMLEscapeString(v)
	}
	for k, v := range d.Raw {
		bound[k] = v
	}
	return bound
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func defaultFunc(def, val string) string {
	if val == "" {
		return def
	}
	return val
}
