// Package templates renders the HTML fragments patched into Datastar pages.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

//go:embed fragments/*.html
var fragmentsFS embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	"base":       filepath.Base,
	"thousands":  thousands,
	"stateLabel": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the embedded fragments.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fragmentsFS, "fragments/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Override replaces or adds fragments from dir/*.html. Call it before the
// first render; a dir without fragments is an error.
func (r *Renderer) Override(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl, err := r.templates.Clone()
	if err != nil {
		return err
	}
	tmpl, err = tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	r.templates = tmpl
	return nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// thousands groups digits with dots: 25000 -> "25.000".
func thousands(n int) string {
	if n < 0 {
		return "-" + thousands(-n)
	}
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "." + s[i:]
	}
	return s
}
