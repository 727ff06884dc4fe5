// Package layout describes print templates: the page, the map frame, and the
// legend, scale bar and label items placed around it. A template is resolved
// once into a lookup keyed by item kind so callers dispatch on the tag instead
// of inspecting items one by one.
package layout

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
)

//go:embed templates/*.yaml
var builtinFS embed.FS

// Paper is a supported paper size.
type Paper string

const (
	A4 Paper = "A4"
	A3 Paper = "A3"
)

// Papers lists the supported paper sizes.
var Papers = []Paper{A4, A3}

// ParsePaper accepts "a4", "A3", etc.
func ParsePaper(s string) (Paper, error) {
	switch Paper(strings.ToUpper(strings.TrimSpace(s))) {
	case A4, "":
		return A4, nil
	case A3:
		return A3, nil
	}
	return "", fmt.Errorf("unsupported paper size %q", s)
}

// ItemKind tags a layout item.
type ItemKind string

const (
	KindMap      ItemKind = "map"
	KindScaleBar ItemKind = "scalebar"
	KindLegend   ItemKind = "legend"
	KindLabel    ItemKind = "label"
)

// Rect is a rectangle on the page in millimetres, origin top-left.
type Rect struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Item is one placed element of the template.
type Item struct {
	ID   string   `yaml:"id" json:"id"`
	Kind ItemKind `yaml:"kind" json:"kind"`
	Slot string   `yaml:"slot,omitempty" json:"slot,omitempty"`
	Rect `yaml:",inline"`
}

// Page is the page size in millimetres.
type Page struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Template is a print layout.
type Template struct {
	Name  string `yaml:"name" json:"name"`
	Paper Paper  `yaml:"paper" json:"paper"`
	Page  Page   `yaml:"page" json:"page"`
	Items []Item `yaml:"items" json:"items"`

	byKind map[ItemKind][]Item
	bySlot map[string]Item
}

// Builtin returns the embedded template for paper.
func Builtin(paper Paper) (*Template, error) {
	data, err := builtinFS.ReadFile("templates/" + strings.ToLower(string(paper)) + ".yaml")
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidTemplate, err, "no built-in template for %s", paper)
	}
	return Parse(data)
}

// FromDir returns a template source that prefers dir/<paper>.yaml over the
// built-in template. An empty dir always uses the built-ins.
func FromDir(dir string) func(Paper) (*Template, error) {
	return func(paper Paper) (*Template, error) {
		if dir != "" {
			path := filepath.Join(dir, strings.ToLower(string(paper))+".yaml")
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}
		return Builtin(paper)
	}
}

// Load reads a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidTemplate, err, "reading template %s", path)
	}
	return Parse(data)
}

// Parse decodes and resolves a YAML template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, apperr.Wrap(apperr.InvalidTemplate, err, "parsing template")
	}
	if err := t.resolve(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Template) resolve() error {
	if _, err := ParsePaper(string(t.Paper)); err != nil || t.Paper == "" {
		return apperr.New(apperr.InvalidTemplate, "template %q: unsupported paper %q", t.Name, t.Paper)
	}
	if t.Page.Width <= 0 || t.Page.Height <= 0 {
		return apperr.New(apperr.InvalidTemplate, "template %q: page size must be positive", t.Name)
	}

	t.byKind = make(map[ItemKind][]Item)
	t.bySlot = make(map[string]Item)
	ids := make(map[string]bool)
	for _, it := range t.Items {
		if it.ID == "" {
			return apperr.New(apperr.InvalidTemplate, "template %q: item without id", t.Name)
		}
		if ids[it.ID] {
			return apperr.New(apperr.InvalidTemplate, "template %q: duplicate item id %q", t.Name, it.ID)
		}
		ids[it.ID] = true
		if it.Width <= 0 || it.Height <= 0 {
			return apperr.New(apperr.InvalidTemplate, "template %q: item %q has no size", t.Name, it.ID)
		}
		switch it.Kind {
		case KindMap, KindScaleBar, KindLegend:
		case KindLabel:
			if it.Slot == "" {
				return apperr.New(apperr.InvalidTemplate, "template %q: label %q has no slot", t.Name, it.ID)
			}
			if _, dup := t.bySlot[it.Slot]; dup {
				return apperr.New(apperr.InvalidTemplate, "template %q: slot %q used twice", t.Name, it.Slot)
			}
			t.bySlot[it.Slot] = it
		default:
			return apperr.New(apperr.InvalidTemplate, "template %q: item %q has unknown kind %q", t.Name, it.ID, it.Kind)
		}
		t.byKind[it.Kind] = append(t.byKind[it.Kind], it)
	}

	if n := len(t.byKind[KindMap]); n != 1 {
		return apperr.New(apperr.InvalidTemplate, "template %q: want exactly one map item, have %d", t.Name, n)
	}
	for _, k := range []ItemKind{KindLegend, KindScaleBar} {
		if len(t.byKind[k]) > 1 {
			return apperr.New(apperr.InvalidTemplate, "template %q: more than one %s item", t.Name, k)
		}
	}
	return nil
}

// MapFrame returns the map item.
func (t *Template) MapFrame() Item {
	return t.byKind[KindMap][0]
}

// Items of a kind, in template order.
func (t *Template) ItemsOf(kind ItemKind) []Item {
	return t.byKind[kind]
}

// Slot returns the label item bound to a slot.
func (t *Template) Slot(slot string) (Item, bool) {
	it, ok := t.bySlot[slot]
	return it, ok
}
