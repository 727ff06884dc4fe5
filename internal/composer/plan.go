package composer

import (
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
	"github.com/joeblew999/plat-mapcraft/internal/scalebar"
)

// Plan is the composed layout handed to the exporter.
type Plan struct {
	RunID    string             `json:"runId"`
	Template *layout.Template   `json:"template"`
	Paper    layout.Paper       `json:"paper"`
	Scale    int                `json:"scale"`
	DPI      float64            `json:"dpi"`
	Basemap  basemap.Descriptor `json:"basemap"`
	CRS      string             `json:"crs"`
	Items    []PlanItem         `json:"items"`
}

// MapContent is the map frame's content.
type MapContent struct {
	Extent  orb.Bound   `json:"extent"`
	Scale   int         `json:"scale"`
	Basemap LayerHandle `json:"basemap"`
	// Layers in drawing order, bottom first.
	Layers []LayerHandle `json:"layers"`
}

// Content returns the layers drawn above the basemap, bottom first.
func (m *MapContent) Content() []LayerHandle {
	out := make([]LayerHandle, 0, len(m.Layers))
	for _, h := range m.Layers {
		if h != m.Basemap {
			out = append(out, h)
		}
	}
	return out
}

// LegendContent is the rebuilt legend model.
type LegendContent struct {
	Entries []legend.Entry `json:"entries"`
	Styles  legend.Styles  `json:"styles"`
}

// PlanItem is one template item with its content. Exactly one of the
// content fields is set, matching Item.Kind.
type PlanItem struct {
	layout.Item
	Map      *MapContent    `json:"map,omitempty"`
	Legend   *LegendContent `json:"legend,omitempty"`
	ScaleBar *scalebar.Spec `json:"scaleBar,omitempty"`
	Label    *label.Result  `json:"label,omitempty"`
}

// Map returns the map item content.
func (p *Plan) Map() *MapContent {
	for _, it := range p.Items {
		if it.Map != nil {
			return it.Map
		}
	}
	return nil
}

// Labels returns label results keyed by slot.
func (p *Plan) Labels() map[string]label.Result {
	out := make(map[string]label.Result)
	for _, it := range p.Items {
		if it.Label != nil {
			out[it.Slot] = *it.Label
		}
	}
	return out
}

// parts are the planned pieces a template is filled from.
type parts struct {
	mapContent MapContent
	legend     LegendContent
	scaleBar   scalebar.Spec
	labels     map[string]label.Result
}

type itemFiller func(it layout.Item, p *parts) (PlanItem, error)

// fillers dispatches on the item tag.
var fillers = map[layout.ItemKind]itemFiller{
	layout.KindMap: func(it layout.Item, p *parts) (PlanItem, error) {
		m := p.mapContent
		return PlanItem{Item: it, Map: &m}, nil
	},
	layout.KindLegend: func(it layout.Item, p *parts) (PlanItem, error) {
		l := p.legend
		return PlanItem{Item: it, Legend: &l}, nil
	},
	layout.KindScaleBar: func(it layout.Item, p *parts) (PlanItem, error) {
		s := p.scaleBar
		return PlanItem{Item: it, ScaleBar: &s}, nil
	},
	layout.KindLabel: func(it layout.Item, p *parts) (PlanItem, error) {
		r, ok := p.labels[it.Slot]
		if !ok {
			return PlanItem{}, apperr.New(apperr.InvalidTemplate, "label %q uses unknown slot %q", it.ID, it.Slot)
		}
		return PlanItem{Item: it, Label: &r}, nil
	},
}

func assemble(tmpl *layout.Template, p *parts) ([]PlanItem, error) {
	items := make([]PlanItem, 0, len(tmpl.Items))
	for _, it := range tmpl.Items {
		fill, ok := fillers[it.Kind]
		if !ok {
			return nil, apperr.New(apperr.InvalidTemplate, "item %q has unknown kind %q", it.ID, it.Kind)
		}
		pi, err := fill(it, p)
		if err != nil {
			return nil, err
		}
		items = append(items, pi)
	}
	return items, nil
}
