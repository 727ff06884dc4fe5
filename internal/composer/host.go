package composer

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
)

// LayerHandle identifies a layer registered with the host.
type LayerHandle string

// ProviderOGR marks a vector file layer.
const ProviderOGR = "ogr"

// LayerDescriptor describes a layer to register.
type LayerDescriptor struct {
	Name     string
	Provider string
	URI      string
	Opacity  float64
	// Basemap is set for the basemap layer.
	Basemap *basemap.Descriptor
}

// Registry is the host's project layer registry.
type Registry interface {
	AddLayer(ctx context.Context, d LayerDescriptor) (LayerHandle, error)
	RemoveLayer(h LayerHandle) error
	Layers() []LayerHandle
}

// Geometry reads reference layer geometry.
type Geometry interface {
	// Extent returns the layer's bounding box and feature count.
	Extent(h LayerHandle) (orb.Bound, int, error)
	CRSDescription(h LayerHandle) string
}

// Tree exposes the host's layer tree for the manual legend.
type Tree interface {
	Root() legend.Node
}

// Host bundles the collaborators a run mutates and reads.
type Host interface {
	Registry
	Geometry
	Tree
}

// Exporter writes a composed plan to a file.
type Exporter interface {
	ExportPDF(ctx context.Context, plan *Plan, path string) error
	ExportImage(ctx context.Context, plan *Plan, path string, dpi float64) error
}

// Notifier surfaces the outcome of a run to the user.
type Notifier interface {
	Notify(o Outcome)
}
