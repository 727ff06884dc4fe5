// Package local is a file-backed layer host. It keeps an in-memory layer
// registry and reads vector files from disk: GeoJSON directly, everything
// else through the DuckDB spatial extension.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
)

// Prober checks that a basemap source answers before it is registered.
type Prober func(ctx context.Context, d basemap.Descriptor) error

type layer struct {
	handle   composer.LayerHandle
	desc     composer.LayerDescriptor
	vector   bool
	visible  bool
	features orb.Collection
	bound    orb.Bound
	crs      string
}

// Host implements composer.Host over local files.
type Host struct {
	mu     sync.RWMutex
	seq    int
	layers map[composer.LayerHandle]*layer
	order  []composer.LayerHandle

	db    *sql.DB
	probe Prober
	log   *logging.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithDB enables reading shapefiles, GeoPackages and other OGR formats.
func WithDB(conn *sql.DB) Option { return func(h *Host) { h.db = conn } }

// WithProber checks basemap sources on AddLayer.
func WithProber(p Prober) Option { return func(h *Host) { h.probe = p } }

func WithLogger(l *logging.Logger) Option { return func(h *Host) { h.log = l } }

// New creates an empty host.
func New(opts ...Option) *Host {
	h := &Host{
		layers: make(map[composer.LayerHandle]*layer),
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLayer registers a layer. Vector layers are read eagerly so an invalid
// file fails here.
func (h *Host) AddLayer(ctx context.Context, d composer.LayerDescriptor) (composer.LayerHandle, error) {
	l := &layer{desc: d, visible: true}

	switch d.Provider {
	case composer.ProviderOGR:
		fc, err := h.readVector(ctx, d.URI)
		if err != nil {
			return "", err
		}
		l.vector = true
		l.features = fc
		l.bound = fc.Bound()
		l.crs = readPRJ(d.URI)
	case basemap.ProviderWMS, basemap.ProviderXYZ:
		if h.probe != nil && d.Basemap != nil {
			if err := h.probe(ctx, *d.Basemap); err != nil {
				return "", err
			}
		}
	default:
		return "", fmt.Errorf("unsupported layer provider %q", d.Provider)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	l.handle = composer.LayerHandle("layer-" + strconv.Itoa(h.seq))
	h.layers[l.handle] = l
	h.order = append(h.order, l.handle)
	h.log.Debug("layer added", "layer", string(l.handle), "name", d.Name, "provider", d.Provider)
	return l.handle, nil
}

func (h *Host) RemoveLayer(id composer.LayerHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.layers[id]; !ok {
		return fmt.Errorf("layer %s not found", id)
	}
	delete(h.layers, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

// Layers returns handles in registration order.
func (h *Host) Layers() []composer.LayerHandle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]composer.LayerHandle, len(h.order))
	copy(out, h.order)
	return out
}

func (h *Host) Extent(id composer.LayerHandle) (orb.Bound, int, error) {
	l, err := h.get(id)
	if err != nil {
		return orb.Bound{}, 0, err
	}
	if !l.vector {
		return orb.Bound{}, 0, fmt.Errorf("layer %s has no vector geometry", id)
	}
	return l.bound, len(l.features), nil
}

// CRSDescription returns the projection name from the layer's .prj file, or
// "" when there is none.
func (h *Host) CRSDescription(id composer.LayerHandle) string {
	l, err := h.get(id)
	if err != nil {
		return ""
	}
	return l.crs
}

// Root lists the layers with the most recently added on top.
func (h *Host) Root() legend.Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	root := legend.Node{Name: "root", Kind: legend.GroupNode, Visible: true}
	for i := len(h.order) - 1; i >= 0; i-- {
		l := h.layers[h.order[i]]
		kind := legend.RasterNode
		if l.vector {
			kind = legend.VectorNode
		}
		root.Children = append(root.Children, legend.Node{
			LayerID: string(l.handle),
			Name:    l.desc.Name,
			Kind:    kind,
			Visible: l.visible,
		})
	}
	return root
}

// SetVisible toggles a layer's visibility in the tree.
func (h *Host) SetVisible(id composer.LayerHandle, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.layers[id]
	if !ok {
		return fmt.Errorf("layer %s not found", id)
	}
	l.visible = visible
	return nil
}

// Features returns a vector layer's geometries.
func (h *Host) Features(id composer.LayerHandle) (orb.Collection, bool) {
	l, err := h.get(id)
	if err != nil || !l.vector {
		return nil, false
	}
	return l.features, true
}

// Name returns a layer's display name.
func (h *Host) Name(id composer.LayerHandle) string {
	l, err := h.get(id)
	if err != nil {
		return ""
	}
	return l.desc.Name
}

func (h *Host) get(id composer.LayerHandle) (*layer, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	l, ok := h.layers[id]
	if !ok {
		return nil, fmt.Errorf("layer %s not found", id)
	}
	return l, nil
}

var projcsName = regexp.MustCompile(`^\s*PROJCS\[\s*"([^"]+)"`)

func readPRJ(path string) string {
	data, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	if err != nil {
		return ""
	}
	if m := projcsName.FindSubmatch(data); m != nil {
		return strings.ReplaceAll(string(m[1]), "_", " ")
	}
	return ""
}
