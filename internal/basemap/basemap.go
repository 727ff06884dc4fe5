// Package basemap resolves the background raster for a composition from the
// region catalog and builds the data-source URI the layer host loads it from.
package basemap

import (
	"fmt"
	"strings"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/catalog"
)

// Kind selects the basemap family.
type Kind int

const (
	Topographic Kind = iota
	Satellite
	OpenStreetMap
)

func (k Kind) String() string {
	switch k {
	case Topographic:
		return "topographic"
	case Satellite:
		return "satellite"
	case OpenStreetMap:
		return "osm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a user-facing name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "topographic", "topo", "wms":
		return Topographic, nil
	case "satellite", "sat":
		return Satellite, nil
	case "osm", "openstreetmap":
		return OpenStreetMap, nil
	}
	return 0, fmt.Errorf("unknown basemap kind %q", s)
}

// Fixed WMS request parameters.
const (
	WMSCRS       = "EPSG:25832"
	wmsDPIMode   = 7
	wmsFormat    = "image/png"
	featureCount = 10
)

// Opacity per kind. The topographic map is an overlay, the tile sources are a backdrop.
const (
	TopographicOpacity = 0.5
	TileOpacity        = 0.8
)

// Provider names understood by the layer host.
const (
	ProviderWMS = "wms"
	ProviderXYZ = "xyz"
)

// Descriptor is everything the host needs to register the basemap layer.
type Descriptor struct {
	Kind      Kind    `json:"-"`
	KindName  string  `json:"kind" doc:"topographic, satellite or osm"`
	Provider  string  `json:"provider" doc:"wms or xyz"`
	Name      string  `json:"name" doc:"Layer name shown in the host"`
	Title     string  `json:"title" doc:"Source title"`
	URI       string  `json:"uri" doc:"Data source URI"`
	Opacity   float64 `json:"opacity"`
	CRS       string  `json:"crs"`
	Copyright string  `json:"copyright"`

	// WMS fields.
	Endpoint    string `json:"endpoint,omitempty"`
	RemoteLayer string `json:"remoteLayer,omitempty"`

	// XYZ fields.
	ZMin int `json:"zmin,omitempty"`
	ZMax int `json:"zmax,omitempty"`
}

// Resolver turns (region, scale, kind) into a Descriptor.
type Resolver struct {
	catalog *catalog.Catalog
}

// NewResolver creates a resolver over c, or the embedded catalog when c is nil.
func NewResolver(c *catalog.Catalog) *Resolver {
	if c == nil {
		c = catalog.Default()
	}
	return &Resolver{catalog: c}
}

// Catalog returns the table the resolver reads.
func (r *Resolver) Catalog() *catalog.Catalog {
	return r.catalog
}

// Resolve returns the basemap descriptor. Satellite and OpenStreetMap ignore
// region and scale.
func (r *Resolver) Resolve(region string, scale int, kind Kind) (Descriptor, error) {
	switch kind {
	case Topographic:
		return r.resolveTopographic(region, scale)
	case Satellite:
		return r.resolveTiles(catalog.TileSatellite, kind)
	case OpenStreetMap:
		return r.resolveTiles(catalog.TileOpenStreetMap, kind)
	}
	return Descriptor{}, fmt.Errorf("unsupported basemap kind %v", kind)
}

func (r *Resolver) resolveTopographic(region string, scale int) (Descriptor, error) {
	reg, ok := r.catalog.Region(region)
	if !ok {
		return Descriptor{}, apperr.New(apperr.UnknownRegion, "region %q is not in the basemap catalog", region)
	}
	src, ok := reg.Source(scale)
	if !ok {
		return Descriptor{}, apperr.New(apperr.UnsupportedScale, "scale 1:%d is not offered for %s", scale, region)
	}

	return Descriptor{
		Kind:        Topographic,
		KindName:    Topographic.String(),
		Provider:    ProviderWMS,
		Name:        region + " Basemap",
		Title:       src.Title,
		URI:         WMSURI(src.URL, src.Layer),
		Opacity:     TopographicOpacity,
		CRS:         WMSCRS,
		Copyright:   reg.Copyright,
		Endpoint:    src.URL,
		RemoteLayer: src.Layer,
	}, nil
}

func (r *Resolver) resolveTiles(key string, kind Kind) (Descriptor, error) {
	ts, ok := r.catalog.TileSource(key)
	if !ok {
		return Descriptor{}, apperr.New(apperr.UnknownRegion, "tile source %q is not in the basemap catalog", key)
	}
	return Descriptor{
		Kind:      kind,
		KindName:  kind.String(),
		Provider:  ProviderXYZ,
		Name:      ts.Title,
		Title:     ts.Title,
		URI:       XYZURI(ts.URL, ts.ZMin, ts.ZMax, ts.CRS),
		Opacity:   TileOpacity,
		CRS:       ts.CRS,
		Copyright: ts.Copyright,
		ZMin:      ts.ZMin,
		ZMax:      ts.ZMax,
	}, nil
}

// WMSURI builds the WMS data-source string. The endpoint is appended verbatim.
func WMSURI(endpoint, layer string) string {
	return fmt.Sprintf(
		"contextualWMSLegend=0&crs=%s&dpiMode=%d&featureCount=%d&format=%s&layers=%s&styles=&url=%s",
		WMSCRS, wmsDPIMode, featureCount, wmsFormat, layer, endpoint,
	)
}

var templateEscaper = strings.NewReplacer("=", "%3D", "&", "%26")

// XYZURI builds the XYZ data-source string. '=' and '&' inside the tile
// template are percent-encoded so they do not split the outer query.
func XYZURI(template string, zmin, zmax int, crs string) string {
	uri := fmt.Sprintf("type=xyz&url=%s&zmax=%d&zmin=%d", templateEscaper.Replace(template), zmax, zmin)
	if crs != "" {
		uri += "&crs=" + crs
	}
	return uri
}
