// Package catalog holds the static basemap source table: one web map service
// entry per (federal state, print scale), the two global tile sources, and
// the copyright notice shown with each of them.
//
// The canonical table is embedded from catalog.yaml. A replacement table can
// be loaded from disk with Load; it is validated the same way.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultTable []byte

// Tile source keys.
const (
	TileSatellite     = "satellite"
	TileOpenStreetMap = "osm"
)

// ScaleSource is one WMS entry for a region at a print scale.
type ScaleSource struct {
	URL   string `yaml:"url" json:"url" doc:"WMS endpoint, used verbatim"`
	Layer string `yaml:"layer" json:"layer" doc:"Remote layer identifier"`
	Title string `yaml:"title" json:"title" doc:"Display title"`
}

// Region is a federal state with its per-scale sources.
type Region struct {
	Name      string              `yaml:"name" json:"name" doc:"Region name" example:"Niedersachsen"`
	Copyright string              `yaml:"copyright" json:"copyright" doc:"Copyright notice for the topographic basemap"`
	Sources   map[int]ScaleSource `yaml:"scales" json:"sources" doc:"Sources keyed by scale denominator"`
}

// Source returns the entry for scale. A missing entry is reported as false,
// never as a zero value.
func (r Region) Source(scale int) (ScaleSource, bool) {
	s, ok := r.Sources[scale]
	return s, ok
}

// Scales returns the offered scale denominators in ascending order.
func (r Region) Scales() []int {
	scales := make([]int, 0, len(r.Sources))
	for s := range r.Sources {
		scales = append(scales, s)
	}
	sort.Ints(scales)
	return scales
}

// TileSource is a global XYZ tile service.
type TileSource struct {
	Title     string `yaml:"title" json:"title"`
	URL       string `yaml:"url" json:"url" doc:"URL template with {z}/{x}/{y} placeholders"`
	ZMin      int    `yaml:"zmin" json:"zmin"`
	ZMax      int    `yaml:"zmax" json:"zmax"`
	CRS       string `yaml:"crs" json:"crs"`
	Copyright string `yaml:"copyright" json:"copyright"`
}

type table struct {
	Regions []Region              `yaml:"regions"`
	Tiles   map[string]TileSource `yaml:"tiles"`
}

// Catalog is an immutable, validated source table.
type Catalog struct {
	regions []Region
	byName  map[string]int
	tiles   map[string]TileSource
}

var builtin = mustParse(defaultTable)

// Default returns the embedded catalog.
func Default() *Catalog {
	return builtin
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		byName: make(map[string]int, len(t.Regions)),
		tiles:  t.Tiles,
	}
	for i, r := range t.Regions {
		if r.Name == "" {
			return nil, fmt.Errorf("catalog region %d has no name", i)
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("catalog region %q listed twice", r.Name)
		}
		if r.Copyright == "" {
			return nil, fmt.Errorf("catalog region %q has no copyright", r.Name)
		}
		if len(r.Sources) == 0 {
			return nil, fmt.Errorf("catalog region %q offers no scales", r.Name)
		}
		for scale, s := range r.Sources {
			if scale <= 0 || s.URL == "" || s.Layer == "" {
				return nil, fmt.Errorf("catalog region %q scale %d is incomplete", r.Name, scale)
			}
		}
		c.byName[r.Name] = i
		c.regions = append(c.regions, r)
	}
	for _, key := range []string{TileSatellite, TileOpenStreetMap} {
		ts, ok := t.Tiles[key]
		if !ok {
			return nil, fmt.Errorf("catalog has no %q tile source", key)
		}
		if ts.URL == "" || ts.ZMax < ts.ZMin {
			return nil, fmt.Errorf("catalog tile source %q is incomplete", key)
		}
	}
	return c, nil
}

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Regions returns the regions in table order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Region looks up a region by name.
func (c *Catalog) Region(name string) (Region, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Region{}, false
	}
	return c.regions[i], true
}

// TileSource looks up a global tile source by key.
func (c *Catalog) TileSource(key string) (TileSource, bool) {
	ts, ok := c.tiles[key]
	return ts, ok
}
