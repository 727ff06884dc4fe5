package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-mapcraft/internal/db"
)

// VectorExtensions maps readable file extensions to format names.
var VectorExtensions = map[string]string{
	".geojson":    "GeoJSON",
	".json":       "GeoJSON",
	".shp":        "Shapefile",
	".gpkg":       "GeoPackage",
	".parquet":    "GeoParquet",
	".geoparquet": "GeoParquet",
}

func (h *Host) readVector(ctx context.Context, path string) (orb.Collection, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := VectorExtensions[ext]; !ok {
		return nil, fmt.Errorf("unsupported vector format %q", ext)
	}
	if ext == ".geojson" || ext == ".json" {
		return readGeoJSON(path)
	}
	if h.db == nil {
		return nil, fmt.Errorf("reading %s needs the duckdb spatial extension", filepath.Base(path))
	}
	return h.readOGR(ctx, path)
}

func readGeoJSON(path string) (orb.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	out := make(orb.Collection, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			out = append(out, f.Geometry)
		}
	}
	return out, nil
}

func (h *Host) readOGR(ctx context.Context, path string) (orb.Collection, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT ST_AsWKB(geom) FROM ST_Read(%s) WHERE geom IS NOT NULL", db.Literal(path))
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	defer rows.Close()

	var out orb.Collection
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		g, err := wkb.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding geometry in %s: %w", filepath.Base(path), err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
