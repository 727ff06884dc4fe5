package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
)

const turbinesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"id": 1}, "geometry": {"type": "Point", "coordinates": [400000, 5500000]}},
    {"type": "Feature", "properties": {"id": 2}, "geometry": {"type": "Point", "coordinates": [401000, 5502000]}}
  ]
}`

const utmPRJ = `PROJCS["ETRS_1989_UTM_Zone_32N",GEOGCS["GCS_ETRS_1989",DATUM["D_ETRS_1989"]]]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAddGeoJSONLayer(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wea.geojson", turbinesGeoJSON)
	writeFile(t, dir, "wea.prj", utmPRJ)

	h := New()
	id, err := h.AddLayer(context.Background(), composer.LayerDescriptor{Name: "WEA", Provider: composer.ProviderOGR, URI: path})
	require.NoError(t, err)

	bound, n, err := h.Extent(id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 400000.0, bound.Min[0])
	assert.Equal(t, 5502000.0, bound.Max[1])
	assert.Equal(t, "ETRS 1989 UTM Zone 32N", h.CRSDescription(id))

	fc, ok := h.Features(id)
	require.True(t, ok)
	assert.Len(t, fc, 2)
	assert.Equal(t, "WEA", h.Name(id))
}

func TestAddLayerRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	h := New()
	ctx := context.Background()

	_, err := h.AddLayer(ctx, composer.LayerDescriptor{Provider: composer.ProviderOGR, URI: writeFile(t, dir, "a.txt", "x")})
	assert.Error(t, err)

	_, err = h.AddLayer(ctx, composer.LayerDescriptor{Provider: composer.ProviderOGR, URI: writeFile(t, dir, "b.geojson", "{")})
	assert.Error(t, err)

	_, err = h.AddLayer(ctx, composer.LayerDescriptor{Provider: composer.ProviderOGR, URI: writeFile(t, dir, "c.shp", "")})
	assert.ErrorContains(t, err, "duckdb")

	_, err = h.AddLayer(ctx, composer.LayerDescriptor{Provider: "postgres"})
	assert.Error(t, err)

	assert.Empty(t, h.Layers())
}

func TestBasemapProbe(t *testing.T) {
	probeErr := errors.New("service unavailable")
	var probed basemap.Descriptor
	h := New(WithProber(func(_ context.Context, d basemap.Descriptor) error {
		probed = d
		return probeErr
	}))

	d, err := basemap.NewResolver(nil).Resolve("Niedersachsen", 50000, basemap.Topographic)
	require.NoError(t, err)
	_, err = h.AddLayer(context.Background(), composer.LayerDescriptor{Name: d.Name, Provider: d.Provider, URI: d.URI, Basemap: &d})

	assert.ErrorIs(t, err, probeErr)
	assert.Equal(t, d.URI, probed.URI)
	assert.Empty(t, h.Layers())
}

func TestRegistryAndTree(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wea.geojson", turbinesGeoJSON)
	h := New()
	ctx := context.Background()

	bm, err := h.AddLayer(ctx, composer.LayerDescriptor{Name: "OSM", Provider: basemap.ProviderXYZ, URI: "type=xyz"})
	require.NoError(t, err)
	wea, err := h.AddLayer(ctx, composer.LayerDescriptor{Name: "WEA", Provider: composer.ProviderOGR, URI: path})
	require.NoError(t, err)
	assert.Equal(t, []composer.LayerHandle{bm, wea}, h.Layers())

	_, _, err = h.Extent(bm)
	assert.Error(t, err)

	root := h.Root()
	require.Len(t, root.Children, 2)
	assert.Equal(t, legend.VectorNode, root.Children[0].Kind)
	assert.Equal(t, legend.RasterNode, root.Children[1].Kind)

	require.NoError(t, h.SetVisible(wea, false))
	assert.Empty(t, legend.Collect(h.Root(), 0))

	require.NoError(t, h.RemoveLayer(bm))
	assert.Error(t, h.RemoveLayer(bm))
	assert.Equal(t, []composer.LayerHandle{wea}, h.Layers())
}
