package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/service"
)

func TestParseLayer(t *testing.T) {
	l, err := parseLayer("turbines=wea.shp")
	require.NoError(t, err)
	assert.Equal(t, service.LayerRequest{Role: "turbines", File: "wea.shp"}, l)

	l, err = parseLayer("site_boundary=/data/gebiet.geojson,Projektgebiet Nord")
	require.NoError(t, err)
	assert.Equal(t, "/data/gebiet.geojson", l.File)
	assert.Equal(t, "Projektgebiet Nord", l.Name)

	for _, bad := range []string{"wea.shp", "=wea.shp", "turbines="} {
		_, err := parseLayer(bad)
		assert.Error(t, err, bad)
	}
}
