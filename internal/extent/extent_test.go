package extent

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
)

func TestComputeExample(t *testing.T) {
	c := orb.Point{500, 500}
	b, err := Compute(&c, 25000, 100, 80)
	require.NoError(t, err)

	assert.Equal(t, orb.Point{-750, -500}, b.Min)
	assert.Equal(t, orb.Point{1750, 1500}, b.Max)
	assert.Equal(t, c, b.Center())
	assert.InDelta(t, 2500, b.Max[0]-b.Min[0], 1e-9)
	assert.InDelta(t, 2000, b.Max[1]-b.Min[1], 1e-9)
}

func TestComputeKeepsFrameAspect(t *testing.T) {
	c := orb.Point{412345.5, 5654321.25}
	for _, scale := range []float64{10000, 15000, 25000, 50000} {
		b, err := Compute(&c, scale, 277, 190)
		require.NoError(t, err)
		w, h := GroundSize(scale, 277, 190)
		assert.InDelta(t, w, b.Max[0]-b.Min[0], 1e-6)
		assert.InDelta(t, h, b.Max[1]-b.Min[1], 1e-6)
		assert.InDelta(t, 277.0/190.0, w/h, 1e-12)
		assert.InDelta(t, c[0], b.Center()[0], 1e-6)
		assert.InDelta(t, c[1], b.Center()[1], 1e-6)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	c := orb.Point{0, 0}
	nan := orb.Point{math.NaN(), 0}
	cases := []struct {
		name     string
		centroid *orb.Point
		scale    float64
		w, h     float64
	}{
		{"nil centroid", nil, 25000, 100, 80},
		{"zero scale", &c, 0, 100, 80},
		{"negative width", &c, 25000, -1, 80},
		{"zero height", &c, 25000, 100, 0},
		{"nan centroid", &nan, 25000, 100, 80},
		{"inf scale", &c, math.Inf(1), 100, 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.centroid, tc.scale, tc.w, tc.h)
			assert.Equal(t, apperr.InvalidGeometry, apperr.KindOf(err))
		})
	}
}

func TestCentroidEmptyLayer(t *testing.T) {
	_, err := Centroid(orb.Bound{}, 0)
	assert.Equal(t, apperr.InvalidGeometry, apperr.KindOf(err))
}

func TestCentroidOfBound(t *testing.T) {
	p, err := Centroid(orb.Bound{Min: orb.Point{0, 10}, Max: orb.Point{20, 30}}, 3)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{10, 20}, p)

	_, err = Centroid(orb.Bound{Min: orb.Point{5, 0}, Max: orb.Point{0, 0}}, 1)
	assert.Equal(t, apperr.InvalidGeometry, apperr.KindOf(err))
}
