package scalebar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

func TestPlan25000A4(t *testing.T) {
	s, err := Plan(25000, layout.A4)
	require.NoError(t, err)
	assert.Equal(t, 2, s.SegmentCount)
	assert.InDelta(t, 0.5, s.UnitsPerSegment, 1e-12)
	assert.InDelta(t, 40, s.BarLengthMM(), 1e-9)
}

func TestPlanUnsupportedScale(t *testing.T) {
	for _, p := range layout.Papers {
		_, err := Plan(99999, p)
		assert.Equal(t, apperr.UnsupportedScale, apperr.KindOf(err), p)
	}
	_, err := Plan(25000, layout.Paper("A0"))
	assert.Equal(t, apperr.UnsupportedScale, apperr.KindOf(err))
}

func TestTableIsTotal(t *testing.T) {
	for _, p := range layout.Papers {
		for _, scale := range Scales {
			s, err := Plan(scale, p)
			require.NoError(t, err, "%d %s", scale, p)
			assert.Equal(t, Segments, s.SegmentCount)
			assert.InDelta(t, s.TotalKm/2, s.UnitsPerSegment, 1e-12)
		}
	}
}

func TestPositionNudges(t *testing.T) {
	for _, scale := range Scales {
		s, _ := Plan(scale, layout.A4)
		assert.Less(t, s.DeltaX, 0.0, "A4 1:%d", scale)
	}

	a, _ := Plan(10000, layout.A3)
	b, _ := Plan(15000, layout.A3)
	assert.Greater(t, a.DeltaX, 0.0)
	assert.Less(t, b.DeltaX, 0.0)

	for _, scale := range []int{25000, 50000} {
		s, _ := Plan(scale, layout.A3)
		assert.Zero(t, s.DeltaX, "A3 1:%d", scale)
	}
}
