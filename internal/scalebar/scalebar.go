// Package scalebar sizes the printed scale bar for a scale and paper size.
package scalebar

import (
	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

// Segments is the number of bar segments for every supported scale.
const Segments = 2

// Spec is the planned scale bar.
type Spec struct {
	Scale           int     `json:"scale"`
	Paper           string  `json:"paper"`
	SegmentCount    int     `json:"segmentCount"`
	TotalKm         float64 `json:"totalKm"`
	UnitsPerSegment float64 `json:"unitsPerSegment" doc:"Kilometres per segment"`
	DeltaX          float64 `json:"deltaX" doc:"Horizontal position adjustment in mm"`
	DeltaY          float64 `json:"deltaY" doc:"Vertical position adjustment in mm"`
}

// BarLengthMM is the printed length of the whole bar.
func (s Spec) BarLengthMM() float64 {
	return s.TotalKm * 1e6 / float64(s.Scale)
}

type key struct {
	scale int
	paper layout.Paper
}

type entry struct {
	km     float64
	dx, dy float64
}

// The A3 nudges for 10000 and 15000 point in opposite directions and the
// larger A3 scales have none. Kept as listed.
var table = map[key]entry{
	{10000, layout.A4}: {km: 0.4, dx: -1.5},
	{15000, layout.A4}: {km: 0.6, dx: -1.5},
	{25000, layout.A4}: {km: 1.0, dx: -2.5},
	{50000, layout.A4}: {km: 2.0, dx: -3.5},

	{10000, layout.A3}: {km: 0.4, dx: 2.0},
	{15000, layout.A3}: {km: 0.6, dx: -2.0},
	{25000, layout.A3}: {km: 1.0},
	{50000, layout.A3}: {km: 2.0},
}

// Scales lists the scale denominators the table covers, ascending.
var Scales = []int{10000, 15000, 25000, 50000}

// Plan looks up the scale bar for (scale, paper). Pairs missing from the
// table fail; there is no default.
func Plan(scale int, paper layout.Paper) (Spec, error) {
	e, ok := table[key{scale, paper}]
	if !ok {
		return Spec{}, apperr.New(apperr.UnsupportedScale, "no scale bar for 1:%d on %s", scale, paper)
	}
	return Spec{
		Scale:           scale,
		Paper:           string(paper),
		SegmentCount:    Segments,
		TotalKm:         e.km,
		UnitsPerSegment: e.km / Segments,
		DeltaX:          e.dx,
		DeltaY:          e.dy,
	}, nil
}
