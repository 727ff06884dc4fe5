// Package extent computes the real-world rectangle a print map frame shows
// at a given scale.
package extent

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
)

// mmPerMeter converts paper millimetres at scale 1:1 to ground metres.
const mmPerMeter = 1000

// Centroid returns the center of a reference layer's bounding box. A layer
// with no features has no centroid.
func Centroid(bound orb.Bound, featureCount int) (orb.Point, error) {
	if featureCount <= 0 {
		return orb.Point{}, apperr.New(apperr.InvalidGeometry, "reference layer has no features")
	}
	if !finite(bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]) || bound.Min[0] > bound.Max[0] || bound.Min[1] > bound.Max[1] {
		return orb.Point{}, apperr.New(apperr.InvalidGeometry, "reference layer extent is invalid")
	}
	return bound.Center(), nil
}

// Compute returns the extent centered on centroid whose size is the frame
// size in millimetres multiplied by scale, in metres.
func Compute(centroid *orb.Point, scale float64, frameWidth, frameHeight float64) (orb.Bound, error) {
	if centroid == nil {
		return orb.Bound{}, apperr.New(apperr.InvalidGeometry, "no centroid for the map extent")
	}
	if !finite(centroid[0], centroid[1], scale, frameWidth, frameHeight) {
		return orb.Bound{}, apperr.New(apperr.InvalidGeometry, "extent inputs must be finite")
	}
	if scale <= 0 || frameWidth <= 0 || frameHeight <= 0 {
		return orb.Bound{}, apperr.New(apperr.InvalidGeometry, "scale and frame size must be positive")
	}

	halfW := frameWidth * scale / mmPerMeter / 2
	halfH := frameHeight * scale / mmPerMeter / 2
	c := *centroid
	return orb.Bound{
		Min: orb.Point{c[0] - halfW, c[1] - halfH},
		Max: orb.Point{c[0] + halfW, c[1] + halfH},
	}, nil
}

// GroundSize returns the world width and height in metres of a frame at scale.
func GroundSize(scale, frameWidth, frameHeight float64) (float64, float64) {
	return frameWidth * scale / mmPerMeter, frameHeight * scale / mmPerMeter
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
