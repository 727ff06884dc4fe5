package legend

import "github.com/joeblew999/plat-mapcraft/internal/layout"

// AdjustFontSize shrinks the legend text by one point for every two entries
// beyond maxItems, never below minSize.
func AdjustFontSize(n, maxItems, baseSize, minSize int) int {
	if n <= maxItems {
		return baseSize
	}
	return max(minSize, baseSize-(n-maxItems)/2)
}

// FontPolicy holds the legend font parameters for a paper size.
type FontPolicy struct {
	MaxItems int `json:"maxItems"`
	BaseSize int `json:"baseSize"`
	MinSize  int `json:"minSize"`
}

// Policies per paper size.
var Policies = map[layout.Paper]FontPolicy{
	layout.A4: {MaxItems: 6, BaseSize: 8, MinSize: 5},
	layout.A3: {MaxItems: 8, BaseSize: 10, MinSize: 6},
}

// Styles are the font sizes of the three legend text tiers.
type Styles struct {
	Group       int `json:"group"`
	Subgroup    int `json:"subgroup"`
	SymbolLabel int `json:"symbolLabel"`
}

// StylesFor applies the policy uniformly to every tier.
func (p FontPolicy) StylesFor(n int) Styles {
	size := AdjustFontSize(n, p.MaxItems, p.BaseSize, p.MinSize)
	return Styles{Group: size, Subgroup: size, SymbolLabel: size}
}
