package legend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

func dist(v float64) *float64 { return &v }

func TestBuildSkipsHiddenCandidates(t *testing.T) {
	in := []Candidate{
		{Role: TurbineLayout, LayerID: "wea", Visible: true},
		{Role: TurbineBuffer, LayerID: "buf", Visible: false},
		{Role: SiteBoundary, LayerID: "site", Visible: true},
	}

	first := Build(in)
	require.Len(t, first, 2)
	assert.Equal(t, "wea", first[0].LayerID)
	assert.Equal(t, "WEA - Neuplanung", first[0].DisplayName)
	assert.Equal(t, "site", first[1].LayerID)
	assert.Equal(t, "Projektfläche", first[1].DisplayName)
	assert.Equal(t, 1, first[1].Order)

	assert.Equal(t, first, Build(in))
}

func TestBuildPrecedenceAndNames(t *testing.T) {
	in := []Candidate{
		{Role: PotentialArea, LayerID: "pot", Visible: true},
		{Role: BoundaryBuffer, LayerID: "bbuf", Visible: true, BufferDistance: dist(1000)},
		{Role: TurbineBuffer, LayerID: "tbuf", Visible: true, BaseName: "Rotorradius", BufferDistance: dist(82.5)},
		{Role: PriorityArea, LayerID: "vr", Visible: true},
		{Role: TurbineLayout, LayerID: "wea", Visible: true},
	}
	got := Build(in)

	names := make([]string, len(got))
	for i, e := range got {
		names[i] = e.DisplayName
		assert.Equal(t, i, e.Order)
	}
	assert.Equal(t, []string{
		"WEA - Neuplanung",
		"Rotorradius (82.5 m)",
		"Projektfläche Puffer (1000 m)",
		"Vorranggebiet Windenergie",
		"Potenzialfläche",
	}, names)
}

func TestBuildDeduplicatesLayers(t *testing.T) {
	got := Build([]Candidate{
		{Role: SiteBoundary, LayerID: "same", Visible: true},
		{Role: TurbineLayout, LayerID: "same", Visible: true},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "WEA - Neuplanung", got[0].DisplayName)
}

func TestCollectDepthFirst(t *testing.T) {
	root := Node{Kind: GroupNode, Visible: true, Children: []Node{
		{LayerID: "a", Name: "Anlagen", Kind: VectorNode, Visible: true},
		{Name: "Planung", Kind: GroupNode, Visible: true, Children: []Node{
			{LayerID: "b", Name: "Zuwegung", Kind: VectorNode, Visible: true},
			{LayerID: "c", Name: "hidden", Kind: VectorNode, Visible: false},
			{LayerID: "r", Name: "Orthofoto", Kind: RasterNode, Visible: true},
		}},
		{Name: "Archiv", Kind: GroupNode, Visible: false, Children: []Node{
			{LayerID: "d", Name: "Altbestand", Kind: VectorNode, Visible: true},
		}},
		{LayerID: "e", Name: "Schutzgebiete", Kind: VectorNode, Visible: true},
	}}

	got := Collect(root, 0)
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.LayerID
	}
	assert.Equal(t, []string{"a", "b", "e"}, ids)
	assert.Equal(t, got, Collect(root, 0))
}

func TestCollectTruncates(t *testing.T) {
	root := Node{Kind: GroupNode, Visible: true, Children: []Node{
		{LayerID: "a", Name: "Landschaftsschutzgebiete", Kind: VectorNode, Visible: true},
		{LayerID: "b", Name: "Wald", Kind: VectorNode, Visible: true},
	}}
	got := Collect(root, 10)
	assert.Equal(t, "Landschaft…", got[0].DisplayName)
	assert.Equal(t, "Wald", got[1].DisplayName)
}

func TestCollectEmpty(t *testing.T) {
	assert.Empty(t, Collect(Node{}, 5))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Übe…", Truncate("Übersicht", 3))
	assert.Equal(t, "Übersicht", Truncate("Übersicht", 9))
}

func TestAdjustFontSize(t *testing.T) {
	assert.Equal(t, 6, AdjustFontSize(3, 5, 6, 6))
	assert.Equal(t, 4, AdjustFontSize(9, 5, 6, 2))
	assert.Equal(t, 6, AdjustFontSize(5, 5, 6, 2))
	assert.Equal(t, 6, AdjustFontSize(6, 5, 6, 2))
	assert.Equal(t, 2, AdjustFontSize(40, 5, 6, 2))
}

func TestPolicyStylesUniform(t *testing.T) {
	s := Policies[layout.A4].StylesFor(10)
	assert.Equal(t, s.Group, s.Subgroup)
	assert.Equal(t, s.Group, s.SymbolLabel)
	assert.Equal(t, 6, s.Group)

	assert.Equal(t, 10, Policies[layout.A3].StylesFor(3).Group)
}

func TestRoleText(t *testing.T) {
	for _, r := range Roles {
		b, err := r.MarshalText()
		require.NoError(t, err)
		var got Role
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, r, got)
	}
	_, err := ParseRole("turbine")
	assert.Error(t, err)
}
