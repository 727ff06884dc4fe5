package label

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

// perChar measures every rune as 2px per point.
type perChar struct{ calls []int }

func (p *perChar) Width(text string, size int) float64 {
	p.calls = append(p.calls, size)
	return float64(utf8.RuneCountInString(text) * size * 2)
}

func TestFitTextShrinksMonotonically(t *testing.T) {
	m := &perChar{}
	text := "a very long reference string..."
	size, out := FitText(m, text, 200, 2, 5)

	calls := append([]int(nil), m.calls...)
	assert.Equal(t, text, out)
	assert.Equal(t, 3, size)
	assert.Equal(t, []int{5, 4, 3}, calls)
	for i := 1; i < len(calls); i++ {
		assert.Less(t, calls[i], calls[i-1])
	}
	assert.LessOrEqual(t, m.Width(text, size), 200.0)
}

func TestFitTextStopsAtMinimum(t *testing.T) {
	size, _ := FitText(&perChar{}, strings.Repeat("x", 500), 10, 2, 5)
	assert.Equal(t, 2, size)
}

func TestFitTextUnmeasurableShrinksToMinimum(t *testing.T) {
	unbuildable := MeasurerFunc(func(string, int) float64 { return math.Inf(1) })
	size, _ := FitText(unbuildable, "Windpark", 1e12, 6, 10)
	assert.Equal(t, 6, size)
}

func TestFitTextAlreadyFits(t *testing.T) {
	m := &perChar{}
	size, _ := FitText(m, "short", 200, 2, 5)
	assert.Equal(t, 5, size)
	assert.Equal(t, []int{5}, m.calls)
}

func TestWidthPixels(t *testing.T) {
	assert.InDelta(t, 300, WidthPixels(25.4, 300), 1e-9)
	assert.InDelta(t, 838.58, WidthPixels(71, 300), 0.01)
}

func TestFaceMeasurer(t *testing.T) {
	m, err := NewFaceMeasurer(300)
	require.NoError(t, err)

	short := m.Width("Ref", 8)
	long := m.Width("Ref: WEA_Layout_2025.shp | Projektflaeche.shp", 8)
	assert.Greater(t, short, 0.0)
	assert.Greater(t, long, short)
	assert.Greater(t, m.Width("Ref", 10), short)

	text := strings.Repeat("Windenergieanlage ", 8)
	limit := WidthPixels(71, 300)
	size, _ := FitText(m, text, limit, 4, 8)
	assert.GreaterOrEqual(t, size, 4)
	assert.True(t, size == 4 || m.Width(text, size) <= limit)

	_, err = NewFaceMeasurer(0)
	assert.Error(t, err)
}

func TestTexts(t *testing.T) {
	texts := Texts(Inputs{
		ProjectName:    "Nordheide",
		CRSDescription: "ETRS89 / UTM zone 32N",
		Creator:        "mmeyer",
		Date:           time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC),
		References:     []string{"WEA.shp", "Flaeche.shp"},
		Copyright:      "LGLN 2025",
	})
	assert.Equal(t, "Übersichtskarte", texts[SlotTitle])
	assert.Equal(t, "Windpark Nordheide", texts[SlotWindpark])
	assert.Equal(t, "CRS: ETRS89 / UTM zone 32N", texts[SlotCRS])
	assert.Equal(t, "Map produced on 07/03/25 by mmeyer", texts[SlotCreator])
	assert.Equal(t, "Ref: WEA.shp | Flaeche.shp", texts[SlotRef])
	assert.Equal(t, "Hintergrund: ©LGLN 2025", texts[SlotCopyright])
}

func TestPlanShiftUp(t *testing.T) {
	p, ok := Policy(layout.A4, SlotWindpark)
	require.True(t, ok)

	short := Plan(&perChar{}, 300, Slot{ID: SlotWindpark, Text: "Windpark Nord", Subject: "Nord", WidthMM: 10, Policy: p})
	assert.Zero(t, short.OffsetY)
	assert.Equal(t, p.DefaultSize, short.FontSize)

	name := "Bürgerwindpark Hohenlockstedt-Nord Erweiterung"
	long := Plan(&perChar{}, 300, Slot{ID: SlotWindpark, Text: "Windpark " + name, Subject: name, WidthMM: 10, Policy: p})
	assert.Equal(t, -p.ShiftMM, long.OffsetY)
	assert.Equal(t, p.DefaultSize, long.FontSize)
	assert.Equal(t, "shift_up", long.Strategy)
}

func TestPlanFitWidth(t *testing.T) {
	p, _ := Policy(layout.A4, SlotRef)
	r := Plan(&perChar{}, 25.4, Slot{ID: SlotRef, Text: strings.Repeat("r", 10), WidthMM: 100, Policy: p})
	assert.Equal(t, 5, r.FontSize)
	assert.Zero(t, r.OffsetY)
}

func TestPoliciesA3Larger(t *testing.T) {
	for slot, a4 := range Policies[layout.A4] {
		a3, ok := Policy(layout.A3, slot)
		require.True(t, ok, slot)
		assert.Greater(t, a3.DefaultSize, a4.DefaultSize, slot)
		assert.GreaterOrEqual(t, a3.MinSize, a4.MinSize, slot)
		assert.LessOrEqual(t, a4.MinSize, a4.DefaultSize, slot)
	}
}
