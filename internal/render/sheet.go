package render

import (
	"context"
	"image/color"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/scalebar"
)

const ptToMM = 25.4 / 72

// point is a position on the page in millimetres.
type point struct{ X, Y float64 }

// style of a shape. A zero alpha disables the stroke or the fill.
type style struct {
	Stroke color.RGBA
	Fill   color.RGBA
	Width  float64
}

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	grey  = color.RGBA{128, 128, 128, 255}
)

// palette colors content layers in drawing order.
var palette = []color.RGBA{
	{200, 30, 30, 255},
	{240, 140, 20, 255},
	{30, 80, 200, 255},
	{90, 150, 230, 255},
	{40, 150, 60, 255},
	{150, 60, 170, 255},
}

// canvas is the drawing surface of one output format.
type canvas interface {
	clip(r layout.Rect)
	unclip()
	image(data []byte, r layout.Rect, opacity float64) error
	rect(r layout.Rect, st style)
	// path draws subpaths; closed subpaths are filled when st.Fill is set.
	path(subpaths [][]point, closed bool, st style)
	text(x, y float64, s string, sizePt int)
}

// sheet draws a plan onto a canvas.
type sheet struct {
	plan     *composer.Plan
	features FeatureSource
	fetcher  *Fetcher
	dpi      float64
	colors   map[string]color.RGBA
	warn     func(msg string, kv ...any)
}

func (s *sheet) draw(ctx context.Context, c canvas) {
	m := s.plan.Map()
	s.colors = make(map[string]color.RGBA)
	if m != nil {
		content := m.Content()
		for i, h := range content {
			s.colors[string(h)] = palette[(len(content)-1-i)%len(palette)]
		}
	}

	for _, it := range s.plan.Items {
		switch {
		case it.Map != nil:
			s.drawMap(ctx, c, it.Rect, it.Map)
		case it.Legend != nil:
			s.drawLegend(c, it.Rect, it.Legend)
		case it.ScaleBar != nil:
			s.drawScaleBar(c, it.Rect, *it.ScaleBar)
		case it.Label != nil:
			c.text(it.X, it.Y+float64(it.Label.FontSize)*ptToMM+it.Label.OffsetY, it.Label.Text, it.Label.FontSize)
		}
	}
}

func (s *sheet) drawMap(ctx context.Context, c canvas, r layout.Rect, m *composer.MapContent) {
	c.clip(r)
	defer c.unclip()

	if s.fetcher != nil && s.plan.Basemap.Provider == basemap.ProviderWMS {
		w, h := pixels(r.Width, s.dpi), pixels(r.Height, s.dpi)
		data, err := s.fetcher.GetMap(ctx, s.plan.Basemap, m.Extent, w, h)
		if err == nil {
			err = c.image(data, r, s.plan.Basemap.Opacity)
		}
		if err != nil {
			s.warn("basemap not drawn", "error", err.Error())
		}
	}

	t := transform{frame: r, extent: m.Extent}
	if s.features != nil {
		for _, h := range m.Content() {
			fc, ok := s.features.Features(h)
			if !ok {
				continue
			}
			col := s.colors[string(h)]
			for _, g := range fc {
				s.drawGeometry(c, t, g, col)
			}
		}
	}
	c.rect(r, style{Stroke: black, Width: 0.4})
}

func (s *sheet) drawGeometry(c canvas, t transform, g orb.Geometry, col color.RGBA) {
	line := style{Stroke: col, Width: 0.35}
	area := style{Stroke: col, Fill: color.RGBA{col.R, col.G, col.B, 70}, Width: 0.35}

	switch g := g.(type) {
	case orb.Point:
		p := t.apply(g)
		c.path([][]point{marker(p, 1.2)}, true, style{Stroke: black, Fill: col, Width: 0.2})
	case orb.MultiPoint:
		for _, p := range g {
			s.drawGeometry(c, t, p, col)
		}
	case orb.LineString:
		c.path([][]point{t.line(g)}, false, line)
	case orb.MultiLineString:
		var sub [][]point
		for _, ls := range g {
			sub = append(sub, t.line(ls))
		}
		c.path(sub, false, line)
	case orb.Ring:
		c.path([][]point{t.line(orb.LineString(g))}, true, area)
	case orb.Polygon:
		c.path(t.polygon(g), true, area)
	case orb.MultiPolygon:
		var sub [][]point
		for _, p := range g {
			sub = append(sub, t.polygon(p)...)
		}
		c.path(sub, true, area)
	case orb.Bound:
		c.path(t.polygon(g.ToPolygon()), true, area)
	case orb.Collection:
		for _, child := range g {
			s.drawGeometry(c, t, child, col)
		}
	}
}

func (s *sheet) drawLegend(c canvas, r layout.Rect, l *composer.LegendContent) {
	y := r.Y + float64(l.Styles.Group)*ptToMM
	c.text(r.X, y, "Legende", l.Styles.Group)
	y += float64(l.Styles.Group) * ptToMM * 0.8

	step := float64(l.Styles.SymbolLabel) * ptToMM * 1.8
	for _, e := range l.Entries {
		if y+step > r.Y+r.Height {
			break
		}
		col, ok := s.colors[e.LayerID]
		if !ok {
			col = grey
		}
		c.rect(layout.Rect{X: r.X, Y: y + step*0.2, Width: 5, Height: step * 0.6}, style{Stroke: black, Fill: col, Width: 0.15})
		c.text(r.X+7, y+step*0.75, e.DisplayName, l.Styles.SymbolLabel)
		y += step
	}
}

func (s *sheet) drawScaleBar(c canvas, r layout.Rect, sb scalebar.Spec) {
	x := r.X + sb.DeltaX
	y := r.Y + 5 + sb.DeltaY
	seg := sb.BarLengthMM() / float64(sb.SegmentCount)
	const labelSize = 6

	for i := 0; i < sb.SegmentCount; i++ {
		fill := black
		if i%2 == 1 {
			fill = white
		}
		c.rect(layout.Rect{X: x + float64(i)*seg, Y: y, Width: seg, Height: 1.5}, style{Stroke: black, Fill: fill, Width: 0.15})
		c.text(x+float64(i)*seg-0.8, y-1, formatKm(float64(i)*sb.UnitsPerSegment), labelSize)
	}
	c.text(x+sb.BarLengthMM()-0.8, y-1, formatKm(sb.TotalKm)+" km", labelSize)
	c.text(x, y+5, "Maßstab 1:"+groupThousands(sb.Scale), labelSize)
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// groupThousands formats 25000 as "25.000".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// marker is a square around p with half size r.
func marker(p point, r float64) []point {
	return []point{{p.X - r, p.Y - r}, {p.X + r, p.Y - r}, {p.X + r, p.Y + r}, {p.X - r, p.Y + r}}
}

func pixels(mm, dpi float64) int {
	px := int(mm * dpi / 25.4)
	if px > 4096 {
		px = 4096
	}
	if px < 1 {
		px = 1
	}
	return px
}

// transform maps world coordinates into the map frame.
type transform struct {
	frame  layout.Rect
	extent orb.Bound
}

func (t transform) apply(p orb.Point) point {
	dx := t.extent.Max[0] - t.extent.Min[0]
	dy := t.extent.Max[1] - t.extent.Min[1]
	return point{
		X: t.frame.X + (p[0]-t.extent.Min[0])/dx*t.frame.Width,
		Y: t.frame.Y + (t.extent.Max[1]-p[1])/dy*t.frame.Height,
	}
}

func (t transform) line(ls orb.LineString) []point {
	out := make([]point, len(ls))
	for i, p := range ls {
		out[i] = t.apply(p)
	}
	return out
}

func (t transform) polygon(p orb.Polygon) [][]point {
	out := make([][]point, 0, len(p))
	for _, ring := range p {
		out = append(out, t.line(orb.LineString(ring)))
	}
	return out
}
