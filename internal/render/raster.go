package render

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

// rasterCanvas draws onto an RGBA page at a fixed DPI. Style colors are
// straight alpha.
type rasterCanvas struct {
	img   *image.RGBA
	dpi   float64
	area  image.Rectangle
	faces *label.FaceMeasurer
}

func newRasterCanvas(page layout.Page, dpi float64, faces *label.FaceMeasurer) *rasterCanvas {
	w := int(math.Round(page.Width * dpi / 25.4))
	h := int(math.Round(page.Height * dpi / 25.4))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return &rasterCanvas{img: img, dpi: dpi, area: img.Bounds(), faces: faces}
}

func (c *rasterCanvas) px(mm float64) float64 {
	return mm * c.dpi / 25.4
}

func (c *rasterCanvas) rectPx(r layout.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(c.px(r.X))), int(math.Round(c.px(r.Y))),
		int(math.Round(c.px(r.X+r.Width))), int(math.Round(c.px(r.Y+r.Height))),
	)
}

func (c *rasterCanvas) dst() *image.RGBA {
	return c.img.SubImage(c.area).(*image.RGBA)
}

func (c *rasterCanvas) clip(r layout.Rect) {
	c.area = c.rectPx(r).Intersect(c.img.Bounds())
}

func (c *rasterCanvas) unclip() {
	c.area = c.img.Bounds()
}

func (c *rasterCanvas) image(data []byte, r layout.Rect, opacity float64) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	target := c.rectPx(r)
	scaled := image.NewRGBA(image.Rect(0, 0, target.Dx(), target.Dy()))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(c.dst(), target, scaled, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

func (c *rasterCanvas) rect(r layout.Rect, st style) {
	if st.Fill.A > 0 {
		draw.Draw(c.dst(), c.rectPx(r), image.NewUniform(color.NRGBA(st.Fill)), image.Point{}, draw.Over)
	}
	if st.Stroke.A > 0 {
		corners := [][]point{{{r.X, r.Y}, {r.X + r.Width, r.Y}, {r.X + r.Width, r.Y + r.Height}, {r.X, r.Y + r.Height}}}
		c.path(corners, true, style{Stroke: st.Stroke, Width: st.Width})
	}
}

func (c *rasterCanvas) path(subpaths [][]point, closed bool, st style) {
	if c.area.Empty() {
		return
	}
	if closed && st.Fill.A > 0 {
		ras := c.rasterizer()
		for _, sub := range subpaths {
			if len(sub) < 3 {
				continue
			}
			c.moveTo(ras, sub[0])
			for _, p := range sub[1:] {
				c.lineTo(ras, p)
			}
			ras.ClosePath()
		}
		c.paint(ras, st.Fill)
	}
	if st.Stroke.A > 0 {
		ras := c.rasterizer()
		hw := math.Max(c.px(st.Width)/2, 0.5)
		for _, sub := range subpaths {
			for i := 0; i+1 < len(sub); i++ {
				c.segment(ras, sub[i], sub[i+1], hw)
			}
			if closed && len(sub) > 2 {
				c.segment(ras, sub[len(sub)-1], sub[0], hw)
			}
		}
		c.paint(ras, st.Stroke)
	}
}

func (c *rasterCanvas) rasterizer() *vector.Rasterizer {
	return vector.NewRasterizer(c.area.Dx(), c.area.Dy())
}

func (c *rasterCanvas) local(p point) (float32, float32) {
	return float32(c.px(p.X) - float64(c.area.Min.X)), float32(c.px(p.Y) - float64(c.area.Min.Y))
}

func (c *rasterCanvas) moveTo(ras *vector.Rasterizer, p point) {
	x, y := c.local(p)
	ras.MoveTo(x, y)
}

func (c *rasterCanvas) lineTo(ras *vector.Rasterizer, p point) {
	x, y := c.local(p)
	ras.LineTo(x, y)
}

// segment adds a stroke segment as a quad. Quads share one orientation so
// overlapping segments do not cancel.
func (c *rasterCanvas) segment(ras *vector.Rasterizer, a, b point, hw float64) {
	ax, ay := c.local(a)
	bx, by := c.local(b)
	dx, dy := float64(bx-ax), float64(by-ay)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := float32(-dy/l*hw), float32(dx/l*hw)
	ras.MoveTo(ax+nx, ay+ny)
	ras.LineTo(bx+nx, by+ny)
	ras.LineTo(bx-nx, by-ny)
	ras.LineTo(ax-nx, ay-ny)
	ras.ClosePath()
}

func (c *rasterCanvas) paint(ras *vector.Rasterizer, col color.RGBA) {
	mask := image.NewAlpha(image.Rect(0, 0, c.area.Dx(), c.area.Dy()))
	ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(c.dst(), c.area, image.NewUniform(color.NRGBA(col)), image.Point{}, mask, image.Point{}, draw.Over)
}

func (c *rasterCanvas) text(x, y float64, s string, sizePt int) {
	face, err := c.faces.Face(sizePt)
	if err != nil {
		return
	}
	d := &font.Drawer{
		Dst:  c.dst(),
		Src:  image.NewUniform(black),
		Face: face,
		Dot:  fixed.P(int(math.Round(c.px(x))), int(math.Round(c.px(y)))),
	}
	d.DrawString(s)
}
