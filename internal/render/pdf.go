package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

// labelFont is Go Regular embedded in the PDF, the face label.FaceMeasurer
// fits label sizes with.
const labelFont = "goregular"

// pdfCanvas draws on one fpdf page in millimetres.
type pdfCanvas struct {
	pdf    *fpdf.Fpdf
	images int
}

func newPDFCanvas(page layout.Page) (*pdfCanvas, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(labelFont, "", goregular.TTF)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("embedding label font: %w", err)
	}
	return &pdfCanvas{pdf: pdf}, nil
}

func (c *pdfCanvas) clip(r layout.Rect) {
	c.pdf.ClipRect(r.X, r.Y, r.Width, r.Height, false)
}

func (c *pdfCanvas) unclip() {
	c.pdf.ClipEnd()
}

func (c *pdfCanvas) image(data []byte, r layout.Rect, opacity float64) error {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return err
	}
	c.images++
	name := fmt.Sprintf("basemap-%d", c.images)
	opts := fpdf.ImageOptions{ImageType: strings.ToUpper(format)}
	c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := c.pdf.Error(); err != nil {
		return err
	}
	c.pdf.SetAlpha(opacity, "Normal")
	c.pdf.ImageOptions(name, r.X, r.Y, r.Width, r.Height, false, opts, 0, "")
	c.pdf.SetAlpha(1, "Normal")
	return c.pdf.Error()
}

func (c *pdfCanvas) rect(r layout.Rect, st style) {
	corners := [][]point{{{r.X, r.Y}, {r.X + r.Width, r.Y}, {r.X + r.Width, r.Y + r.Height}, {r.X, r.Y + r.Height}}}
	c.path(corners, true, st)
}

func (c *pdfCanvas) path(subpaths [][]point, closed bool, st style) {
	if closed && st.Fill.A > 0 {
		c.pdf.SetFillColor(int(st.Fill.R), int(st.Fill.G), int(st.Fill.B))
		c.pdf.SetAlpha(float64(st.Fill.A)/255, "Normal")
		c.trace(subpaths, true)
		c.pdf.DrawPath("F")
		c.pdf.SetAlpha(1, "Normal")
	}
	if st.Stroke.A > 0 {
		c.setStroke(st.Stroke, st.Width)
		c.trace(subpaths, closed)
		c.pdf.DrawPath("D")
	}
}

func (c *pdfCanvas) trace(subpaths [][]point, closed bool) {
	for _, sub := range subpaths {
		if len(sub) < 2 {
			continue
		}
		c.pdf.MoveTo(sub[0].X, sub[0].Y)
		for _, p := range sub[1:] {
			c.pdf.LineTo(p.X, p.Y)
		}
		if closed {
			c.pdf.ClosePath()
		}
	}
}

func (c *pdfCanvas) setStroke(col color.RGBA, width float64) {
	c.pdf.SetDrawColor(int(col.R), int(col.G), int(col.B))
	c.pdf.SetLineWidth(width)
}

func (c *pdfCanvas) text(x, y float64, s string, sizePt int) {
	c.pdf.SetFont(labelFont, "", float64(sizePt))
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.Text(x, y, s)
}
