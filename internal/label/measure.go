package label

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FaceMeasurer measures text with the Go Regular face at a fixed DPI.
// Faces are unhinted so widths scale like the outlines embedded in PDFs.
// Faces are cached per point size.
type FaceMeasurer struct {
	dpi   float64
	font  *opentype.Font
	mu    sync.Mutex
	faces map[int]font.Face
}

// NewFaceMeasurer parses the embedded Go Regular font.
func NewFaceMeasurer(dpi float64) (*FaceMeasurer, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("dpi must be positive, got %v", dpi)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing goregular: %w", err)
	}
	return &FaceMeasurer{dpi: dpi, font: f, faces: make(map[int]font.Face)}, nil
}

// DPI returns the resolution the measurer was built for.
func (m *FaceMeasurer) DPI() float64 {
	return m.dpi
}

// Face returns the cached face for a point size.
func (m *FaceMeasurer) Face(size int) (font.Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if face, ok := m.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     m.dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	m.faces[size] = face
	return face, nil
}

// Width implements Measurer. Sizes the font cannot be built at measure as
// infinitely wide so FitText keeps shrinking.
func (m *FaceMeasurer) Width(text string, size int) float64 {
	face, err := m.Face(size)
	if err != nil {
		return math.Inf(1)
	}
	return float64(font.MeasureString(face, text)) / 64
}
