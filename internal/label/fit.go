// Package label plans the dynamic text items of the print layout: the text
// each slot shows and the font size or position that keeps it inside its box.
package label

// Measurer reports the rendered width in pixels of text set at a point size.
type Measurer interface {
	Width(text string, size int) float64
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(text string, size int) float64

func (f MeasurerFunc) Width(text string, size int) float64 { return f(text, size) }

const mmPerInch = 25.4

// WidthPixels converts a slot width in millimetres to pixels at dpi.
func WidthPixels(widthMM, dpi float64) float64 {
	return widthMM * dpi / mmPerInch
}

// FitText starts at defaultSize and steps the font down one point at a time
// while the text is wider than maxWidth and the size is above minSize. The
// size never grows and the loop runs at most defaultSize-minSize times.
func FitText(m Measurer, text string, maxWidth float64, minSize, defaultSize int) (int, string) {
	size := defaultSize
	for size > minSize && m.Width(text, size) > maxWidth {
		size--
	}
	return size, text
}
