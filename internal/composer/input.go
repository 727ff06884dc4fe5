package composer

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
)

// Format is the export file format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// ParseFormat accepts "PDF", "png", ...
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF, "":
		return FormatPDF, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// LegendMode selects how legend entries are chosen.
type LegendMode string

const (
	// LegendFixed lists the loaded content layers in role precedence.
	LegendFixed LegendMode = "fixed"
	// LegendManual lists every visible vector layer of the host's tree.
	LegendManual LegendMode = "manual"
)

// DefaultDPI is the raster export and label measurement resolution.
const DefaultDPI = 300

// ContentLayer is a vector file to load for the map.
type ContentLayer struct {
	Role legend.Role `json:"role"`
	Path string      `json:"path" validate:"required"`
	// Name overrides the role's legend name.
	Name           string   `json:"name,omitempty"`
	BufferDistance *float64 `json:"bufferDistance,omitempty"`
	// Hidden layers are drawn but left out of the legend.
	Hidden bool `json:"hidden,omitempty"`
}

// Input is everything one run needs.
type Input struct {
	ProjectName    string `validate:"required"`
	Region         string
	Scale          int          `validate:"required,gt=0"`
	Paper          layout.Paper `validate:"required,oneof=A3 A4"`
	Basemap        basemap.Kind
	Format         Format         `validate:"required,oneof=pdf png"`
	OutputDir      string         `validate:"required"`
	Layers         []ContentLayer `validate:"required,min=1,dive"`
	LegendMode     LegendMode     `validate:"required,oneof=fixed manual"`
	LegendMaxChars int            `validate:"gte=0"`
	KeepLayers     bool
	Creator        string
	Date           time.Time
	DPI            float64 `validate:"gte=0,lte=1200"`
}

// withDefaults fills optional fields.
func (in Input) withDefaults(now time.Time) Input {
	if in.Paper == "" {
		in.Paper = layout.A4
	}
	if in.Format == "" {
		in.Format = FormatPDF
	}
	if in.LegendMode == "" {
		in.LegendMode = LegendFixed
	}
	if in.DPI == 0 {
		in.DPI = DefaultDPI
	}
	if in.Date.IsZero() {
		in.Date = now
	}
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	in.OutputDir = strings.TrimSpace(in.OutputDir)
	return in
}

// Turbines returns the primary turbine layout layer.
func (in Input) Turbines() (ContentLayer, bool) {
	for _, l := range in.Layers {
		if l.Role == legend.TurbineLayout {
			return l, true
		}
	}
	return ContentLayer{}, false
}

func validateInput(v *validator.Validate, in Input) error {
	var missing []string
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Wrap(apperr.MissingRequiredInput, err, "invalid input")
		}
		for _, fe := range verrs {
			missing = append(missing, fe.Namespace())
		}
	}
	if in.Basemap == basemap.Topographic && strings.TrimSpace(in.Region) == "" {
		missing = append(missing, "Input.Region")
	}
	if _, ok := in.Turbines(); !ok && len(in.Layers) > 0 {
		missing = append(missing, "Input.Layers[turbines]")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperr.New(apperr.MissingRequiredInput, "missing or invalid input: %s", strings.Join(missing, ", "))
	}
	return nil
}

// OutputFileName is the export file name for a project and date. Path
// separators and control characters in the project name become '_', so the
// name is always a single path element.
func OutputFileName(project string, date time.Time, format Format) string {
	return fmt.Sprintf("Übersichtskarte_Windpark%s_%s.%s", fileSafe(project), date.Format("020106"), format)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
}

// OutputPath joins the output dir and file name.
func OutputPath(in Input) string {
	return filepath.Join(in.OutputDir, OutputFileName(in.ProjectName, in.Date, in.Format))
}
