// Package render exports composed plans as proof sheets: a PDF drawn with
// the core fonts or a PNG drawn with the Go fonts. Topographic basemaps are
// fetched from their WMS; tile basemaps are not drawn.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
)

// FeatureSource returns the geometries of a registered vector layer.
type FeatureSource interface {
	Features(h composer.LayerHandle) (orb.Collection, bool)
}

// Exporter implements composer.Exporter.
type Exporter struct {
	features FeatureSource
	fetcher  *Fetcher
	log      *logging.Logger
}

type Option func(*Exporter)

// WithFetcher draws WMS basemaps.
func WithFetcher(f *Fetcher) Option { return func(e *Exporter) { e.fetcher = f } }

func WithLogger(l *logging.Logger) Option { return func(e *Exporter) { e.log = l } }

// NewExporter creates an exporter drawing vector layers from features, which
// may be nil.
func NewExporter(features FeatureSource, opts ...Option) *Exporter {
	e := &Exporter{features: features, log: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) ExportPDF(ctx context.Context, plan *composer.Plan, path string) error {
	if err := checkPlan(plan, path); err != nil {
		return err
	}
	c, err := newPDFCanvas(plan.Template.Page)
	if err != nil {
		return err
	}
	c.pdf.SetTitle("Übersichtskarte", true)
	c.pdf.SetCreator("mapcraft", true)
	e.sheet(plan, plan.DPI).draw(ctx, c)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	e.log.Info("pdf exported", "path", path)
	return nil
}

func (e *Exporter) ExportImage(ctx context.Context, plan *composer.Plan, path string, dpi float64) error {
	if err := checkPlan(plan, path); err != nil {
		return err
	}
	faces, err := label.NewFaceMeasurer(dpi)
	if err != nil {
		return err
	}
	c := newRasterCanvas(plan.Template.Page, dpi, faces)
	e.sheet(plan, dpi).draw(ctx, c)

	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.img); err != nil {
		f.Close()
		return fmt.Errorf("encoding png: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.log.Info("image exported", "path", path, "dpi", dpi)
	return nil
}

func (e *Exporter) sheet(plan *composer.Plan, dpi float64) *sheet {
	return &sheet{
		plan:     plan,
		features: e.features,
		fetcher:  e.fetcher,
		dpi:      dpi,
		warn:     e.log.Warn,
	}
}

func checkPlan(plan *composer.Plan, path string) error {
	if plan == nil || plan.Template == nil {
		return errors.New("plan has no template")
	}
	if plan.Map() == nil {
		return errors.New("plan has no map item")
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
