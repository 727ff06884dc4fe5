// Package composer runs one map composition: it resolves and registers the
// basemap, loads the content layers, plans extent, legend, scale bar and
// labels against a print template, and hands the plan to an exporter.
//
// A Composer runs one composition at a time. Every layer a run adds to the
// host is removed before Run returns, except content layers kept on success.
package composer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/extent"
	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
	"github.com/joeblew999/plat-mapcraft/internal/scalebar"
)

// Config tunes a Composer.
type Config struct {
	// BasemapTimeout bounds registering the basemap. Zero waits forever.
	BasemapTimeout time.Duration
	// LegendMaxChars is the manual legend default when the input sets none.
	LegendMaxChars int
	// DefaultCRSDescription is used when the host reports no CRS.
	DefaultCRSDescription string
}

// MeasurerFactory returns a text measurer for a resolution.
type MeasurerFactory func(dpi float64) (label.Measurer, error)

// TemplateSource returns the print template for a paper size.
type TemplateSource func(paper layout.Paper) (*layout.Template, error)

// Result describes a finished run.
type Result struct {
	RunID      string        `json:"runId"`
	State      State         `json:"-"`
	StateName  string        `json:"state"`
	Outcome    Outcome       `json:"outcome"`
	OutputPath string        `json:"outputPath,omitempty"`
	Plan       *Plan         `json:"plan,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Kept       []LayerHandle `json:"keptLayers,omitempty"`
	Started    time.Time     `json:"started"`
	Finished   time.Time     `json:"finished"`
}

// Composer orchestrates composition runs.
type Composer struct {
	host      Host
	exporter  Exporter
	resolver  *basemap.Resolver
	cfg       Config
	log       *logging.Logger
	observers []Observer
	notifier  Notifier
	now       func() time.Time
	templates TemplateSource
	measurers MeasurerFactory
	validate  *validator.Validate

	running atomic.Bool

	mu        sync.Mutex
	measureBy map[float64]label.Measurer
}

// Option configures a Composer.
type Option func(*Composer)

func WithConfig(cfg Config) Option { return func(c *Composer) { c.cfg = cfg } }

func WithLogger(l *logging.Logger) Option { return func(c *Composer) { c.log = l } }

// WithObserver adds an observer of state transitions.
func WithObserver(o Observer) Option {
	return func(c *Composer) { c.observers = append(c.observers, o) }
}

func WithNotifier(n Notifier) Option { return func(c *Composer) { c.notifier = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Composer) { c.now = now } }

func WithTemplates(src TemplateSource) Option { return func(c *Composer) { c.templates = src } }

func WithMeasurers(f MeasurerFactory) Option { return func(c *Composer) { c.measurers = f } }

// New creates a Composer. A nil resolver uses the embedded catalog.
func New(host Host, exporter Exporter, resolver *basemap.Resolver, opts ...Option) *Composer {
	if resolver == nil {
		resolver = basemap.NewResolver(nil)
	}
	c := &Composer{
		host:      host,
		exporter:  exporter,
		resolver:  resolver,
		log:       logging.Nop(),
		now:       time.Now,
		templates: layout.Builtin,
		measurers: func(dpi float64) (label.Measurer, error) { return label.NewFaceMeasurer(dpi) },
		validate:  validator.New(),
		measureBy: make(map[float64]label.Measurer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver returns the basemap resolver in use.
func (c *Composer) Resolver() *basemap.Resolver {
	return c.resolver
}

// Running reports whether a run is in flight.
func (c *Composer) Running() bool {
	return c.running.Load()
}

// Run executes one composition. The returned error carries an apperr.Kind;
// the Result is non-nil unless another run is in flight.
func (c *Composer) Run(ctx context.Context, in Input) (res *Result, err error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, apperr.New(apperr.RunInProgress, "a composition is already running")
	}
	defer c.running.Store(false)

	r := &run{
		c:   c,
		id:  uuid.NewString(),
		in:  in.withDefaults(c.now()),
		res: &Result{Started: c.now()},
	}
	r.res.RunID = r.id
	r.log = c.log.With(map[string]any{"run_id": r.id})

	// Layers added before a collaborator panics are still removed.
	defer func() {
		if p := recover(); p != nil {
			err = apperr.New(apperr.Internal, "composition aborted in %s: %v", r.state, p)
		}
		r.cleanup(err == nil)
		r.finish(err)
		if c.notifier != nil {
			c.notifier.Notify(r.res.Outcome)
		}
		res = r.res
	}()
	return r.res, r.execute(ctx)
}

func (c *Composer) measurer(dpi float64) (label.Measurer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.measureBy[dpi]; ok {
		return m, nil
	}
	m, err := c.measurers(dpi)
	if err != nil {
		return nil, err
	}
	c.measureBy[dpi] = m
	return m, nil
}

// run is the state of one Run call.
type run struct {
	c     *Composer
	id    string
	in    Input
	log   *logging.Logger
	res   *Result
	state State

	tmpl     *layout.Template
	desc     basemap.Descriptor
	basemap  LayerHandle
	added    []LayerHandle
	content  []loadedLayer
	turbines LayerHandle
	parts    parts
}

type loadedLayer struct {
	ContentLayer
	handle LayerHandle
}

func (r *run) transition(to State, err error) {
	t := Transition{RunID: r.id, From: r.state, To: to, At: r.c.now(), Err: err}
	r.state = to
	r.log.Debug("state transition", "from", t.From.String(), "to", to.String())
	for _, o := range r.c.observers {
		o.Transition(t)
	}
}

func (r *run) execute(ctx context.Context) error {
	if err := validateInput(r.c.validate, r.in); err != nil {
		return err
	}
	tmpl, err := r.c.templates(r.in.Paper)
	if err != nil {
		return apperr.Wrap(apperr.InvalidTemplate, err, "loading %s template", r.in.Paper)
	}
	r.tmpl = tmpl

	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{ResolvingBasemap, r.resolveBasemap},
		{ComputingExtent, r.computeExtent},
		{BuildingLegend, r.buildLegend},
		{PlanningScaleBar, r.planScaleBar},
		{PlanningLabels, r.planLabels},
		{Exporting, r.export},
	}
	for _, s := range steps {
		r.transition(s.state, nil)
		if err := s.fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) resolveBasemap(ctx context.Context) error {
	desc, err := r.c.resolver.Resolve(r.in.Region, r.in.Scale, r.in.Basemap)
	if err != nil {
		return err
	}
	r.desc = desc

	bctx := ctx
	if d := r.c.cfg.BasemapTimeout; d > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	h, err := r.c.host.AddLayer(bctx, LayerDescriptor{
		Name:     desc.Name,
		Provider: desc.Provider,
		URI:      desc.URI,
		Opacity:  desc.Opacity,
		Basemap:  &desc,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperr.Wrap(apperr.BasemapLoadFailed, err, "basemap %s timed out", desc.Name)
		}
		return apperr.Wrap(apperr.BasemapLoadFailed, err, "basemap %s is not valid", desc.Name)
	}
	r.basemap = h
	r.added = append(r.added, h)

	for _, l := range r.in.Layers {
		name := l.Name
		if name == "" {
			name = legend.DisplayNames[l.Role]
		}
		h, err := r.c.host.AddLayer(ctx, LayerDescriptor{Name: name, Provider: ProviderOGR, URI: l.Path, Opacity: 1})
		if err != nil {
			if l.Role == legend.TurbineLayout && r.turbines == "" {
				return apperr.Wrap(apperr.InvalidGeometry, err, "loading turbine layout %s", l.Path)
			}
			r.warn("layer " + filepath.Base(l.Path) + " skipped: " + err.Error())
			continue
		}
		r.added = append(r.added, h)
		r.content = append(r.content, loadedLayer{ContentLayer: l, handle: h})
		if l.Role == legend.TurbineLayout && r.turbines == "" {
			r.turbines = h
		}
	}
	return nil
}

func (r *run) computeExtent(context.Context) error {
	bound, n, err := r.c.host.Extent(r.turbines)
	if err != nil {
		return apperr.Wrap(apperr.InvalidGeometry, err, "reading turbine layout extent")
	}
	centroid, err := extent.Centroid(bound, n)
	if err != nil {
		return err
	}
	frame := r.tmpl.MapFrame()
	ext, err := extent.Compute(&centroid, float64(r.in.Scale), frame.Width, frame.Height)
	if err != nil {
		return err
	}

	layers := make([]LayerHandle, 0, len(r.content)+1)
	layers = append(layers, r.basemap)
	for i := len(r.content) - 1; i >= 0; i-- {
		layers = append(layers, r.content[i].handle)
	}
	r.parts.mapContent = MapContent{Extent: ext, Scale: r.in.Scale, Basemap: r.basemap, Layers: layers}
	return nil
}

func (r *run) buildLegend(context.Context) error {
	var entries []legend.Entry
	switch r.in.LegendMode {
	case LegendManual:
		maxChars := r.in.LegendMaxChars
		if maxChars == 0 {
			maxChars = r.c.cfg.LegendMaxChars
		}
		entries = legend.Collect(r.c.host.Root(), maxChars)
	default:
		candidates := make([]legend.Candidate, 0, len(r.content))
		for _, l := range r.content {
			candidates = append(candidates, legend.Candidate{
				Role:           l.Role,
				LayerID:        string(l.handle),
				BaseName:       l.Name,
				Visible:        !l.Hidden,
				BufferDistance: l.BufferDistance,
			})
		}
		entries = legend.Build(candidates)
	}
	r.parts.legend = LegendContent{
		Entries: entries,
		Styles:  legend.Policies[r.in.Paper].StylesFor(len(entries)),
	}
	return nil
}

func (r *run) planScaleBar(context.Context) error {
	spec, err := scalebar.Plan(r.in.Scale, r.in.Paper)
	if err != nil {
		return err
	}
	r.parts.scaleBar = spec
	return nil
}

func (r *run) planLabels(context.Context) error {
	m, err := r.c.measurer(r.in.DPI)
	if err != nil {
		return apperr.Wrap(apperr.Unknown, err, "loading label font")
	}

	crs := r.c.host.CRSDescription(r.turbines)
	if crs == "" {
		crs = r.c.cfg.DefaultCRSDescription
	}
	refs := make([]string, 0, len(r.content))
	for _, l := range r.content {
		refs = append(refs, filepath.Base(l.Path))
	}
	texts := label.Texts(label.Inputs{
		ProjectName:    r.in.ProjectName,
		CRSDescription: crs,
		Creator:        r.in.Creator,
		Date:           r.in.Date,
		References:     refs,
		Copyright:      r.desc.Copyright,
	})

	r.parts.labels = make(map[string]label.Result)
	for _, it := range r.tmpl.ItemsOf(layout.KindLabel) {
		policy, ok := label.Policy(r.in.Paper, it.Slot)
		if !ok {
			return apperr.New(apperr.InvalidTemplate, "no label policy for slot %q on %s", it.Slot, r.in.Paper)
		}
		slot := label.Slot{ID: it.Slot, Text: texts[it.Slot], WidthMM: it.Width, Policy: policy}
		if it.Slot == label.SlotWindpark {
			slot.Subject = r.in.ProjectName
		}
		r.parts.labels[it.Slot] = label.Plan(m, r.in.DPI, slot)
	}
	return nil
}

func (r *run) export(ctx context.Context) error {
	items, err := assemble(r.tmpl, &r.parts)
	if err != nil {
		return err
	}
	plan := &Plan{
		RunID:    r.id,
		Template: r.tmpl,
		Paper:    r.in.Paper,
		Scale:    r.in.Scale,
		DPI:      r.in.DPI,
		Basemap:  r.desc,
		CRS:      r.parts.labels[label.SlotCRS].Text,
		Items:    items,
	}
	r.res.Plan = plan

	path := OutputPath(r.in)
	switch r.in.Format {
	case FormatPNG:
		err = r.c.exporter.ExportImage(ctx, plan, path, r.in.DPI)
	default:
		err = r.c.exporter.ExportPDF(ctx, plan, path)
	}
	if err != nil {
		return apperr.Wrap(apperr.ExportFailed, err, "exporting %s", filepath.Base(path))
	}
	r.res.OutputPath = path
	return nil
}

// cleanup removes added layers in reverse order. Content layers survive a
// successful run with KeepLayers; the basemap never does.
func (r *run) cleanup(success bool) {
	for i := len(r.added) - 1; i >= 0; i-- {
		h := r.added[i]
		if success && r.in.KeepLayers && h != r.basemap {
			r.res.Kept = append([]LayerHandle{h}, r.res.Kept...)
			continue
		}
		if err := r.c.host.RemoveLayer(h); err != nil {
			r.log.Warn("removing layer failed", "layer", string(h), "error", err.Error())
		}
	}
	r.added = nil
}

func (r *run) warn(msg string) {
	r.log.Warn(msg)
	r.res.Warnings = append(r.res.Warnings, msg)
}

func (r *run) finish(err error) {
	r.res.Finished = r.c.now()
	if err != nil {
		kind := apperr.KindOf(err)
		r.log.Error(err, "composition failed", "kind", kind.String(), "state", r.state.String())
		r.transition(Failed, err)
		r.res.Outcome = Outcome{Status: StatusError, Reason: err.Error(), Kind: kind, KindName: kind.String()}
	} else {
		r.transition(Done, nil)
		r.res.Outcome = Outcome{Status: StatusSuccess, Reason: "map exported to " + r.res.OutputPath}
		if len(r.res.Warnings) > 0 {
			r.res.Outcome = Outcome{Status: StatusWarning, Reason: r.res.Warnings[0]}
		}
		r.log.Info("composition finished", "output", r.res.OutputPath, "status", string(r.res.Outcome.Status))
	}
	r.res.State = r.state
	r.res.StateName = r.state.String()
}
