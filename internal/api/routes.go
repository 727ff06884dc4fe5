// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/catalog"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/humastar"
	"github.com/joeblew999/plat-mapcraft/internal/label"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/scalebar"
	"github.com/joeblew999/plat-mapcraft/internal/service"
	"github.com/joeblew999/plat-mapcraft/internal/templates"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Compose  *service.ComposeService
	Source   *service.SourceService
	Bus      *service.EventBus
	DB       *sql.DB
	Renderer *templates.Renderer
}

// RegisterRoutes registers every handler of the package on api.
func RegisterRoutes(api huma.API, svc *Services, dataDir string) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewInfoHandler(dataDir, svc.DB != nil).RegisterRoutes(api)
	NewDBHandler(svc.DB, svc.Source).RegisterRoutes(api)
	NewEventHandler(svc.Compose, svc.Bus, svc.Renderer).RegisterRoutes(api)
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Run ID" example:"4f1c2d0e-8a8b-4c35-9a55-0f3c1f2c9d11"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
	Running bool   `json:"running" doc:"Whether a composition is in flight"`
}

type RegionBody struct {
	Name      string `json:"name" doc:"Region name" example:"Niedersachsen"`
	Copyright string `json:"copyright" doc:"Copyright notice of the topographic basemap"`
	Scales    []int  `json:"scales" doc:"Offered scale denominators"`
}

type BasemapInput struct {
	Kind   string `query:"kind" enum:"topographic,satellite,osm" default:"topographic" doc:"Basemap kind"`
	Region string `query:"region" doc:"Federal state, required for topographic" example:"Niedersachsen"`
	Scale  int    `query:"scale" doc:"Print scale denominator, required for topographic" example:"25000"`
}

type ScaleBarInput struct {
	Scale int    `query:"scale" required:"true" doc:"Print scale denominator" example:"25000"`
	Paper string `query:"paper" enum:"A4,A3" default:"A4" doc:"Paper size"`
}

type ScaleBarBody struct {
	scalebar.Spec
	BarLengthMM float64 `json:"barLengthMM" doc:"Printed length of the whole bar in mm"`
}

type FitInput struct {
	Body struct {
		Text        string  `json:"text" required:"true" doc:"Label text"`
		WidthMM     float64 `json:"widthMM" required:"true" minimum:"1" doc:"Slot width in mm" example:"120"`
		DPI         float64 `json:"dpi,omitempty" minimum:"0" maximum:"1200" doc:"Resolution, defaults to 300"`
		DefaultSize int     `json:"defaultSize" required:"true" minimum:"1" maximum:"200" doc:"Starting font size in points" example:"20"`
		MinSize     int     `json:"minSize" required:"true" minimum:"1" maximum:"200" doc:"Smallest font size in points" example:"14"`
	}
}

type FitBody struct {
	Text     string  `json:"text" doc:"Label text"`
	FontSize int     `json:"fontSize" doc:"Chosen font size in points"`
	WidthPx  float64 `json:"widthPx" doc:"Rendered width at the chosen size"`
	MaxPx    float64 `json:"maxPx" doc:"Slot width in pixels"`
	Fits     bool    `json:"fits" doc:"Whether the text fits at the chosen size"`
}

type RunsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Page offset"`
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"20" doc:"Page size"`
}

// PlanSummary is the part of a composed plan exposed over the API.
type PlanSummary struct {
	Template string                  `json:"template" doc:"Layout template name"`
	Paper    string                  `json:"paper" doc:"Paper size"`
	Scale    int                     `json:"scale" doc:"Print scale denominator"`
	DPI      float64                 `json:"dpi" doc:"Raster resolution"`
	CRS      string                  `json:"crs" doc:"Map CRS description"`
	Extent   [4]float64              `json:"extent" doc:"Map extent: minx, miny, maxx, maxy"`
	Basemap  basemap.Descriptor      `json:"basemap" doc:"Resolved basemap"`
	Legend   []string                `json:"legend" doc:"Legend rows in order"`
	ScaleBar *scalebar.Spec          `json:"scaleBar,omitempty" doc:"Planned scale bar"`
	Labels   map[string]label.Result `json:"labels" doc:"Planned labels by slot"`
}

// RunBody is a run with its plan summary when the run got that far.
type RunBody struct {
	service.RunRecord
	Plan *PlanSummary `json:"plan,omitempty" doc:"Composed layout, present on success"`
}

var runActions = []humastar.ActionDef{
	{Rel: "self", Pattern: "/api/v1/runs/%s", Method: http.MethodGet, Title: "Run"},
	{Rel: "events", Pattern: "/api/v1/compose/events?run=%s", Method: http.MethodGet, Title: "State transitions"},
}

// Actions links a run to itself, its event stream, and its exported map.
func (b RunBody) Actions() []humastar.Action {
	actions := humastar.ActionsFor(b.ID, runActions)
	if b.OutputPath != "" {
		actions = append(actions, humastar.Action{
			Rel:    "artifact",
			Href:   "/api/v1/runs/" + b.ID + "/artifact",
			Method: http.MethodGet,
			Title:  "Exported map",
		})
	}
	return actions
}

type ArtifactOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// APIHandler holds the REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterCatalog registers the read-only lookups behind a composition.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/basemap", h.GetBasemap, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/scalebar", h.GetScaleBar, huma.OperationTags("catalog"))
	huma.Post(api, "/api/v1/labels/fit", h.FitLabel, huma.OperationTags("catalog"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterCompose registers the composition and run history routes.
func (h *APIHandler) RegisterCompose(api huma.API) {
	huma.Post(api, "/api/v1/compose", h.Compose, huma.OperationTags("compose"))
	huma.Get(api, "/api/v1/runs", h.GetRuns, huma.OperationTags("compose"))
	huma.Get(api, "/api/v1/runs/{id}", h.GetRun, huma.OperationTags("compose"))
	huma.Get(api, "/api/v1/runs/{id}/artifact", h.GetArtifact, huma.OperationTags("compose"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: Version}
	if h.svc != nil && h.svc.Compose != nil {
		body.Running = h.svc.Compose.Composer().Running()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) catalog() *catalog.Catalog {
	return h.svc.Compose.Composer().Resolver().Catalog()
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct{ Body []RegionBody }, error) {
	regions := h.catalog().Regions()
	out := make([]RegionBody, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionBody{Name: r.Name, Copyright: r.Copyright, Scales: r.Scales()})
	}
	return &struct{ Body []RegionBody }{Body: out}, nil
}

func (h *APIHandler) GetBasemap(ctx context.Context, input *BasemapInput) (*struct{ Body basemap.Descriptor }, error) {
	kind, err := basemap.ParseKind(input.Kind)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	d, err := h.svc.Compose.Composer().Resolver().Resolve(input.Region, input.Scale, kind)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body basemap.Descriptor }{Body: d}, nil
}

func (h *APIHandler) GetScaleBar(ctx context.Context, input *ScaleBarInput) (*struct{ Body ScaleBarBody }, error) {
	paper, err := layout.ParsePaper(input.Paper)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	spec, err := scalebar.Plan(input.Scale, paper)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body ScaleBarBody }{Body: ScaleBarBody{Spec: spec, BarLengthMM: spec.BarLengthMM()}}, nil
}

func (h *APIHandler) FitLabel(ctx context.Context, input *FitInput) (*struct{ Body FitBody }, error) {
	in := input.Body
	if in.MinSize > in.DefaultSize {
		return nil, huma.Error422UnprocessableEntity("minSize must not exceed defaultSize")
	}
	dpi := in.DPI
	if dpi == 0 {
		dpi = composer.DefaultDPI
	}
	m, err := label.NewFaceMeasurer(dpi)
	if err != nil {
		return nil, huma.Error500InternalServerError("font unavailable", err)
	}
	maxPx := label.WidthPixels(in.WidthMM, dpi)
	size, text := label.FitText(m, in.Text, maxPx, in.MinSize, in.DefaultSize)
	width := m.Width(text, size)
	return &struct{ Body FitBody }{Body: FitBody{
		Text: text, FontSize: size, WidthPx: width, MaxPx: maxPx, Fits: width <= maxPx,
	}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) Compose(ctx context.Context, input *struct{ Body service.ComposeRequest }) (*struct{ Body RunBody }, error) {
	res, err := h.svc.Compose.Compose(ctx, input.Body)
	if res == nil {
		return nil, httpError(err)
	}
	rec, _ := h.svc.Compose.Runs().Get(res.RunID)
	return &struct{ Body RunBody }{Body: RunBody{RunRecord: rec, Plan: summarize(res.Plan)}}, nil
}

func (h *APIHandler) GetRuns(ctx context.Context, input *RunsInput) (*struct {
	Body humastar.PageBody[service.RunRecord]
}, error) {
	page := humastar.Paginate(h.svc.Compose.Runs().List(), input.Offset, input.Limit)
	return &struct {
		Body humastar.PageBody[service.RunRecord]
	}{Body: page}, nil
}

func (h *APIHandler) GetRun(ctx context.Context, input *IDInput) (*struct{ Body RunBody }, error) {
	rec, ok := h.svc.Compose.Runs().Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("run not found")
	}
	return &struct{ Body RunBody }{Body: RunBody{RunRecord: rec}}, nil
}

func (h *APIHandler) GetArtifact(ctx context.Context, input *IDInput) (*ArtifactOutput, error) {
	rec, ok := h.svc.Compose.Runs().Get(input.ID)
	if !ok || rec.OutputPath == "" {
		return nil, huma.Error404NotFound("no artifact for run")
	}
	data, err := os.ReadFile(rec.OutputPath)
	if err != nil {
		return nil, huma.Error404NotFound("artifact missing", err)
	}
	contentType := "application/pdf"
	if strings.EqualFold(filepath.Ext(rec.OutputPath), ".png") {
		contentType = "image/png"
	}
	return &ArtifactOutput{
		ContentType:        contentType,
		ContentDisposition: `attachment; filename="` + filepath.Base(rec.OutputPath) + `"`,
		Body:               data,
	}, nil
}

func summarize(p *composer.Plan) *PlanSummary {
	if p == nil {
		return nil
	}
	s := &PlanSummary{
		Paper:   string(p.Paper),
		Scale:   p.Scale,
		DPI:     p.DPI,
		CRS:     p.CRS,
		Basemap: p.Basemap,
		Legend:  []string{},
		Labels:  p.Labels(),
	}
	if p.Template != nil {
		s.Template = p.Template.Name
	}
	if m := p.Map(); m != nil {
		s.Extent = boundArray(m.Extent)
	}
	for _, it := range p.Items {
		if it.Legend != nil {
			for _, e := range it.Legend.Entries {
				s.Legend = append(s.Legend, e.DisplayName)
			}
		}
		if it.ScaleBar != nil {
			s.ScaleBar = it.ScaleBar
		}
	}
	return s
}

func boundArray(b orb.Bound) [4]float64 {
	return [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}
