package service

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/layout"
	"github.com/joeblew999/plat-mapcraft/internal/logging"
)

// ComposeDefaults fill request fields the caller leaves empty.
type ComposeDefaults struct {
	OutputDir      string
	DPI            float64
	LegendMaxChars int
	Creator        string
}

// ComposeService turns requests into composer runs and records them.
type ComposeService struct {
	composer *composer.Composer
	runs     *RunStore
	sources  *SourceService
	defaults ComposeDefaults
	log      *logging.Logger
}

// NewComposeService creates a compose service.
func NewComposeService(c *composer.Composer, runs *RunStore, sources *SourceService, d ComposeDefaults, log *logging.Logger) *ComposeService {
	if log == nil {
		log = logging.Nop()
	}
	return &ComposeService{composer: c, runs: runs, sources: sources, defaults: d, log: log}
}

// Composer returns the underlying composer.
func (s *ComposeService) Composer() *composer.Composer {
	return s.composer
}

// Input converts a request into composer input.
func (s *ComposeService) Input(req ComposeRequest) (composer.Input, error) {
	paper, err := layout.ParsePaper(req.Paper)
	if err != nil {
		return composer.Input{}, apperr.Wrap(apperr.MissingRequiredInput, err, "invalid paper")
	}
	kind, err := req.basemapKind()
	if err != nil {
		return composer.Input{}, apperr.Wrap(apperr.MissingRequiredInput, err, "invalid basemap")
	}
	format, err := composer.ParseFormat(req.Format)
	if err != nil {
		return composer.Input{}, apperr.Wrap(apperr.MissingRequiredInput, err, "invalid format")
	}
	mode := composer.LegendMode(strings.ToLower(req.LegendMode))
	if mode == "" {
		mode = composer.LegendFixed
	}

	in := composer.Input{
		ProjectName:    req.ProjectName,
		Region:         req.Region,
		Scale:          req.Scale,
		Paper:          paper,
		Basemap:        kind,
		Format:         format,
		OutputDir:      s.defaults.OutputDir,
		LegendMode:     mode,
		LegendMaxChars: req.LegendMaxChars,
		KeepLayers:     req.KeepLayers,
		Creator:        firstNonEmpty(req.Creator, s.defaults.Creator),
		DPI:            req.DPI,
	}
	if req.OutputDir != "" {
		switch {
		case s.sources.Local():
			in.OutputDir = req.OutputDir
		case filepath.IsLocal(req.OutputDir):
			in.OutputDir = filepath.Join(s.defaults.OutputDir, req.OutputDir)
		default:
			return composer.Input{}, apperr.New(apperr.MissingRequiredInput, "output folder %q is outside %s", req.OutputDir, s.defaults.OutputDir)
		}
	}
	if in.LegendMaxChars == 0 {
		in.LegendMaxChars = s.defaults.LegendMaxChars
	}
	if in.DPI == 0 {
		in.DPI = s.defaults.DPI
	}
	for _, l := range req.Layers {
		role, err := l.role()
		if err != nil {
			return composer.Input{}, apperr.Wrap(apperr.MissingRequiredInput, err, "invalid layer")
		}
		path, err := s.sources.Resolve(l.File)
		if err != nil {
			return composer.Input{}, apperr.Wrap(apperr.MissingRequiredInput, err, "invalid layer file")
		}
		in.Layers = append(in.Layers, composer.ContentLayer{
			Role:           role,
			Path:           path,
			Name:           l.Name,
			BufferDistance: l.BufferDistance,
			Hidden:         l.Hidden,
		})
	}
	return in, nil
}

// Compose runs one composition and records it in the history.
func (s *ComposeService) Compose(ctx context.Context, req ComposeRequest) (*composer.Result, error) {
	in, err := s.Input(req)
	if err != nil {
		return nil, err
	}
	res, runErr := s.composer.Run(ctx, in)
	if res == nil {
		return nil, runErr
	}

	rec := RunRecord{
		ID:         res.RunID,
		Project:    in.ProjectName,
		Region:     in.Region,
		Scale:      in.Scale,
		Paper:      string(in.Paper),
		Basemap:    in.Basemap.String(),
		Format:     string(in.Format),
		State:      res.StateName,
		Outcome:    res.Outcome,
		OutputPath: res.OutputPath,
		Warnings:   res.Warnings,
		Started:    res.Started,
		Finished:   res.Finished,
	}
	if err := s.runs.Add(rec); err != nil {
		s.log.Warn("recording run failed", "run_id", res.RunID, "error", err.Error())
	}
	return res, runErr
}

// Runs returns the run history.
func (s *ComposeService) Runs() *RunStore {
	return s.runs
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
