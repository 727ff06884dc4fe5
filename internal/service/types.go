// Package service contains the business logic behind the CLI and the HTTP
// API: composing maps, keeping run history, and listing source files.
package service

import (
	"time"

	"github.com/joeblew999/plat-mapcraft/internal/basemap"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
	"github.com/joeblew999/plat-mapcraft/internal/legend"
)

// LayerRequest names one content layer of a compose request.
type LayerRequest struct {
	Role           string   `json:"role" required:"true" enum:"turbines,turbine_buffer,site_boundary,boundary_buffer,priority_area,potential_area" doc:"Legend role of the layer" example:"turbines"`
	File           string   `json:"file" required:"true" minLength:"1" doc:"File path relative to the sources directory" example:"wea.shp"`
	Name           string   `json:"name,omitempty" doc:"Legend name override"`
	BufferDistance *float64 `json:"bufferDistance,omitempty" doc:"Buffer distance in metres, appended to the legend name" example:"500"`
	Hidden         bool     `json:"hidden,omitempty" doc:"Draw the layer but leave it out of the legend"`
}

// ComposeRequest is everything a caller supplies for one map.
type ComposeRequest struct {
	ProjectName    string         `json:"projectName" required:"true" minLength:"1" maxLength:"100" doc:"Wind park project name" example:"Hunsrückhöhe"`
	Region         string         `json:"region,omitempty" doc:"Federal state, required for the topographic basemap" example:"Rheinland-Pfalz"`
	Scale          int            `json:"scale" required:"true" enum:"10000,15000,25000,50000" doc:"Print scale denominator" example:"25000"`
	Paper          string         `json:"paper,omitempty" enum:"A4,A3" default:"A4" doc:"Paper size"`
	Basemap        string         `json:"basemap,omitempty" enum:"topographic,satellite,osm" default:"topographic" doc:"Basemap kind"`
	Format         string         `json:"format,omitempty" enum:"pdf,png" default:"pdf" doc:"Export format"`
	Layers         []LayerRequest `json:"layers" required:"true" minItems:"1" doc:"Content layers, one must have role turbines"`
	LegendMode     string         `json:"legendMode,omitempty" enum:"fixed,manual" default:"fixed" doc:"Fixed role precedence or the visible layer tree"`
	LegendMaxChars int            `json:"legendMaxChars,omitempty" minimum:"0" doc:"Manual legend name limit, 0 uses the configured default"`
	KeepLayers     bool           `json:"keepLayers,omitempty" doc:"Keep content layers registered after a successful run"`
	Creator        string         `json:"creator,omitempty" doc:"Name printed in the creator label"`
	OutputDir      string         `json:"outputDir,omitempty" doc:"Output folder below the configured output directory"`
	DPI            float64        `json:"dpi,omitempty" minimum:"0" maximum:"1200" doc:"Raster resolution, defaults to the configured DPI"`
}

// RunRecord is a finished run as kept in the history.
type RunRecord struct {
	ID         string           `json:"id" doc:"Run ID" example:"4f1c2d0e-8a8b-4c35-9a55-0f3c1f2c9d11"`
	Project    string           `json:"project" doc:"Project name"`
	Region     string           `json:"region,omitempty" doc:"Federal state"`
	Scale      int              `json:"scale" doc:"Print scale denominator"`
	Paper      string           `json:"paper" doc:"Paper size"`
	Basemap    string           `json:"basemap" doc:"Basemap kind"`
	Format     string           `json:"format" doc:"Export format"`
	State      string           `json:"state" doc:"Final state: done or failed"`
	Outcome    composer.Outcome `json:"outcome" doc:"Run outcome"`
	OutputPath string           `json:"outputPath,omitempty" doc:"Exported file"`
	Warnings   []string         `json:"warnings,omitempty" doc:"Skipped optional layers"`
	Started    time.Time        `json:"started" doc:"Start time"`
	Finished   time.Time        `json:"finished" doc:"End time"`
}

// SourceFile represents a vector file available as a content layer.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"wea.shp"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"Shapefile"`
}

// Event is published for every composer state transition.
type Event struct {
	RunID string `json:"runId"`
	From  string `json:"from"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (r ComposeRequest) basemapKind() (basemap.Kind, error) {
	return basemap.ParseKind(r.Basemap)
}

func (l LayerRequest) role() (legend.Role, error) {
	return legend.ParseRole(l.Role)
}
