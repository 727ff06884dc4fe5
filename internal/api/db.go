package api

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapcraft/internal/db"
	"github.com/joeblew999/plat-mapcraft/internal/service"
)

// DBHandler inspects source files through DuckDB spatial.
type DBHandler struct {
	db      *sql.DB
	sources *service.SourceService
}

// NewDBHandler creates a new database handler.
func NewDBHandler(conn *sql.DB, sources *service.SourceService) *DBHandler {
	return &DBHandler{db: conn, sources: sources}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/sources/{name}", h.InspectSource, huma.OperationTags("sources"))
}

type SourceInput struct {
	Name string `path:"name" doc:"Source file name" example:"wea.shp"`
}

// SourceSummary describes the features of one source file.
type SourceSummary struct {
	Name          string     `json:"name" doc:"Source file name"`
	Features      int64      `json:"features" doc:"Number of features with geometry"`
	GeometryTypes []string   `json:"geometryTypes" doc:"Distinct geometry types"`
	Extent        [4]float64 `json:"extent" doc:"minx, miny, maxx, maxy"`
}

// InspectSource counts features and computes the extent of a source file.
func (h *DBHandler) InspectSource(ctx context.Context, input *SourceInput) (*struct{ Body SourceSummary }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if strings.ContainsAny(input.Name, `/\`) || strings.Contains(input.Name, "..") {
		return nil, huma.Error400BadRequest("Invalid file name")
	}
	path, err := h.sources.Resolve(input.Name)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid file name")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, huma.Error404NotFound("source not found")
	}

	src := fmt.Sprintf("ST_Read(%s)", db.Literal(path))
	summary := SourceSummary{Name: filepath.Base(path), GeometryTypes: []string{}}

	row := h.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT count(*), coalesce(min(ST_XMin(geom)), 0), coalesce(min(ST_YMin(geom)), 0),
		        coalesce(max(ST_XMax(geom)), 0), coalesce(max(ST_YMax(geom)), 0)
		 FROM %s WHERE geom IS NOT NULL`, src))
	e := &summary.Extent
	if err := row.Scan(&summary.Features, &e[0], &e[1], &e[2], &e[3]); err != nil {
		return nil, huma.Error422UnprocessableEntity("Failed to read source", err)
	}

	rows, err := h.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT CAST(ST_GeometryType(geom) AS VARCHAR) FROM %s WHERE geom IS NOT NULL ORDER BY 1`, src))
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("Failed to read geometry types", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err == nil {
			summary.GeometryTypes = append(summary.GeometryTypes, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error500InternalServerError("Failed to read geometry types", err)
	}
	return &struct{ Body SourceSummary }{Body: summary}, nil
}
