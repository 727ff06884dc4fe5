package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
)

// httpError maps a composition error kind to an HTTP status.
func httpError(err error) error {
	if err == nil {
		return huma.Error500InternalServerError("no result")
	}
	msg := err.Error()
	switch apperr.KindOf(err) {
	case apperr.MissingRequiredInput, apperr.UnknownRegion, apperr.UnsupportedScale, apperr.InvalidGeometry:
		return huma.Error422UnprocessableEntity(msg)
	case apperr.RunInProgress:
		return huma.Error409Conflict(msg)
	case apperr.BasemapLoadFailed:
		return huma.Error502BadGateway(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
