// Package apperr defines the failure taxonomy shared by every map composition
// component. Each component returns an *Error instead of panicking, and the
// composer is the single place that turns one into a user-facing outcome.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a composition failure.
type Kind int

const (
	Unknown Kind = iota
	UnknownRegion
	UnsupportedScale
	InvalidGeometry
	MissingRequiredInput
	BasemapLoadFailed
	ExportFailed
	RunInProgress
	InvalidTemplate
	Internal
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	UnknownRegion:        "unknown_region",
	UnsupportedScale:     "unsupported_scale",
	InvalidGeometry:      "invalid_geometry",
	MissingRequiredInput: "missing_required_input",
	BasemapLoadFailed:    "basemap_load_failed",
	ExportFailed:         "export_failed",
	RunInProgress:        "run_in_progress",
	InvalidTemplate:      "invalid_template",
	Internal:             "internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a typed composition failure.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
