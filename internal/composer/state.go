package composer

import (
	"time"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
)

// State is a step of a composition run. Runs move forward only.
type State int

const (
	Idle State = iota
	ResolvingBasemap
	ComputingExtent
	BuildingLegend
	PlanningScaleBar
	PlanningLabels
	Exporting
	Done
	Failed
)

var stateNames = [...]string{
	Idle:             "idle",
	ResolvingBasemap: "resolving_basemap",
	ComputingExtent:  "computing_extent",
	BuildingLegend:   "building_legend",
	PlanningScaleBar: "planning_scale_bar",
	PlanningLabels:   "planning_labels",
	Exporting:        "exporting",
	Done:             "done",
	Failed:           "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Transition is reported to observers on every state change.
type Transition struct {
	RunID string
	From  State
	To    State
	At    time.Time
	// Err is set when To is Failed.
	Err error
}

// Observer receives transitions synchronously, in order.
type Observer interface {
	Transition(t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t Transition)

func (f ObserverFunc) Transition(t Transition) { f(t) }

// Status is the user-facing result class of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Outcome is the single message a run reports.
type Outcome struct {
	Status Status      `json:"status"`
	Reason string      `json:"reason,omitempty"`
	Kind   apperr.Kind `json:"-"`
	// KindName mirrors Kind for JSON consumers.
	KindName string `json:"kind,omitempty"`
}
