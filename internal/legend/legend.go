// Package legend builds the printed legend: which layers appear, in what
// order and under which names, and how large the legend text is set.
//
// The legend is rebuilt from scratch on every run. Building it twice from
// the same input yields the same entries in the same order.
package legend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Role is a content layer's place in the fixed legend precedence.
type Role int

const (
	TurbineLayout Role = iota
	TurbineBuffer
	SiteBoundary
	BoundaryBuffer
	PriorityArea
	PotentialArea
)

// Roles in legend precedence order.
var Roles = []Role{TurbineLayout, TurbineBuffer, SiteBoundary, BoundaryBuffer, PriorityArea, PotentialArea}

var roleKeys = map[Role]string{
	TurbineLayout:  "turbines",
	TurbineBuffer:  "turbine_buffer",
	SiteBoundary:   "site_boundary",
	BoundaryBuffer: "boundary_buffer",
	PriorityArea:   "priority_area",
	PotentialArea:  "potential_area",
}

func (r Role) String() string {
	if s, ok := roleKeys[r]; ok {
		return s
	}
	return "role(" + strconv.Itoa(int(r)) + ")"
}

// ParseRole accepts the role keys printed by String.
func ParseRole(s string) (Role, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for r, k := range roleKeys {
		if k == key {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown layer role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleKeys[r]; !ok {
		return nil, fmt.Errorf("unknown layer role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// DisplayNames are the legend names used for each role.
var DisplayNames = map[Role]string{
	TurbineLayout:  "WEA - Neuplanung",
	TurbineBuffer:  "WEA Puffer",
	SiteBoundary:   "Projektfläche",
	BoundaryBuffer: "Projektfläche Puffer",
	PriorityArea:   "Vorranggebiet Windenergie",
	PotentialArea:  "Potenzialfläche",
}

// Candidate is a layer that may appear in the legend.
type Candidate struct {
	Role     Role
	LayerID  string
	BaseName string
	Visible  bool
	// BufferDistance, in metres, is appended to the name when set.
	BufferDistance *float64
}

// Entry is one legend row.
type Entry struct {
	LayerID     string `json:"layerId"`
	DisplayName string `json:"displayName"`
	Order       int    `json:"order"`
}

// Build returns the legend entries for the visible candidates, in role
// precedence. A layer appears at most once.
func Build(candidates []Candidate) []Entry {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })

	entries := make([]Entry, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, c := range sorted {
		if !c.Visible || c.LayerID == "" || seen[c.LayerID] {
			continue
		}
		seen[c.LayerID] = true
		entries = append(entries, Entry{
			LayerID:     c.LayerID,
			DisplayName: displayName(c),
			Order:       len(entries),
		})
	}
	return entries
}

func displayName(c Candidate) string {
	name := c.BaseName
	if name == "" {
		name = DisplayNames[c.Role]
	}
	if c.BufferDistance != nil {
		name += " (" + strconv.FormatFloat(*c.BufferDistance, 'f', -1, 64) + " m)"
	}
	return name
}
