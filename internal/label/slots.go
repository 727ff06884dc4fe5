package label

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joeblew999/plat-mapcraft/internal/layout"
)

// Slot ids bound to label items in the layout template.
const (
	SlotTitle     = "title"
	SlotWindpark  = "windpark"
	SlotCRS       = "crs"
	SlotCreator   = "creator"
	SlotRef       = "ref"
	SlotCopyright = "copyright"
)

// Strategy is how a slot handles text that does not fit.
type Strategy int

const (
	// FitWidth shrinks the font until the text fits the slot width.
	FitWidth Strategy = iota
	// ShiftUp keeps the font and moves the label up when the text is long.
	ShiftUp
)

func (s Strategy) String() string {
	if s == ShiftUp {
		return "shift_up"
	}
	return "fit_width"
}

// SlotPolicy holds the sizing rules of one slot on one paper size.
type SlotPolicy struct {
	Strategy    Strategy
	DefaultSize int
	MinSize     int
	// ShiftUp only.
	MaxChars int
	ShiftMM  float64
}

// Policies per paper size and slot.
var Policies = map[layout.Paper]map[string]SlotPolicy{
	layout.A4: {
		SlotTitle:     {Strategy: FitWidth, DefaultSize: 20, MinSize: 14},
		SlotWindpark:  {Strategy: ShiftUp, DefaultSize: 16, MinSize: 16, MaxChars: 24, ShiftMM: 4},
		SlotCRS:       {Strategy: FitWidth, DefaultSize: 8, MinSize: 5},
		SlotCreator:   {Strategy: FitWidth, DefaultSize: 8, MinSize: 5},
		SlotRef:       {Strategy: FitWidth, DefaultSize: 8, MinSize: 4},
		SlotCopyright: {Strategy: FitWidth, DefaultSize: 8, MinSize: 4},
	},
	layout.A3: {
		SlotTitle:     {Strategy: FitWidth, DefaultSize: 26, MinSize: 18},
		SlotWindpark:  {Strategy: ShiftUp, DefaultSize: 20, MinSize: 20, MaxChars: 32, ShiftMM: 5},
		SlotCRS:       {Strategy: FitWidth, DefaultSize: 10, MinSize: 6},
		SlotCreator:   {Strategy: FitWidth, DefaultSize: 10, MinSize: 6},
		SlotRef:       {Strategy: FitWidth, DefaultSize: 10, MinSize: 5},
		SlotCopyright: {Strategy: FitWidth, DefaultSize: 10, MinSize: 5},
	},
}

// Policy returns the rules for slot on paper.
func Policy(paper layout.Paper, slot string) (SlotPolicy, bool) {
	p, ok := Policies[paper][slot]
	return p, ok
}

// Inputs are the values the label texts are built from.
type Inputs struct {
	ProjectName    string
	CRSDescription string
	Creator        string
	Date           time.Time
	References     []string
	Copyright      string
}

// Texts returns the text of every slot.
func Texts(in Inputs) map[string]string {
	return map[string]string{
		SlotTitle:     "Übersichtskarte",
		SlotWindpark:  "Windpark " + in.ProjectName,
		SlotCRS:       "CRS: " + in.CRSDescription,
		SlotCreator:   "Map produced on " + in.Date.Format("02/01/06") + " by " + in.Creator,
		SlotRef:       "Ref: " + strings.Join(in.References, " | "),
		SlotCopyright: "Hintergrund: ©" + in.Copyright,
	}
}

// Slot is one label to plan.
type Slot struct {
	ID      string
	Text    string
	WidthMM float64
	Policy  SlotPolicy
	// Subject is the variable part compared against MaxChars; Text when empty.
	Subject string
}

// Result is the planned label.
type Result struct {
	SlotID   string  `json:"slot"`
	Text     string  `json:"text"`
	FontSize int     `json:"fontSize"`
	OffsetY  float64 `json:"offsetY" doc:"Vertical adjustment in mm, negative is up"`
	Strategy string  `json:"strategy"`
}

// Plan applies the slot's strategy.
func Plan(m Measurer, dpi float64, s Slot) Result {
	r := Result{SlotID: s.ID, Text: s.Text, FontSize: s.Policy.DefaultSize, Strategy: s.Policy.Strategy.String()}

	switch s.Policy.Strategy {
	case ShiftUp:
		subject := s.Subject
		if subject == "" {
			subject = s.Text
		}
		if s.Policy.MaxChars > 0 && utf8.RuneCountInString(subject) > s.Policy.MaxChars {
			r.OffsetY = -s.Policy.ShiftMM
		}
	default:
		r.FontSize, r.Text = FitText(m, s.Text, WidthPixels(s.WidthMM, dpi), s.Policy.MinSize, s.Policy.DefaultSize)
	}
	return r
}
