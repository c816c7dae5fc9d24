// Package theme holds the wallboard colour themes and palettes. A theme is a
// fixed array indexed by Role, so the day and night themes always cover the
// same set of roles.
package theme

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

type Role int

const (
	RowEven Role = iota
	RowOdd
	Separator
	Weekend
	Holiday
	Today
	Grid
	NowLine
	BarPast
	BarFuture
	BarOutline
	LabelBG
	LabelBorder
	LabelText
	HourText
	EquipmentText
	DateText
	DateWeekend
	HeaderBG
	Background

	numRoles
)

var roleNames = [numRoles]string{
	RowEven:       "row_even",
	RowOdd:        "row_odd",
	Separator:     "separator",
	Weekend:       "weekend",
	Holiday:       "holiday",
	Today:         "today",
	Grid:          "grid",
	NowLine:       "now_line",
	BarPast:       "bar_past",
	BarFuture:     "bar_future",
	BarOutline:    "bar_outline",
	LabelBG:       "label_bg",
	LabelBorder:   "label_border",
	LabelText:     "label_text",
	HourText:      "hour_text",
	EquipmentText: "equipment_text",
	DateText:      "date_text",
	DateWeekend:   "date_weekend",
	HeaderBG:      "header_bg",
	Background:    "background",
}

func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}

// Roles lists every colour role in declaration order.
func Roles() []Role {
	out := make([]Role, numRoles)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

// ParseRole resolves a role by its snake_case name.
func ParseRole(name string) (Role, error) {
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown colour role %q", name)
}

// ShiftAlphaKey is the override key for the shift band opacity.
const ShiftAlphaKey = "shift_alpha"

// Theme parameterises every colour the painter uses.
type Theme struct {
	Name       string
	Colors     [numRoles]color.NRGBA
	ShiftAlpha float64
	Batch      [12]color.NRGBA
	Accents    [5]color.NRGBA
	Teams      [4]color.NRGBA
}

// Color returns the colour for role r.
func (t Theme) Color(r Role) color.NRGBA {
	return t.Colors[r]
}

// BatchBarColor is the planner bar colour for a series number.
func (t Theme) BatchBarColor(series int) color.NRGBA {
	return t.Batch[floorMod(series, len(t.Batch))]
}

// AccentColor is the wallboard bar accent for a series number.
func (t Theme) AccentColor(series int) color.NRGBA {
	return t.Accents[floorMod(series, len(t.Accents))]
}

// TeamColor is the shift band colour for a team index.
func (t Theme) TeamColor(team int) color.NRGBA {
	return t.Teams[floorMod(team, len(t.Teams))]
}

// Override returns a copy of t with the given role colours replaced. Keys are
// role names (see Roles) or ShiftAlphaKey; colour values are hex strings.
func (t Theme) Override(values map[string]string) (Theme, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if k == ShiftAlphaKey {
			a, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || a < 0 || a > 1 {
				return t, fmt.Errorf("theme %s: %s must be a number in [0,1], got %q", t.Name, k, v)
			}
			t.ShiftAlpha = a
			continue
		}
		role, err := ParseRole(k)
		if err != nil {
			return t, fmt.Errorf("theme %s: %w", t.Name, err)
		}
		c, err := ParseHex(v)
		if err != nil {
			return t, fmt.Errorf("theme %s: %s: %w", t.Name, k, err)
		}
		t.Colors[role] = c
	}
	return t, nil
}

// Hex renders every role as #RRGGBBAA keyed by role name.
func (t Theme) Hex() map[string]string {
	out := make(map[string]string, numRoles+1)
	for i, c := range t.Colors {
		out[roleNames[i]] = FormatHex(c)
	}
	out[ShiftAlphaKey] = strconv.FormatFloat(t.ShiftAlpha, 'f', -1, 64)
	return out
}

// Set pairs the two themes the wallboard switches between.
type Set struct {
	Day   Theme
	Night Theme
}

// DefaultSet is the built-in day and night themes.
func DefaultSet() Set {
	return Set{Day: Day(), Night: Night()}
}

// Pick returns the night theme when night is true.
func (s Set) Pick(night bool) Theme {
	if night {
		return s.Night
	}
	return s.Day
}

// ParseHex accepts #RGB, #RRGGBB and #RRGGBBAA.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]}) + "ff"
	case 6:
		h += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatHex renders c as #RRGGBB, or #RRGGBBAA when it is translucent.
func FormatHex(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

func floorMod(a, n int) int {
	return ((a % n) + n) % n
}
