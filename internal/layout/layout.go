package layout

import (
	"fmt"

	"plantpulse/internal/domain"
)

// Metrics holds the fixed vertical/horizontal sizes of the wallboard in CSS-like
// pixels (before device scaling).
type Metrics struct {
	LeftMargin       float64
	ShiftBandHeight  float64
	DateHeaderHeight float64
	HeaderGap        float64
	RowHeight        float64
	BarHeight        float64
	SeparatorHeight  float64
	BorderWidth      float64
	MinBarWidth      float64
}

// DefaultMetrics matches the reference wallboard.
func DefaultMetrics() Metrics {
	return Metrics{
		LeftMargin:       72,
		ShiftBandHeight:  10,
		DateHeaderHeight: 32,
		HeaderGap:        4,
		RowHeight:        26,
		BarHeight:        16,
		SeparatorHeight:  12,
		BorderWidth:      3,
		MinBarWidth:      5,
	}
}

// TopMargin is where the first row starts.
func (m Metrics) TopMargin() float64 {
	return m.ShiftBandHeight + m.DateHeaderHeight + m.HeaderGap
}

// BarPad is the vertical inset of a bar inside its row.
func (m Metrics) BarPad() float64 {
	return (m.RowHeight - m.BarHeight) / 2
}

type Kind string

const (
	KindEquipment Kind = "equipment"
	KindSeparator Kind = "separator"
)

// Row is one derived visual line of the timeline.
type Row struct {
	Kind          Kind    `json:"kind" enum:"equipment,separator"`
	EquipmentID   string  `json:"equipment_id,omitempty"`
	EquipmentName string  `json:"equipment_name,omitempty"`
	GroupID       string  `json:"group_id"`
	Y             float64 `json:"y"`
	Index         int     `json:"index"`
}

// Height returns the row's vertical extent for m.
func (r Row) Height(m Metrics) float64 {
	if r.Kind == KindSeparator {
		return m.SeparatorHeight
	}
	return m.RowHeight
}

// Diagnostic is a non-fatal data-quality finding.
type Diagnostic struct {
	Code    string `json:"code"`
	GroupID string `json:"group_id,omitempty"`
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

const (
	DanglingGroupRef = "dangling_group_ref"
	DanglingStageRef = "dangling_stage_ref"
)

// Result is the output of Build.
type Result struct {
	Rows        []Row        `json:"rows"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// BuildRows lays out rows for groups in order. See Build.
func BuildRows(roster []domain.Equipment, groups []domain.DisplayGroup, m Metrics) []Row {
	return Build(roster, groups, m).Rows
}

// Build lays out one equipment row per resolvable identifier, group by group,
// with a separator row before every group except the first. Identifiers that
// are not in the roster are skipped and reported as diagnostics.
func Build(roster []domain.Equipment, groups []domain.DisplayGroup, m Metrics) Result {
	byID := make(map[string]domain.Equipment, len(roster))
	for _, e := range roster {
		if _, dup := byID[e.ID]; !dup {
			byID[e.ID] = e
		}
	}
	var res Result
	y := m.TopMargin()
	idx := 0
	for g, group := range groups {
		if g > 0 {
			res.Rows = append(res.Rows, Row{Kind: KindSeparator, GroupID: group.ID, Y: y, Index: idx})
			idx++
			y += m.SeparatorHeight
		}
		for _, id := range group.EquipmentIDs {
			e, ok := byID[id]
			if !ok {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Code:    DanglingGroupRef,
					GroupID: group.ID,
					Ref:     id,
					Message: fmt.Sprintf("display group %s references unknown equipment %s", group.ID, id),
				})
				continue
			}
			res.Rows = append(res.Rows, Row{
				Kind:          KindEquipment,
				EquipmentID:   e.ID,
				EquipmentName: e.Name,
				GroupID:       group.ID,
				Y:             y,
				Index:         idx,
			})
			idx++
			y += m.RowHeight
		}
	}
	return res
}

// FilterGroups keeps the groups whose id is in allow, preserving order. A nil
// allow list keeps every group.
func FilterGroups(groups []domain.DisplayGroup, allow []string) []domain.DisplayGroup {
	if allow == nil {
		return groups
	}
	set := make(map[string]bool, len(allow))
	for _, id := range allow {
		set[id] = true
	}
	out := make([]domain.DisplayGroup, 0, len(groups))
	for _, g := range groups {
		if set[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

// ByEquipment indexes equipment rows by equipment id.
func ByEquipment(rows []Row) map[string]Row {
	out := make(map[string]Row, len(rows))
	for _, r := range rows {
		if r.Kind == KindEquipment {
			out[r.EquipmentID] = r
		}
	}
	return out
}

// ContentHeight is the bottom of the last row plus a small pad, or a fixed
// empty-state height when there are no rows.
func ContentHeight(rows []Row, m Metrics) float64 {
	if len(rows) == 0 {
		return m.TopMargin() + 100
	}
	last := rows[len(rows)-1]
	return last.Y + last.Height(m) + 4
}
