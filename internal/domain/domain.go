package domain

import (
	"fmt"
	"time"
)

type StageState string

const (
	StagePlanned   StageState = "planned"
	StageActive    StageState = "active"
	StageCompleted StageState = "completed"
)

type BatchStatus string

const (
	BatchDraft     BatchStatus = "draft"
	BatchProposed  BatchStatus = "proposed"
	BatchCommitted BatchStatus = "committed"
)

// Downtime is an unavailability window. A nil End means the equipment stays
// unavailable until the window is cleared.
type Downtime struct {
	Start  time.Time  `json:"start" yaml:"start" format:"date-time"`
	End    *time.Time `json:"end,omitempty" yaml:"end,omitempty" format:"date-time"`
	Reason string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type Equipment struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Group        string    `json:"group" yaml:"group"`
	ProductLine  string    `json:"product_line,omitempty" yaml:"product_line,omitempty"`
	DisplayOrder float64   `json:"display_order" yaml:"display_order"`
	Downtime     *Downtime `json:"downtime,omitempty" yaml:"downtime,omitempty"`
}

// UnavailableAt reports whether the equipment is inside its downtime window at t.
func (e Equipment) UnavailableAt(t time.Time) bool {
	if e.Downtime == nil {
		return false
	}
	if e.Downtime.Start.After(t) {
		return false
	}
	if e.Downtime.End != nil && e.Downtime.End.Before(t) {
		return false
	}
	return true
}

// DowntimeEnded reports whether a finite downtime window is already over.
// Open-ended windows never end.
func (e Equipment) DowntimeEnded(now time.Time) bool {
	if e.Downtime == nil || e.Downtime.End == nil {
		return false
	}
	return e.Downtime.End.Before(now)
}

// HasDowntime reports active or future downtime; historical windows are ignored.
func (e Equipment) HasDowntime(now time.Time) bool {
	if e.Downtime == nil {
		return false
	}
	return !e.DowntimeEnded(now)
}

// EquipmentGroup is the classification bucket an Equipment belongs to.
type EquipmentGroup struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	ShortName    string `json:"short_name" yaml:"short_name"`
	DisplayOrder int    `json:"display_order" yaml:"display_order"`
}

// DisplayGroup orders equipment rows on the timeline. Both the group order and
// the EquipmentIDs order are significant.
type DisplayGroup struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	EquipmentIDs []string `json:"equipment_ids" yaml:"equipment_ids"`
}

type BatchChain struct {
	ID           string      `json:"id" yaml:"id"`
	BatchName    string      `json:"batch_name" yaml:"batch_name"`
	SeriesNumber int         `json:"series_number" yaml:"series_number"`
	ProductLine  string      `json:"product_line" yaml:"product_line"`
	Status       BatchStatus `json:"status" yaml:"status" enum:"draft,proposed,committed"`
}

type Stage struct {
	ID           string     `json:"id" yaml:"id"`
	EquipmentID  string     `json:"equipment_id" yaml:"equipment_id"`
	BatchChainID string     `json:"batch_chain_id" yaml:"batch_chain_id"`
	StageType    string     `json:"stage_type" yaml:"stage_type"`
	Start        time.Time  `json:"start" yaml:"start" format:"date-time"`
	End          time.Time  `json:"end" yaml:"end" format:"date-time"`
	State        StageState `json:"state" yaml:"state" enum:"planned,active,completed"`
}

// StateAt derives the lifecycle state of the stage relative to ref.
func (s Stage) StateAt(ref time.Time) StageState {
	switch {
	case s.End.Before(ref):
		return StageCompleted
	case s.Start.Before(ref):
		return StageActive
	default:
		return StagePlanned
	}
}

type StageDefault struct {
	StageType     string   `json:"stage_type" yaml:"stage_type"`
	DurationHours float64  `json:"default_duration_hours" yaml:"default_duration_hours"`
	MinHours      *float64 `json:"min_duration_hours,omitempty" yaml:"min_duration_hours,omitempty"`
	MaxHours      *float64 `json:"max_duration_hours,omitempty" yaml:"max_duration_hours,omitempty"`
	EquipmentGrp  string   `json:"equipment_group" yaml:"equipment_group"`
}

// Bounds returns the duration window, defaulting to the target ±10%.
func (d StageDefault) Bounds() (lo, hi float64) {
	lo, hi = d.DurationHours*0.9, d.DurationHours*1.1
	if d.MinHours != nil {
		lo = *d.MinHours
	}
	if d.MaxHours != nil {
		hi = *d.MaxHours
	}
	return lo, hi
}

type ProductLine struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	StageDefaults []StageDefault `json:"stage_defaults" yaml:"stage_defaults"`
	DisplayOrder  int            `json:"display_order" yaml:"display_order"`
}

type Viewport struct {
	Start time.Time `json:"view_start" yaml:"view_start" format:"date-time"`
	Days  int       `json:"number_of_days" yaml:"number_of_days"`
}

// End is the exclusive end of the visible range.
func (v Viewport) End() time.Time {
	return v.Start.Add(time.Duration(v.Days) * 24 * time.Hour)
}

// Snapshot is the full state the wallboard renders from.
type Snapshot struct {
	Equipment       []Equipment      `json:"equipment" yaml:"equipment"`
	EquipmentGroups []EquipmentGroup `json:"equipment_groups,omitempty" yaml:"equipment_groups,omitempty"`
	DisplayGroups   []DisplayGroup   `json:"display_groups" yaml:"display_groups"`
	ProductLines    []ProductLine    `json:"product_lines,omitempty" yaml:"product_lines,omitempty"`
	BatchChains     []BatchChain     `json:"batch_chains" yaml:"batch_chains"`
	Stages          []Stage          `json:"stages" yaml:"stages"`
	View            Viewport         `json:"view" yaml:"view"`
	Night           bool             `json:"night" yaml:"night"`
}

// Validate checks structural integrity before a snapshot is stored. Dangling
// references are allowed; the renderer skips them.
func (s Snapshot) Validate() error {
	seen := map[string]bool{}
	for _, e := range s.Equipment {
		if e.ID == "" {
			return fmt.Errorf("equipment with empty id")
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate equipment id %s", e.ID)
		}
		seen[e.ID] = true
	}
	groups := map[string]bool{}
	for _, g := range s.DisplayGroups {
		if g.ID == "" {
			return fmt.Errorf("display group with empty id")
		}
		if groups[g.ID] {
			return fmt.Errorf("duplicate display group id %s", g.ID)
		}
		groups[g.ID] = true
	}
	chains := map[string]bool{}
	for _, c := range s.BatchChains {
		if c.ID == "" {
			return fmt.Errorf("batch chain with empty id")
		}
		if chains[c.ID] {
			return fmt.Errorf("duplicate batch chain id %s", c.ID)
		}
		chains[c.ID] = true
	}
	stages := map[string]bool{}
	for _, st := range s.Stages {
		if st.ID == "" {
			return fmt.Errorf("stage with empty id")
		}
		if stages[st.ID] {
			return fmt.Errorf("duplicate stage id %s", st.ID)
		}
		stages[st.ID] = true
	}
	if s.View.Days < 0 {
		return fmt.Errorf("view.number_of_days must not be negative")
	}
	return nil
}

// StagesOf returns the stages owned by a chain, in snapshot order.
func (s Snapshot) StagesOf(chainID string) []Stage {
	var out []Stage
	for _, st := range s.Stages {
		if st.BatchChainID == chainID {
			out = append(out, st)
		}
	}
	return out
}

// RemoveChain deletes a chain together with the stages it owns.
func (s *Snapshot) RemoveChain(chainID string) bool {
	found := false
	chains := s.BatchChains[:0]
	for _, c := range s.BatchChains {
		if c.ID == chainID {
			found = true
			continue
		}
		chains = append(chains, c)
	}
	s.BatchChains = chains
	stages := s.Stages[:0]
	for _, st := range s.Stages {
		if st.BatchChainID == chainID {
			continue
		}
		stages = append(stages, st)
	}
	s.Stages = stages
	return found
}

// Event is one entry of the mutation log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	FacilityID string `json:"facility_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// RenderRecord summarises one completed paint of a surface.
type RenderRecord struct {
	ID               int64  `json:"id"`
	SurfaceID        string `json:"surface_id"`
	TS               string `json:"ts" format:"date-time"`
	Trigger          string `json:"trigger"`
	Theme            string `json:"theme"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Rows             int    `json:"rows"`
	Bars             int    `json:"bars"`
	SnapshotRevision int64  `json:"snapshot_revision"`
}
