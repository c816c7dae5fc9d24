package render

import (
	"fmt"
	"strings"
	"time"

	"plantpulse/internal/calendar"
	"plantpulse/internal/domain"
	"plantpulse/internal/geometry"
	"plantpulse/internal/layout"
	"plantpulse/internal/shift"
	"plantpulse/internal/theme"
)

// Options toggles optional parts of the wallboard.
type Options struct {
	Weekends     bool     `json:"weekends" yaml:"weekends"`
	Holidays     bool     `json:"holidays" yaml:"holidays"`
	Today        bool     `json:"today" yaml:"today"`
	NowLine      bool     `json:"now_line" yaml:"now_line"`
	ShiftBand    bool     `json:"shift_band" yaml:"shift_band"`
	HourLabels   bool     `json:"hour_labels" yaml:"hour_labels"`
	SeriesLabels bool     `json:"series_labels" yaml:"series_labels"`
	Emphasis     []string `json:"emphasis_prefixes" yaml:"emphasis_prefixes"`
}

func DefaultOptions() Options {
	return Options{
		Weekends:     true,
		Holidays:     true,
		Today:        true,
		NowLine:      true,
		ShiftBand:    true,
		SeriesLabels: true,
		Emphasis:     []string{"F-"},
	}
}

// Inputs is everything a paint depends on besides size and clock.
type Inputs struct {
	Equipment   []domain.Equipment
	Groups      []domain.DisplayGroup
	GroupFilter []string
	Stages      []domain.Stage
	Chains      []domain.BatchChain
	View        domain.Viewport
	Night       bool
}

// InputsFromSnapshot copies the render-relevant parts of s.
func InputsFromSnapshot(s domain.Snapshot, filter []string) Inputs {
	return Inputs{
		Equipment:   s.Equipment,
		Groups:      s.DisplayGroups,
		GroupFilter: filter,
		Stages:      s.Stages,
		Chains:      s.BatchChains,
		View:        s.View,
		Night:       s.Night,
	}
}

// Bar is one drawable stage.
type Bar struct {
	StageID     string               `json:"stage_id"`
	EquipmentID string               `json:"equipment_id"`
	ChainID     string               `json:"batch_chain_id"`
	Series      int                  `json:"series_number"`
	Pos         geometry.BarPosition `json:"position"`
	Y           float64              `json:"y"`
	Future      bool                 `json:"future"`
	Start       time.Time            `json:"start" format:"date-time"`
	End         time.Time            `json:"end" format:"date-time"`
}

// Day is one visible calendar column.
type Day struct {
	Date    time.Time        `json:"date" format:"date-time"`
	X       float64          `json:"x"`
	Width   float64          `json:"width"`
	Type    calendar.DayType `json:"-"`
	Kind    string           `json:"kind"`
	Today   bool             `json:"today"`
	Holiday string           `json:"holiday,omitempty"`
}

// Scene is the fully computed geometry of one paint. Theme does not enter it.
type Scene struct {
	Width       float64             `json:"width"`
	Height      float64             `json:"height"`
	Now         time.Time           `json:"now" format:"date-time"`
	Mapper      geometry.Mapper     `json:"-"`
	Rows        []layout.Row        `json:"rows"`
	Bars        []Bar               `json:"bars"`
	Days        []Day               `json:"days"`
	Bands       []shift.Band        `json:"bands"`
	NowX        float64             `json:"now_x"`
	NowVisible  bool                `json:"now_visible"`
	Diagnostics []layout.Diagnostic `json:"diagnostics,omitempty"`
}

// Painter holds the configured components the wallboard is drawn from.
type Painter struct {
	Calendar *calendar.Calendar
	Rotation shift.Rotation
	Metrics  layout.Metrics
	Themes   theme.Set
	Options  Options
	Location *time.Location
}

// NewPainter builds a painter with the default metrics, themes and options.
func NewPainter(cal *calendar.Calendar, rot shift.Rotation, loc *time.Location) *Painter {
	if loc == nil {
		loc = time.Local
	}
	return &Painter{
		Calendar: cal,
		Rotation: rot,
		Metrics:  layout.DefaultMetrics(),
		Themes:   theme.DefaultSet(),
		Options:  DefaultOptions(),
		Location: loc,
	}
}

func (p *Painter) loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Prepare computes the scene for a canvas of the given measured size. The
// scene height grows to fit every row.
func (p *Painter) Prepare(in Inputs, width, height float64, now time.Time) Scene {
	m := p.Metrics
	res := layout.Build(in.Equipment, layout.FilterGroups(in.Groups, in.GroupFilter), m)
	sc := Scene{
		Width:       width,
		Now:         now,
		Rows:        res.Rows,
		Diagnostics: res.Diagnostics,
	}
	sc.Height = layout.ContentHeight(res.Rows, m)
	if height > sc.Height {
		sc.Height = height
	}
	sc.Mapper = geometry.Mapper{
		ViewStart:   in.View.Start,
		Days:        in.View.Days,
		Width:       width,
		LeftMargin:  m.LeftMargin,
		MinBarWidth: m.MinBarWidth,
	}

	sc.Days = p.days(sc.Mapper, now)
	sc.Bands = p.Rotation.Bands(in.View.Start, in.View.Days)
	sc.NowX = sc.Mapper.X(now)
	sc.NowVisible = sc.Mapper.Visible(sc.NowX)
	sc.Bars, sc.Diagnostics = p.bars(in, sc.Mapper, res.Rows, now, sc.Diagnostics)
	return sc
}

func (p *Painter) days(mp geometry.Mapper, now time.Time) []Day {
	if mp.Empty() {
		return nil
	}
	loc := p.loc()
	ppd := mp.PixelsPerDay()
	ty, tm, td := now.In(loc).Date()
	start := mp.ViewStart.In(loc)
	out := make([]Day, 0, mp.Days)
	for d := 0; d < mp.Days; d++ {
		date := start.AddDate(0, 0, d)
		y, mo, dd := date.Date()
		day := Day{Date: date, X: mp.DayX(d), Width: ppd, Today: y == ty && mo == tm && dd == td}
		switch {
		case p.Calendar != nil:
			day.Type = p.Calendar.Classify(date)
			day.Holiday, _ = p.Calendar.HolidayName(date)
		case calendar.IsSunday(date):
			day.Type = calendar.Sunday
		case calendar.IsSaturday(date):
			day.Type = calendar.Saturday
		}
		day.Kind = day.Type.String()
		out = append(out, day)
	}
	return out
}

func (p *Painter) bars(in Inputs, mp geometry.Mapper, rows []layout.Row, now time.Time, diags []layout.Diagnostic) ([]Bar, []layout.Diagnostic) {
	byRow := layout.ByEquipment(rows)
	known := make(map[string]bool, len(in.Equipment))
	for _, e := range in.Equipment {
		known[e.ID] = true
	}
	series := make(map[string]int, len(in.Chains))
	for _, c := range in.Chains {
		series[c.ID] = c.SeriesNumber
	}
	var out []Bar
	for _, st := range in.Stages {
		row, ok := byRow[st.EquipmentID]
		if !ok {
			if !known[st.EquipmentID] {
				diags = append(diags, layout.Diagnostic{
					Code:    layout.DanglingStageRef,
					Ref:     st.EquipmentID,
					Message: fmt.Sprintf("stage %s references unknown equipment %s", st.ID, st.EquipmentID),
				})
			}
			continue
		}
		pos := mp.Bar(st.Start, st.End)
		if pos.OffScreen {
			continue
		}
		out = append(out, Bar{
			StageID:     st.ID,
			EquipmentID: st.EquipmentID,
			ChainID:     st.BatchChainID,
			Series:      series[st.BatchChainID],
			Pos:         pos,
			Y:           row.Y + p.Metrics.BarPad(),
			Future:      st.Start.After(now),
			Start:       st.Start,
			End:         st.End,
		})
	}
	return out, diags
}

func (p *Painter) emphasized(name string) bool {
	for _, prefix := range p.Options.Emphasis {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
