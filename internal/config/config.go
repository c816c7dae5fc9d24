package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"plantpulse/internal/calendar"
	"plantpulse/internal/layout"
	"plantpulse/internal/shift"
	"plantpulse/internal/theme"
)

const FileName = "plantpulse.yml"

// AnchorLayout is the facility-local format of shifts.anchor.
const AnchorLayout = "2006-01-02T15:04"

// Config models plantpulse.yml.
type Config struct {
	Facility struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Timezone string `yaml:"timezone"`
	} `yaml:"facility"`
	Holidays struct {
		Jurisdiction string         `yaml:"jurisdiction"`
		Fixed        []FixedEntry   `yaml:"fixed"`
		Movable      []MovableEntry `yaml:"movable"`
	} `yaml:"holidays"`
	Shifts struct {
		Anchor string      `yaml:"anchor"`
		Cycle  []int       `yaml:"cycle"`
		Teams  []TeamEntry `yaml:"teams"`
	} `yaml:"shifts"`
	Layout struct {
		LeftMargin       float64  `yaml:"left_margin"`
		ShiftBandHeight  float64  `yaml:"shift_band_height"`
		DateHeaderHeight float64  `yaml:"date_header_height"`
		HeaderGap        float64  `yaml:"header_gap"`
		RowHeight        float64  `yaml:"row_height"`
		BarHeight        float64  `yaml:"bar_height"`
		SeparatorHeight  float64  `yaml:"separator_height"`
		BorderWidth      float64  `yaml:"border_width"`
		MinBarWidth      float64  `yaml:"min_bar_width"`
		EmphasisPrefixes []string `yaml:"emphasis_prefixes"`
	} `yaml:"layout"`
	Render struct {
		Days           int     `yaml:"days"`
		DaysBefore     int     `yaml:"days_before"`
		RefreshSeconds int     `yaml:"refresh_seconds"`
		Width          int     `yaml:"width"`
		Height         int     `yaml:"height"`
		Scale          float64 `yaml:"scale"`
		Layers         Layers  `yaml:"layers"`
	} `yaml:"render"`
	Night struct {
		Auto      bool `yaml:"auto"`
		NightHour int  `yaml:"night_hour"`
		DayHour   int  `yaml:"day_hour"`
	} `yaml:"night"`
	Themes struct {
		Day   map[string]string `yaml:"day"`
		Night map[string]string `yaml:"night"`
	} `yaml:"themes"`
}

type FixedEntry struct {
	Month int    `yaml:"month"`
	Day   int    `yaml:"day"`
	Name  string `yaml:"name"`
}

// MovableEntry is a holiday at a day offset from Easter Sunday.
type MovableEntry struct {
	Offset int    `yaml:"offset"`
	Name   string `yaml:"name"`
}

type TeamEntry struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Layers toggles optional wallboard layers.
type Layers struct {
	Weekends     bool `yaml:"weekends"`
	Holidays     bool `yaml:"holidays"`
	Today        bool `yaml:"today"`
	NowLine      bool `yaml:"now_line"`
	ShiftBand    bool `yaml:"shift_band"`
	HourLabels   bool `yaml:"hour_labels"`
	SeriesLabels bool `yaml:"series_labels"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with pp init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault returns the workspace config, or the defaults when there is
// no config file.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil || cfg != nil {
		return cfg, err
	}
	return Default("plant"), nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Facility.ID == "" {
		return fmt.Errorf("config.facility.id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for i, h := range c.Holidays.Fixed {
		if h.Month < 1 || h.Month > 12 {
			return fmt.Errorf("holidays.fixed[%d]: month %d out of range", i, h.Month)
		}
		probe := time.Date(2024, time.Month(h.Month), h.Day, 0, 0, 0, 0, time.UTC)
		if h.Day < 1 || probe.Day() != h.Day {
			return fmt.Errorf("holidays.fixed[%d]: day %d invalid for month %d", i, h.Day, h.Month)
		}
	}
	for i, m := range c.Holidays.Movable {
		if m.Offset < -60 || m.Offset > 60 {
			return fmt.Errorf("holidays.movable[%d]: offset %d too far from Easter", i, m.Offset)
		}
	}
	if _, err := c.Rotation(); err != nil {
		return err
	}
	if n := len(c.Shifts.Teams); n != 0 && n != shift.Teams {
		return fmt.Errorf("shifts.teams must list %d teams, got %d", shift.Teams, n)
	}
	for i, t := range c.Shifts.Teams {
		if t.Color == "" {
			continue
		}
		if _, err := theme.ParseHex(t.Color); err != nil {
			return fmt.Errorf("shifts.teams[%d]: %w", i, err)
		}
	}
	l := c.Layout
	if l.RowHeight <= 0 || l.BarHeight <= 0 || l.BarHeight > l.RowHeight {
		return fmt.Errorf("layout.bar_height must be positive and at most layout.row_height")
	}
	if l.LeftMargin < 0 || l.SeparatorHeight < 0 || l.MinBarWidth < 0 || l.BorderWidth < 0 || l.BorderWidth > l.BarHeight {
		return fmt.Errorf("layout sizes must be non-negative and border_width at most bar_height")
	}
	if c.Render.Days <= 0 {
		return fmt.Errorf("render.days must be positive")
	}
	if c.Render.RefreshSeconds <= 0 {
		return fmt.Errorf("render.refresh_seconds must be positive")
	}
	if c.Render.Width < 0 || c.Render.Height < 0 || c.Render.Scale < 0 {
		return fmt.Errorf("render.width, render.height and render.scale must not be negative")
	}
	if c.Night.NightHour < 0 || c.Night.NightHour > 23 || c.Night.DayHour < 0 || c.Night.DayHour > 23 {
		return fmt.Errorf("night hours must be in [0,23]")
	}
	if c.Night.NightHour <= c.Night.DayHour {
		return fmt.Errorf("night.night_hour must be after night.day_hour")
	}
	if _, err := c.ThemeSet(); err != nil {
		return err
	}
	return nil
}

// Location resolves facility.timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Facility.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Facility.Timezone)
	if err != nil {
		return nil, fmt.Errorf("facility.timezone: %w", err)
	}
	return loc, nil
}

// Jurisdiction builds the holiday table.
func (c *Config) Jurisdiction() calendar.Jurisdiction {
	j := calendar.Jurisdiction{Name: c.Holidays.Jurisdiction}
	for _, h := range c.Holidays.Fixed {
		j.Fixed = append(j.Fixed, calendar.FixedHoliday{Month: time.Month(h.Month), Day: h.Day, Name: h.Name})
	}
	for _, m := range c.Holidays.Movable {
		j.Movable = append(j.Movable, calendar.MovableHoliday{OffsetDays: m.Offset, Name: m.Name})
	}
	return j
}

// Rotation builds the shift rotation anchored in facility time.
func (c *Config) Rotation() (shift.Rotation, error) {
	loc, err := c.Location()
	if err != nil {
		return shift.Rotation{}, err
	}
	anchor := shift.DefaultAnchor(loc)
	if c.Shifts.Anchor != "" {
		anchor, err = time.ParseInLocation(AnchorLayout, c.Shifts.Anchor, loc)
		if err != nil {
			return shift.Rotation{}, fmt.Errorf("shifts.anchor: %w", err)
		}
	}
	cycle := c.Shifts.Cycle
	if len(cycle) == 0 {
		cycle = shift.DefaultCycle
	}
	r, err := shift.New(anchor, cycle)
	if err != nil {
		return shift.Rotation{}, fmt.Errorf("shifts.cycle: %w", err)
	}
	return r, nil
}

// Metrics returns the wallboard geometry.
func (c *Config) Metrics() layout.Metrics {
	l := c.Layout
	return layout.Metrics{
		LeftMargin:       l.LeftMargin,
		ShiftBandHeight:  l.ShiftBandHeight,
		DateHeaderHeight: l.DateHeaderHeight,
		HeaderGap:        l.HeaderGap,
		RowHeight:        l.RowHeight,
		BarHeight:        l.BarHeight,
		SeparatorHeight:  l.SeparatorHeight,
		BorderWidth:      l.BorderWidth,
		MinBarWidth:      l.MinBarWidth,
	}
}

// ThemeSet applies the configured overrides and team colours to the built-in
// themes.
func (c *Config) ThemeSet() (theme.Set, error) {
	set := theme.DefaultSet()
	var err error
	if set.Day, err = set.Day.Override(c.Themes.Day); err != nil {
		return set, fmt.Errorf("themes.day: %w", err)
	}
	if set.Night, err = set.Night.Override(c.Themes.Night); err != nil {
		return set, fmt.Errorf("themes.night: %w", err)
	}
	for i, t := range c.Shifts.Teams {
		if t.Color == "" || i >= len(set.Day.Teams) {
			continue
		}
		col, err := theme.ParseHex(t.Color)
		if err != nil {
			return set, fmt.Errorf("shifts.teams[%d]: %w", i, err)
		}
		set.Day.Teams[i] = col
		set.Night.Teams[i] = col
	}
	return set, nil
}

// TeamName returns the configured name of team i, or "Team N".
func (c *Config) TeamName(i int) string {
	if i >= 0 && i < len(c.Shifts.Teams) && strings.TrimSpace(c.Shifts.Teams[i].Name) != "" {
		return c.Shifts.Teams[i].Name
	}
	return fmt.Sprintf("Team %d", i+1)
}

// Refresh is the repaint interval.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.Render.RefreshSeconds) * time.Second
}

// GenerateDefault returns default config YAML.
func GenerateDefault(facilityID string) string {
	return fmt.Sprintf(defaultTemplate, facilityID)
}

// Default returns the default Config struct for a facility.
func Default(facilityID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(GenerateDefault(facilityID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections that are
// omitted keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config back to YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

const defaultTemplate = `facility:
  id: %s
  name: "Fermentation plant"
  # IANA zone used for day boundaries, holidays, shift anchor and night mode.
  timezone: Europe/Ljubljana

holidays:
  jurisdiction: SI
  fixed:
    - {month: 1, day: 1, name: "New Year's Day"}
    - {month: 1, day: 2, name: "New Year's Day"}
    - {month: 2, day: 8, name: "Prešeren Day"}
    - {month: 4, day: 27, name: "Day of Uprising Against Occupation"}
    - {month: 5, day: 1, name: "Labour Day"}
    - {month: 5, day: 2, name: "Labour Day"}
    - {month: 6, day: 25, name: "Statehood Day"}
    - {month: 8, day: 15, name: "Assumption of Mary"}
    - {month: 10, day: 31, name: "Reformation Day"}
    - {month: 11, day: 1, name: "All Saints' Day"}
    - {month: 12, day: 25, name: "Christmas Day"}
    - {month: 12, day: 26, name: "Independence and Unity Day"}
  # Offsets in days from Easter Sunday.
  movable:
    - {offset: 1, name: "Easter Monday"}

shifts:
  anchor: "2026-01-01T06:00"
  cycle: [0, 2, 1, 3, 2, 0, 3, 1]
  teams:
    - {name: "A", color: "#0066FF"}
    - {name: "B", color: "#00CC00"}
    - {name: "C", color: "#FF0000"}
    - {name: "D", color: "#FFFD00"}

layout:
  left_margin: 72
  shift_band_height: 10
  date_header_height: 32
  header_gap: 4
  row_height: 26
  bar_height: 16
  separator_height: 12
  border_width: 3
  min_bar_width: 5
  emphasis_prefixes: ["F-"]

render:
  days: 21
  days_before: 4
  refresh_seconds: 60
  width: 1600
  height: 900
  scale: 1
  layers:
    weekends: true
    holidays: true
    today: true
    now_line: true
    shift_band: true
    hour_labels: false
    series_labels: true

night:
  auto: true
  night_hour: 22
  day_hour: 5

# Per-role colour overrides, e.g. row_even: "#EBF4FB".
themes:
  day: {}
  night: {}
`
