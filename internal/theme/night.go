package theme

import (
	"sync"
	"time"
)

const (
	DefaultNightHour = 22
	DefaultDayHour   = 5
)

// NightSwitch decides between the day and night theme. It follows the clock
// at the boundary hours and otherwise keeps whatever mode is current, so a
// manual toggle holds until the next boundary is crossed.
type NightSwitch struct {
	NightHour int
	DayHour   int
	// Location is the zone the boundary hours are read in.
	Location *time.Location
	// OnChange, when set, receives the mode after every toggle and every
	// boundary crossing so the preference can be persisted.
	OnChange func(night bool)

	mu       sync.Mutex
	night    bool
	manual   bool
	lastHour int
}

// NewNightSwitch starts from the stored preference if there is one, else from
// the hour of now. Later checks read hours in the zone of now.
func NewNightSwitch(now time.Time, stored *bool, nightHour, dayHour int) *NightSwitch {
	s := &NightSwitch{NightHour: nightHour, DayHour: dayHour, Location: now.Location(), lastHour: now.Hour()}
	if stored != nil {
		s.night = *stored
	} else {
		s.night = s.IsNightHour(now.Hour())
	}
	return s
}

// IsNightHour reports whether hour is inside [NightHour, DayHour).
func (s *NightSwitch) IsNightHour(hour int) bool {
	return hour >= s.NightHour || hour < s.DayHour
}

func (s *NightSwitch) hour(t time.Time) int {
	if s.Location != nil {
		t = t.In(s.Location)
	}
	return t.Hour()
}

func (s *NightSwitch) isBoundary(hour int) bool {
	return hour == s.NightHour || hour == s.DayHour
}

func (s *NightSwitch) Night() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.night
}

// Manual reports whether a toggle is overriding the clock.
func (s *NightSwitch) Manual() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manual
}

// Toggle flips the mode and returns the new one.
func (s *NightSwitch) Toggle() bool {
	s.mu.Lock()
	s.night = !s.night
	s.manual = true
	night := s.night
	s.mu.Unlock()
	s.notify(night)
	return night
}

// Set adopts a mode chosen elsewhere, such as a stored preference. A different
// mode holds as a manual override until the next boundary. Set does not notify.
func (s *NightSwitch) Set(night bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.night != night {
		s.night = night
		s.manual = true
	}
}

// Check applies the clock at now. Entering a boundary hour forces the window's
// mode, releases any manual override and notifies even when the mode stays.
// changed reports a mode flip.
func (s *NightSwitch) Check(now time.Time) (night, changed bool) {
	hour := s.hour(now)
	s.mu.Lock()
	crossed := s.isBoundary(hour) && hour != s.lastHour
	if crossed {
		want := s.IsNightHour(hour)
		s.manual = false
		changed = want != s.night
		s.night = want
	}
	s.lastHour = hour
	night = s.night
	s.mu.Unlock()
	if crossed {
		s.notify(night)
	}
	return night, changed
}

func (s *NightSwitch) notify(night bool) {
	if s.OnChange != nil {
		s.OnChange(night)
	}
}
