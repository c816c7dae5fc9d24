package theme

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemesCoverEveryRole(t *testing.T) {
	for _, th := range []Theme{Day(), Night()} {
		for _, r := range Roles() {
			assert.NotEqual(t, color.NRGBA{}, th.Color(r), "%s missing %s", th.Name, r)
		}
	}
	assert.Len(t, Roles(), int(numRoles))
}

func TestDayThemeValues(t *testing.T) {
	d := Day()
	assert.Equal(t, color.NRGBA{0xEB, 0xF4, 0xFB, 0xff}, d.Color(RowEven))
	assert.Equal(t, "#A00000A6", FormatHex(d.Color(NowLine)))
	assert.Equal(t, 0.7, d.ShiftAlpha)
}

func TestPaletteKeys(t *testing.T) {
	d := Day()
	assert.Equal(t, "#5CADFF", FormatHex(d.BatchBarColor(0)))
	assert.Equal(t, "#5CADFF", FormatHex(d.BatchBarColor(12)))
	assert.Equal(t, "#000000", FormatHex(d.BatchBarColor(-1)))
	assert.Equal(t, "#C30308", FormatHex(d.AccentColor(46)))
	assert.Equal(t, "#779E38", FormatHex(d.AccentColor(-1)))
	assert.Equal(t, "#00CC00", FormatHex(d.TeamColor(1)))
	assert.Equal(t, "#FFFD00", FormatHex(d.TeamColor(-1)))
	assert.NotEqual(t, d.AccentColor(3), Night().AccentColor(3))
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#0af")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x00, 0xaa, 0xff, 0xff}, c)
	c, err = ParseHex("11223380")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0x11, 0x22, 0x33, 0x80}, c)
	_, err = ParseHex("#12345")
	assert.Error(t, err)
	_, err = ParseHex("#GGGGGG")
	assert.Error(t, err)
}

func TestOverride(t *testing.T) {
	d, err := Day().Override(map[string]string{"row_even": "#000000", ShiftAlphaKey: "0.5"})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 0xff}, d.Color(RowEven))
	assert.Equal(t, 0.5, d.ShiftAlpha)
	assert.Equal(t, Day().Color(RowOdd), d.Color(RowOdd))

	_, err = Day().Override(map[string]string{"sky": "#fff"})
	assert.ErrorContains(t, err, "unknown colour role")
	_, err = Day().Override(map[string]string{ShiftAlphaKey: "2"})
	assert.Error(t, err)
	_, err = Day().Override(map[string]string{"grid": "blue"})
	assert.Error(t, err)
}

func TestHexListsRoles(t *testing.T) {
	h := Night().Hex()
	assert.Len(t, h, int(numRoles)+1)
	assert.Equal(t, "#030712", h["background"])
	r, err := ParseRole("date_weekend")
	require.NoError(t, err)
	assert.Equal(t, DateWeekend, r)
	assert.Equal(t, "date_weekend", r.String())
}

func TestSetPick(t *testing.T) {
	s := DefaultSet()
	assert.Equal(t, "day", s.Pick(false).Name)
	assert.Equal(t, "night", s.Pick(true).Name)
}

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 3, hour, min, 0, 0, time.UTC)
}

func TestNightSwitchInitialMode(t *testing.T) {
	assert.True(t, NewNightSwitch(at(23, 0), nil, 22, 5).Night())
	assert.True(t, NewNightSwitch(at(4, 59), nil, 22, 5).Night())
	assert.False(t, NewNightSwitch(at(5, 0), nil, 22, 5).Night())
	stored := false
	assert.False(t, NewNightSwitch(at(23, 0), &stored, 22, 5).Night())
}

func TestNightSwitchToggleHoldsUntilBoundary(t *testing.T) {
	var persisted []bool
	s := NewNightSwitch(at(20, 0), nil, DefaultNightHour, DefaultDayHour)
	s.OnChange = func(n bool) { persisted = append(persisted, n) }

	assert.True(t, s.Toggle())
	assert.True(t, s.Manual())
	night, changed := s.Check(at(21, 0))
	assert.True(t, night, "manual night holds during the day window")
	assert.False(t, changed)

	// Crossing into 22:00 forces night and releases the override.
	night, changed = s.Check(at(22, 0))
	assert.True(t, night)
	assert.False(t, changed)
	assert.False(t, s.Manual())

	assert.False(t, s.Toggle())
	night, _ = s.Check(at(22, 30))
	assert.False(t, night, "still inside the boundary hour, no re-trigger")
	night, _ = s.Check(at(3, 0))
	assert.False(t, night)
	night, changed = s.Check(at(5, 0))
	assert.False(t, night)
	assert.False(t, changed)
	night, changed = s.Check(at(22, 0))
	assert.True(t, night)
	assert.True(t, changed)

	// Every toggle and every boundary crossing is persisted.
	assert.Equal(t, []bool{true, true, false, false, true}, persisted)
}

func TestNightSwitchReadsHoursInItsZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	require.NoError(t, err)
	s := NewNightSwitch(time.Date(2026, time.March, 3, 21, 10, 0, 0, loc), nil, DefaultNightHour, DefaultDayHour)
	assert.False(t, s.Night())

	// 21:30 UTC is 22:30 in Ljubljana.
	night, changed := s.Check(time.Date(2026, time.March, 3, 21, 30, 0, 0, time.UTC))
	assert.True(t, night)
	assert.True(t, changed)

	// 03:30 UTC in July is 05:30 summer time.
	s = NewNightSwitch(time.Date(2026, time.July, 3, 4, 50, 0, 0, loc), nil, DefaultNightHour, DefaultDayHour)
	night, changed = s.Check(time.Date(2026, time.July, 3, 3, 30, 0, 0, time.UTC))
	assert.False(t, night)
	assert.True(t, changed)
}

func TestNightSwitchSetHoldsUntilBoundary(t *testing.T) {
	calls := 0
	s := NewNightSwitch(at(20, 0), nil, DefaultNightHour, DefaultDayHour)
	s.OnChange = func(bool) { calls++ }

	s.Set(false)
	assert.False(t, s.Manual(), "same mode is not an override")
	s.Set(true)
	assert.True(t, s.Night())
	assert.True(t, s.Manual())
	night, _ := s.Check(at(21, 0))
	assert.True(t, night)

	night, changed := s.Check(at(22, 0))
	assert.True(t, night)
	assert.False(t, changed)
	assert.False(t, s.Manual())
	assert.Equal(t, 1, calls)
}
