package geometry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	margin = 72.0
	width  = 72.0 + 21*48 // 48 px per day, 2 px per hour
)

var day = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func h(n int) time.Duration { return time.Duration(n) * time.Hour }

func TestScale(t *testing.T) {
	assert.Equal(t, 48.0, PixelsPerDay(width, margin, 21))
	assert.Equal(t, 2.0, PixelsPerHour(width, margin, 21))
	assert.Zero(t, PixelsPerDay(width, margin, 0))
	assert.Zero(t, PixelsPerDay(50, margin, 7))
}

func TestDateToX(t *testing.T) {
	assert.Equal(t, margin, DateToX(day, day, width, margin, 21))
	assert.Equal(t, margin+48, DateToX(day, day.Add(h(24)), width, margin, 21))
	assert.Equal(t, margin-4, DateToX(day, day.Add(-h(2)), width, margin, 21))
	// Partial hours are truncated toward zero.
	assert.Equal(t, margin+2, NowLineX(day, day.Add(h(1)+59*time.Minute), width, margin, 21))
	assert.Equal(t, margin-2, NowLineX(day, day.Add(-h(1)-30*time.Minute), width, margin, 21))
}

func TestBarRoundTrip(t *testing.T) {
	start := day.Add(h(50))
	end := day.Add(h(170))
	p := StageBarPosition(day, start, end, width, margin, 21)
	assert.False(t, p.Clipped)
	assert.False(t, p.OffScreen)
	assert.Equal(t, DateToX(day, start, width, margin, 21), p.Left)
	assert.Equal(t, DateToX(day, end, width, margin, 21)-p.Left, p.Width)
}

func TestBarStartingBeforeView(t *testing.T) {
	p := StageBarPosition(day, day.Add(-h(48)), day.Add(h(24)), width, margin, 21)
	assert.True(t, p.Clipped)
	assert.False(t, p.OffScreen)
	assert.Equal(t, margin, p.Left)
	assert.Equal(t, 48.0, p.Width)
}

func TestBarLeftClipKeepsMinimumWidth(t *testing.T) {
	p := StageBarPosition(day, day.Add(-h(10)), day.Add(h(1)), width, margin, 21)
	require.False(t, p.OffScreen)
	assert.True(t, p.Clipped)
	assert.Equal(t, margin, p.Left)
	assert.Equal(t, DefaultMinBarWidth, p.Width)
}

func TestBarEntirelyBeforeView(t *testing.T) {
	p := StageBarPosition(day, day.Add(-h(72)), day.Add(-h(24)), width, margin, 21)
	assert.Equal(t, BarPosition{Left: -1, Width: 0, Clipped: true, OffScreen: true}, p)
}

func TestBarEntirelyAfterView(t *testing.T) {
	p := StageBarPosition(day, day.Add(h(22*24)), day.Add(h(23*24)), width, margin, 21)
	assert.True(t, p.OffScreen)
	assert.Equal(t, -1.0, p.Left)
}

func TestBarRightClip(t *testing.T) {
	p := StageBarPosition(day, day.Add(h(20*24)), day.Add(h(25*24)), width, margin, 21)
	assert.False(t, p.OffScreen)
	assert.True(t, p.Clipped)
	assert.Equal(t, width, p.Left+p.Width)
}

func TestBarClippedBothSides(t *testing.T) {
	// 10 px of drawable width and a bar spanning far beyond both edges.
	m := Mapper{ViewStart: day, Days: 5, Width: margin + 3, LeftMargin: margin, MinBarWidth: DefaultMinBarWidth}
	p := m.Bar(day.Add(-h(48)), day.Add(h(240)))
	assert.True(t, p.Clipped)
	assert.False(t, p.OffScreen)
	assert.Equal(t, margin, p.Left)
	assert.Equal(t, DefaultMinBarWidth, p.Width)
}

func TestBarDegenerateInterval(t *testing.T) {
	p := StageBarPosition(day, day.Add(h(30)), day.Add(h(20)), width, margin, 21)
	assert.False(t, p.OffScreen)
	assert.Equal(t, margin+60, p.Left)
	assert.Zero(t, p.Width)

	p = StageBarPosition(day, day.Add(h(30)), day.Add(h(30)), width, margin, 21)
	assert.Zero(t, p.Width)
	assert.GreaterOrEqual(t, p.Width, 0.0)
}

func TestZeroViewport(t *testing.T) {
	for _, tc := range []struct {
		name  string
		width float64
		days  int
	}{
		{"no days", width, 0},
		{"negative days", width, -2},
		{"width equals margin", margin, 7},
		{"zero width", 0, 7},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := StageBarPosition(day, day, day.Add(h(5)), tc.width, margin, tc.days)
			assert.True(t, p.OffScreen)
			m := Mapper{ViewStart: day, Days: tc.days, Width: tc.width, LeftMargin: margin}
			assert.True(t, m.Empty())
			assert.False(t, m.Visible(margin))
		})
	}
}

func TestMapperHelpers(t *testing.T) {
	m := Mapper{ViewStart: day, Days: 21, Width: width, LeftMargin: margin, MinBarWidth: DefaultMinBarWidth}
	assert.Equal(t, margin+96, m.DayX(2))
	assert.Equal(t, day.Add(h(21*24)), m.End())
	assert.True(t, m.Visible(margin))
	assert.True(t, m.Visible(width))
	assert.False(t, m.Visible(width+0.5))
	x, w := m.Span(day.Add(-h(6)), day.Add(h(6)))
	assert.Equal(t, margin-12, x)
	assert.Equal(t, 24.0, w)
}
