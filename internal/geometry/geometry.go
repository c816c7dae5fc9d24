// Package geometry maps calendar time onto the horizontal pixel axis of the
// wallboard. Every position is derived from whole hours since the viewport
// start; a viewport with no drawable width or no days maps everything
// off-screen.
package geometry

import (
	"math"
	"time"
)

// DefaultMinBarWidth keeps left-clipped bars visible.
const DefaultMinBarWidth = 5.0

// BarPosition is the horizontal extent of one stage bar.
type BarPosition struct {
	Left      float64 `json:"left"`
	Width     float64 `json:"width"`
	Clipped   bool    `json:"clipped"`
	OffScreen bool    `json:"off_screen"`
}

var offScreen = BarPosition{Left: -1, Width: 0, Clipped: true, OffScreen: true}

// HoursBetween is the number of whole hours from a to b, truncated toward zero.
func HoursBetween(a, b time.Time) float64 {
	return float64(int64(b.Sub(a) / time.Hour))
}

// PixelsPerDay is (width-leftMargin)/days, or 0 when the viewport is empty.
func PixelsPerDay(width, leftMargin float64, days int) float64 {
	if days <= 0 || width-leftMargin <= 0 {
		return 0
	}
	return (width - leftMargin) / float64(days)
}

// PixelsPerHour is PixelsPerDay/24.
func PixelsPerHour(width, leftMargin float64, days int) float64 {
	return PixelsPerDay(width, leftMargin, days) / 24
}

// DateToX maps date to an x coordinate without clipping.
func DateToX(viewStart, date time.Time, width, leftMargin float64, days int) float64 {
	return leftMargin + HoursBetween(viewStart, date)*PixelsPerHour(width, leftMargin, days)
}

// NowLineX is DateToX for the current instant. Callers must bounds-check.
func NowLineX(viewStart, now time.Time, width, leftMargin float64, days int) float64 {
	return DateToX(viewStart, now, width, leftMargin, days)
}

// StageBarPosition computes the clipped bar for [start, end) with the default
// minimum width.
func StageBarPosition(viewStart, start, end time.Time, width, leftMargin float64, days int) BarPosition {
	return Mapper{ViewStart: viewStart, Days: days, Width: width, LeftMargin: leftMargin, MinBarWidth: DefaultMinBarWidth}.Bar(start, end)
}

// Mapper bundles a viewport with the raster width it is drawn at.
type Mapper struct {
	ViewStart   time.Time
	Days        int
	Width       float64
	LeftMargin  float64
	MinBarWidth float64
}

// Empty reports whether nothing can be drawn in the viewport.
func (m Mapper) Empty() bool {
	return m.Days <= 0 || m.Width-m.LeftMargin <= 0
}

func (m Mapper) PixelsPerDay() float64 {
	return PixelsPerDay(m.Width, m.LeftMargin, m.Days)
}

func (m Mapper) PixelsPerHour() float64 {
	return m.PixelsPerDay() / 24
}

// X maps t to its unclipped x coordinate.
func (m Mapper) X(t time.Time) float64 {
	return DateToX(m.ViewStart, t, m.Width, m.LeftMargin, m.Days)
}

// DayX is the x coordinate of the start of visible day d.
func (m Mapper) DayX(d int) float64 {
	return m.LeftMargin + float64(d)*m.PixelsPerDay()
}

// Visible reports whether x lies in [LeftMargin, Width].
func (m Mapper) Visible(x float64) bool {
	return !m.Empty() && x >= m.LeftMargin && x <= m.Width
}

// End is the instant at the right edge of the viewport.
func (m Mapper) End() time.Time {
	return m.ViewStart.Add(time.Duration(m.Days) * 24 * time.Hour)
}

// Bar computes the bar for [start, end).
//
// A bar whose right edge is left of the margin or whose left edge is right of
// the canvas is off-screen. A bar starting before the margin is pinned to it,
// shortened by the overflow and kept at least MinBarWidth wide. A bar running
// past the canvas edge is cut at the edge. End before start yields a
// zero-width bar at start.
func (m Mapper) Bar(start, end time.Time) BarPosition {
	if m.Empty() {
		return offScreen
	}
	pph := m.PixelsPerHour()
	left := m.LeftMargin + HoursBetween(m.ViewStart, start)*pph
	width := math.Max(0, HoursBetween(start, end)*pph)

	if left+width < m.LeftMargin || left > m.Width {
		return offScreen
	}

	var pos BarPosition
	leftClipped := false
	if left < m.LeftMargin {
		width -= m.LeftMargin - left
		left = m.LeftMargin
		pos.Clipped = true
		leftClipped = true
		width = math.Max(width, m.MinBarWidth)
	}
	if left+width > m.Width {
		width = m.Width - left
		pos.Clipped = true
		if leftClipped {
			width = math.Max(width, m.MinBarWidth)
		}
	}
	pos.Left = left
	pos.Width = math.Max(0, width)
	return pos
}

// Span maps [start, end) to an unclipped x and width, used for bands and
// tints that the caller clamps itself.
func (m Mapper) Span(start, end time.Time) (x, w float64) {
	x = m.X(start)
	return x, math.Max(0, m.X(end)-x)
}
