package render

import (
	"strconv"

	"plantpulse/internal/calendar"
	"plantpulse/internal/layout"
	"plantpulse/internal/theme"
)

// Layer names in paint order, back to front.
const (
	LayerBackground = "background"
	LayerRows       = "rows"
	LayerCalendar   = "calendar"
	LayerBars       = "bars"
	LayerNowLine    = "now_line"
	LayerLabels     = "labels"
	LayerShiftBand  = "shift_band"
	LayerHeader     = "date_header"
)

var (
	labelFont      = Font{Size: 11}
	labelFontBold  = Font{Size: 11, Bold: true}
	seriesFont     = Font{Size: 9, Bold: true}
	seriesMeasure  = Font{Size: 9}
	hourFont       = Font{Size: 7}
	nowDash        = []float64{4, 3}
	seriesMinWidth = 20.0
	hourMinWidth   = 60.0
)

// Layers returns the layer names that Draw emits with the current options.
func (p *Painter) Layers() []string {
	out := []string{LayerBackground, LayerRows, LayerCalendar, LayerBars}
	if p.Options.NowLine {
		out = append(out, LayerNowLine)
	}
	out = append(out, LayerLabels)
	if p.Options.ShiftBand {
		out = append(out, LayerShiftBand)
	}
	return append(out, LayerHeader)
}

// Draw paints sc onto c with th. Every layer is a full pass; nothing is
// incremental.
func (p *Painter) Draw(c Canvas, sc Scene, th theme.Theme) {
	mark := func(string) {}
	if lm, ok := c.(layerMarker); ok {
		mark = lm.BeginLayer
	}
	mark(LayerBackground)
	c.FillRect(0, 0, sc.Width, sc.Height, th.Color(theme.Background))
	mark(LayerRows)
	p.drawRows(c, sc, th)
	mark(LayerCalendar)
	p.drawCalendar(c, sc, th)
	mark(LayerBars)
	p.drawBars(c, sc, th)
	if p.Options.NowLine {
		mark(LayerNowLine)
		p.drawNowLine(c, sc, th)
	}
	mark(LayerLabels)
	p.drawLabels(c, sc, th)
	if p.Options.ShiftBand {
		mark(LayerShiftBand)
		p.drawShiftBand(c, sc, th)
	}
	mark(LayerHeader)
	p.drawHeader(c, sc, th)
}

func (p *Painter) drawRows(c Canvas, sc Scene, th theme.Theme) {
	m := p.Metrics
	n := 0
	for _, r := range sc.Rows {
		if r.Kind == layout.KindSeparator {
			c.FillRect(0, r.Y, sc.Width, m.SeparatorHeight, th.Color(theme.Separator))
			continue
		}
		role := theme.RowOdd
		if n%2 == 0 {
			role = theme.RowEven
		}
		c.FillRect(0, r.Y, sc.Width, m.RowHeight, th.Color(role))
		n++
	}
}

func (p *Painter) drawCalendar(c Canvas, sc Scene, th theme.Theme) {
	top := p.Metrics.TopMargin()
	h := sc.Height - top
	o := p.Options
	for _, d := range sc.Days {
		// Weekend tint keys on the weekday, independent of the holiday toggle.
		switch {
		case d.Type == calendar.Holiday && o.Holidays, calendar.IsSunday(d.Date) && o.Weekends:
			c.FillRect(d.X, top, d.Width, h, th.Color(theme.Holiday))
		case calendar.IsSaturday(d.Date) && o.Weekends:
			c.FillRect(d.X, top, d.Width, h, th.Color(theme.Weekend))
		}
		if d.Today && o.Today {
			c.FillRect(d.X, top, d.Width, h, th.Color(theme.Today))
		}
		c.Line(d.X, top, d.X, sc.Height, 0.5, nil, th.Color(theme.Grid))
	}
}

func (p *Painter) drawBars(c Canvas, sc Scene, th theme.Theme) {
	m := p.Metrics
	for _, b := range sc.Bars {
		x, w := b.Pos.Left, b.Pos.Width
		fill := th.Color(theme.BarPast)
		if b.Future {
			fill = th.Color(theme.BarFuture)
		}
		c.FillRect(x, b.Y, w, m.BarHeight, fill)
		c.FillRect(x, b.Y+m.BarHeight-m.BorderWidth, w, m.BorderWidth, th.AccentColor(b.Series))
		c.StrokeRect(x, b.Y, w, m.BarHeight, 0.5, th.Color(theme.BarOutline))

		if p.Options.HourLabels && w >= hourMinWidth {
			loc := p.loc()
			mid := b.Y + (m.BarHeight-m.BorderWidth)/2
			if !b.Pos.Clipped || b.Pos.Left > m.LeftMargin {
				c.Text(strconv.Itoa(b.Start.In(loc).Hour()), x+2, mid, hourFont, AlignLeft, BaselineMiddle, th.Color(theme.HourText))
			}
			if x+w < sc.Width {
				c.Text(strconv.Itoa(b.End.In(loc).Hour()), x+w-2, mid, hourFont, AlignRight, BaselineMiddle, th.Color(theme.HourText))
			}
		}

		if p.Options.SeriesLabels && w > seriesMinWidth {
			label := strconv.Itoa(b.Series)
			lw := c.MeasureText(label, seriesMeasure) + 8
			lh := 13.0
			lx := x + (w-lw)/2
			ly := b.Y + (m.BarHeight-lh)/2
			c.RoundRect(lx, ly, lw, lh, 2, th.Color(theme.LabelBG), th.Color(theme.LabelBorder), 0.5)
			c.Text(label, lx+lw/2, ly+lh/2, seriesFont, AlignCenter, BaselineMiddle, th.Color(theme.LabelText))
		}
	}
}

func (p *Painter) drawNowLine(c Canvas, sc Scene, th theme.Theme) {
	if !sc.NowVisible {
		return
	}
	top := p.Metrics.TopMargin()
	x := sc.NowX
	col := th.Color(theme.NowLine)
	c.Line(x, top, x, sc.Height, 1.5, nowDash, col)
	c.FillPolygon([]Point{{x - 4, top}, {x + 4, top}, {x, top + 6}}, col)
}

func (p *Painter) drawLabels(c Canvas, sc Scene, th theme.Theme) {
	m := p.Metrics
	top := m.TopMargin()
	c.FillRect(0, top, m.LeftMargin, sc.Height-top, th.Color(theme.HeaderBG))
	c.Line(m.LeftMargin, 0, m.LeftMargin, sc.Height, 1, nil, th.Color(theme.Grid))
	for _, r := range sc.Rows {
		if r.Kind != layout.KindEquipment {
			continue
		}
		f := labelFont
		if p.emphasized(r.EquipmentName) {
			f = labelFontBold
		}
		c.Text(r.EquipmentName, m.LeftMargin-8, r.Y+m.RowHeight/2, f, AlignRight, BaselineMiddle, th.Color(theme.EquipmentText))
	}
}

func (p *Painter) drawShiftBand(c Canvas, sc Scene, th theme.Theme) {
	m := p.Metrics
	c.FillRect(0, 0, sc.Width, m.ShiftBandHeight, th.Color(theme.HeaderBG))
	mp := sc.Mapper
	if mp.Empty() {
		return
	}
	for _, b := range sc.Bands {
		x, w := mp.Span(b.Start, b.End)
		if x+w < m.LeftMargin || x > sc.Width {
			continue
		}
		cx := max(x, m.LeftMargin)
		cw := min(x+w, sc.Width) - cx
		c.FillRect(cx, 1, cw, m.ShiftBandHeight-2, withAlpha(th.TeamColor(b.Team), th.ShiftAlpha))
	}
}

func (p *Painter) drawHeader(c Canvas, sc Scene, th theme.Theme) {
	m := p.Metrics
	top := m.TopMargin()
	c.FillRect(0, m.ShiftBandHeight, sc.Width, m.DateHeaderHeight, th.Color(theme.HeaderBG))
	c.Line(0, top-1, sc.Width, top-1, 1, nil, th.Color(theme.Grid))
	lastMonth := -1
	for _, d := range sc.Days {
		if month := int(d.Date.Month()); month != lastMonth {
			c.Text(d.Date.Month().String(), d.X+2, m.ShiftBandHeight+2, labelFontBold, AlignLeft, BaselineTop, th.Color(theme.EquipmentText))
			lastMonth = month
		}
		f := labelFont
		if d.Type == calendar.Holiday {
			f = labelFontBold
		}
		col := th.Color(theme.DateText)
		if d.Type != calendar.Workday || calendar.IsWeekend(d.Date) {
			col = th.Color(theme.DateWeekend)
		}
		c.Text(strconv.Itoa(d.Date.Day()), d.X+d.Width/2, top-3, f, AlignCenter, BaselineBottom, col)
		c.Line(d.X, m.ShiftBandHeight+16, d.X, top, 0.5, nil, th.Color(theme.Grid))
	}
}
