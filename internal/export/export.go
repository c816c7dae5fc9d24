// Package export turns painted wallboard surfaces into files: the raw PNG and
// a printable A4 landscape page with the mandatory footer.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"plantpulse/internal/render"
)

// A4 landscape in millimetres.
const (
	PageWidthMM    = 297.0
	PageHeightMM   = 210.0
	MarginMM       = 10.0
	FooterHeightMM = 26.0
	DefaultDPI     = 150.0
)

// PNG writes the latest image registered under id.
func PNG(w io.Writer, reg *render.Registry, id string) error {
	p, err := reg.Get(id)
	if err != nil {
		return err
	}
	if err := png.Encode(w, p.Image); err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return nil
}

// PageOptions controls the printable page.
type PageOptions struct {
	DPI       float64
	PrintedAt time.Time
	Location  *time.Location
}

// FooterLines are printed under the schedule on every page.
func FooterLines(printedAt time.Time) []string {
	return []string{
		"Printed by PlantPulse — valid only on the print date",
		"Print date: " + printedAt.Format("2006-01-02 15:04"),
		"Signature: __________________________",
		"Disclaimer: Consult the applicable internal procedure for correct use.",
	}
}

// FileName is the suggested name for a page printed at t.
func FileName(t time.Time) string {
	return "PlantPulse-Schedule-" + t.Format("2006-01-02") + ".png"
}

// Placement is where the schedule image lands on the page, in millimetres.
type Placement struct {
	X, Y, W, H float64
}

// Fit scales an image of w×h to the content area, preserving its aspect
// ratio, centred horizontally and pinned to the top margin.
func Fit(w, h int) Placement {
	cw := PageWidthMM - 2*MarginMM
	ch := PageHeightMM - 2*MarginMM - FooterHeightMM
	if w <= 0 || h <= 0 {
		return Placement{X: MarginMM, Y: MarginMM}
	}
	aspect := float64(w) / float64(h)
	var pw, ph float64
	if aspect > cw/ch {
		pw, ph = cw, cw/aspect
	} else {
		pw, ph = ch*aspect, ch
	}
	return Placement{X: MarginMM + (cw-pw)/2, Y: MarginMM, W: pw, H: ph}
}

// Page lays img out on an A4 landscape raster.
func Page(img image.Image, opts PageOptions) (image.Image, error) {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	printed := opts.PrintedAt
	if printed.IsZero() {
		printed = time.Now()
	}
	if opts.Location != nil {
		printed = printed.In(opts.Location)
	}
	px := func(mm float64) float64 { return mm / 25.4 * dpi }

	dc := gg.NewContext(int(px(PageWidthMM)+0.5), int(px(PageHeightMM)+0.5))
	dc.SetColor(color.White)
	dc.Clear()

	if img != nil {
		b := img.Bounds()
		pl := Fit(b.Dx(), b.Dy())
		if pl.W > 0 {
			dc.Push()
			dc.Translate(px(pl.X), px(pl.Y))
			dc.Scale(px(pl.W)/float64(b.Dx()), px(pl.H)/float64(b.Dy()))
			dc.DrawImage(img, -b.Min.X, -b.Min.Y)
			dc.Pop()
		}
	}

	footerY := PageHeightMM - MarginMM - FooterHeightMM
	dc.SetColor(color.RGBA{200, 200, 200, 255})
	dc.SetLineWidth(px(0.3))
	dc.DrawLine(px(MarginMM), px(footerY), px(PageWidthMM-MarginMM), px(footerY))
	dc.Stroke()

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse footer font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 8, DPI: dpi}))
	dc.SetColor(color.RGBA{100, 100, 100, 255})
	y := footerY + 4
	for _, line := range FooterLines(printed) {
		dc.DrawString(line, px(MarginMM), px(y))
		y += 5
	}
	return dc.Image(), nil
}

// WritePage renders the registered surface id as a page PNG.
func WritePage(w io.Writer, reg *render.Registry, id string, opts PageOptions) error {
	p, err := reg.Get(id)
	if err != nil {
		return err
	}
	page, err := Page(p.Image, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, page); err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return nil
}
