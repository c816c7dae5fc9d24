package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantpulse/internal/render"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	return img
}

func TestPNGFromRegistry(t *testing.T) {
	reg := render.NewRegistry()
	reg.Put(render.Painted{ID: "wallboard", Image: solid(40, 20)})

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, reg, "wallboard"))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	err = PNG(&buf, reg, "inoculum")
	assert.ErrorIs(t, err, render.ErrUnknownSurface)
}

func TestFit(t *testing.T) {
	// Wide image: fit to the 277 mm content width.
	p := Fit(2770, 500)
	assert.InDelta(t, 277, p.W, 1e-9)
	assert.InDelta(t, 50, p.H, 1e-9)
	assert.InDelta(t, 10, p.X, 1e-9)
	assert.Equal(t, 10.0, p.Y)

	// Tall image: fit to the 164 mm content height and centre.
	p = Fit(100, 200)
	assert.InDelta(t, 164, p.H, 1e-9)
	assert.InDelta(t, 82, p.W, 1e-9)
	assert.InDelta(t, 10+(277-82)/2.0, p.X, 1e-9)

	assert.Zero(t, Fit(0, 10).W)
}

func TestFooterLines(t *testing.T) {
	at := time.Date(2026, time.October, 19, 14, 5, 0, 0, time.UTC)
	lines := FooterLines(at)
	require.Len(t, lines, 4)
	assert.Equal(t, "Print date: 2026-10-19 14:05", lines[1])
	assert.Contains(t, lines[0], "valid only on the print date")
	assert.Equal(t, "PlantPulse-Schedule-2026-10-19.png", FileName(at))
}

func TestPageSizeAndPlacement(t *testing.T) {
	page, err := Page(solid(554, 100), PageOptions{DPI: 25.4, PrintedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)})
	require.NoError(t, err)
	// One pixel per millimetre.
	assert.Equal(t, image.Rect(0, 0, 297, 210), page.Bounds())

	r, g, b, _ := page.At(148, 20).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(0), g>>8)
	assert.Equal(t, uint32(255), b>>8, "schedule image is drawn in the content area")

	r, _, _, _ = page.At(2, 2).RGBA()
	assert.Equal(t, uint32(255), r>>8, "margin stays white")
}

func TestWritePage(t *testing.T) {
	reg := render.NewRegistry()
	reg.Put(render.Painted{ID: "inoculum", Image: solid(30, 30)})
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, reg, "inoculum", PageOptions{}))
	cfg, err := png.DecodeConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1754, cfg.Width)
	assert.Equal(t, 1240, cfg.Height)
}
