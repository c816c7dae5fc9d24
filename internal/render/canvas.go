package render

import (
	"image"
	"image/color"
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type Baseline int

const (
	BaselineTop Baseline = iota
	BaselineMiddle
	BaselineBottom
)

// Font selects one of the two faces the wallboard uses.
type Font struct {
	Size float64
	Bold bool
}

type Point struct {
	X, Y float64
}

// Canvas is the drawing surface the painter targets. Coordinates are in
// unscaled wallboard pixels.
type Canvas interface {
	Size() (w, h float64)
	FillRect(x, y, w, h float64, c color.Color)
	StrokeRect(x, y, w, h, lineWidth float64, c color.Color)
	// Line draws a segment; a nil dash draws it solid.
	Line(x1, y1, x2, y2, lineWidth float64, dash []float64, c color.Color)
	FillPolygon(pts []Point, c color.Color)
	RoundRect(x, y, w, h, r float64, fill, stroke color.Color, lineWidth float64)
	Text(s string, x, y float64, f Font, a Align, b Baseline, c color.Color)
	MeasureText(s string, f Font) float64
}

// Surface is a Canvas backed by a raster image.
type Surface interface {
	Canvas
	Image() image.Image
}

// SurfaceFactory allocates a surface of w×h wallboard pixels rendered at the
// given device pixel ratio.
type SurfaceFactory func(w, h int, scale float64) (Surface, error)

// layerMarker is implemented by canvases that want to observe layer
// boundaries.
type layerMarker interface {
	BeginLayer(name string)
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(float64(c.A)*alpha + 0.5)
	return c
}
