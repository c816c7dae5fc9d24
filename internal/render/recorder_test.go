package render

import (
	"image"
	"image/color"
)

type op struct {
	Layer string
	Kind  string
	X, Y  float64
	W, H  float64
	Text  string
	Font  Font
	Color color.Color
}

// recorder captures draw calls instead of rasterising them.
type recorder struct {
	w, h   float64
	layer  string
	layers []string
	ops    []op
}

func newRecorder(w, h int, _ float64) (Surface, error) {
	return &recorder{w: float64(w), h: float64(h)}, nil
}

func (r *recorder) BeginLayer(name string) {
	r.layer = name
	r.layers = append(r.layers, name)
}

func (r *recorder) add(o op) {
	o.Layer = r.layer
	r.ops = append(r.ops, o)
}

func (r *recorder) Size() (float64, float64) { return r.w, r.h }

func (r *recorder) Image() image.Image {
	return image.NewRGBA(image.Rect(0, 0, int(r.w), int(r.h)))
}

func (r *recorder) FillRect(x, y, w, h float64, c color.Color) {
	r.add(op{Kind: "fill", X: x, Y: y, W: w, H: h, Color: c})
}

func (r *recorder) StrokeRect(x, y, w, h, _ float64, c color.Color) {
	r.add(op{Kind: "stroke", X: x, Y: y, W: w, H: h, Color: c})
}

func (r *recorder) Line(x1, y1, x2, y2, _ float64, dash []float64, c color.Color) {
	kind := "line"
	if dash != nil {
		kind = "dash"
	}
	r.add(op{Kind: kind, X: x1, Y: y1, W: x2 - x1, H: y2 - y1, Color: c})
}

func (r *recorder) FillPolygon(pts []Point, c color.Color) {
	r.add(op{Kind: "polygon", X: pts[0].X, Y: pts[0].Y, Color: c})
}

func (r *recorder) RoundRect(x, y, w, h, _ float64, fill, _ color.Color, _ float64) {
	r.add(op{Kind: "round", X: x, Y: y, W: w, H: h, Color: fill})
}

func (r *recorder) Text(s string, x, y float64, f Font, _ Align, _ Baseline, c color.Color) {
	r.add(op{Kind: "text", X: x, Y: y, Text: s, Font: f, Color: c})
}

func (r *recorder) MeasureText(s string, _ Font) float64 {
	return float64(5 * len(s))
}

func (r *recorder) in(layer string) []op {
	var out []op
	for _, o := range r.ops {
		if o.Layer == layer {
			out = append(out, o)
		}
	}
	return out
}
