package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce sync.Once
	fontsErr  error
	regularTT *truetype.Font
	boldTT    *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularTT, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse regular font: %w", fontsErr)
			return
		}
		boldTT, fontsErr = truetype.Parse(gobold.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse bold font: %w", fontsErr)
		}
	})
	return fontsErr
}

// ggSurface draws with fogleman/gg. The context is scaled so callers work in
// wallboard pixels while the image is allocated in device pixels.
type ggSurface struct {
	dc    *gg.Context
	w, h  float64
	scale float64
	faces map[Font]font.Face
}

// NewGGSurface is the default SurfaceFactory.
func NewGGSurface(w, h int, scale float64) (Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("surface size %dx%d is empty", w, h)
	}
	if scale <= 0 {
		scale = 1
	}
	if err := loadFonts(); err != nil {
		return nil, err
	}
	dc := gg.NewContext(int(float64(w)*scale+0.5), int(float64(h)*scale+0.5))
	dc.Scale(scale, scale)
	return &ggSurface{dc: dc, w: float64(w), h: float64(h), scale: scale, faces: map[Font]font.Face{}}, nil
}

func (s *ggSurface) Size() (float64, float64) { return s.w, s.h }

func (s *ggSurface) Image() image.Image { return s.dc.Image() }

func (s *ggSurface) FillRect(x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	s.dc.SetColor(c)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
}

func (s *ggSurface) StrokeRect(x, y, w, h, lineWidth float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(lineWidth * s.scale)
	s.dc.SetDash()
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Stroke()
}

func (s *ggSurface) Line(x1, y1, x2, y2, lineWidth float64, dash []float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.SetLineWidth(lineWidth * s.scale)
	scaled := make([]float64, len(dash))
	for i, d := range dash {
		scaled[i] = d * s.scale
	}
	s.dc.SetDash(scaled...)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
	s.dc.SetDash()
}

func (s *ggSurface) FillPolygon(pts []Point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	s.dc.SetColor(c)
	s.dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		s.dc.LineTo(p.X, p.Y)
	}
	s.dc.ClosePath()
	s.dc.Fill()
}

func (s *ggSurface) RoundRect(x, y, w, h, r float64, fill, stroke color.Color, lineWidth float64) {
	if fill != nil {
		s.dc.SetColor(fill)
		s.dc.DrawRoundedRectangle(x, y, w, h, r)
		s.dc.Fill()
	}
	if stroke != nil && lineWidth > 0 {
		s.dc.SetColor(stroke)
		s.dc.SetLineWidth(lineWidth * s.scale)
		s.dc.SetDash()
		s.dc.DrawRoundedRectangle(x, y, w, h, r)
		s.dc.Stroke()
	}
}

func (s *ggSurface) face(f Font) font.Face {
	if face, ok := s.faces[f]; ok {
		return face
	}
	tt := regularTT
	if f.Bold {
		tt = boldTT
	}
	face := truetype.NewFace(tt, &truetype.Options{Size: f.Size, Hinting: font.HintingFull})
	s.faces[f] = face
	return face
}

func (s *ggSurface) Text(str string, x, y float64, f Font, a Align, b Baseline, c color.Color) {
	s.dc.SetFontFace(s.face(f))
	s.dc.SetColor(c)
	var ax, ay float64
	switch a {
	case AlignCenter:
		ax = 0.5
	case AlignRight:
		ax = 1
	}
	switch b {
	case BaselineTop:
		ay = 1
	case BaselineMiddle:
		ay = 0.5
	}
	s.dc.DrawStringAnchored(str, x, y, ax, ay)
}

func (s *ggSurface) MeasureText(str string, f Font) float64 {
	s.dc.SetFontFace(s.face(f))
	w, _ := s.dc.MeasureString(str)
	return w
}
