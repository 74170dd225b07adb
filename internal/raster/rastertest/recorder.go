// Package rastertest provides a Canvas that records draw calls instead of
// painting pixels.
package rastertest

import (
	"image/color"

	"github.com/ivlev/camsim/internal/raster"
)

// Op names, one per Canvas method.
const (
	OpFillRect    = "fill_rect"
	OpStrokeRect  = "stroke_rect"
	OpFillCircle  = "fill_circle"
	OpFillEllipse = "fill_ellipse"
	OpFillPill    = "fill_pill"
	OpFillRadial  = "fill_radial"
	OpAddNoise    = "add_noise"
	OpStatic      = "static"
	OpText        = "text"
	OpCopy        = "copy"
)

// Op is one recorded call.
type Op struct {
	Name     string
	Rect     raster.Rect
	Color    color.NRGBA
	Gradient raster.RadialGradient
	Text     string
	Style    raster.TextStyle
}

// Recorder implements raster.Canvas. Noise and static samplers are invoked
// once per pixel so random-source consumption matches a real surface.
type Recorder struct {
	W, H int
	Ops  []Op
}

func New(w, h int) *Recorder {
	return &Recorder{W: w, H: h}
}

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) FillRect(rect raster.Rect, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{Name: OpFillRect, Rect: rect, Color: c})
}

func (r *Recorder) StrokeRect(rect raster.Rect, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{Name: OpStrokeRect, Rect: rect, Color: c})
}

func (r *Recorder) FillCircle(cx, cy, radius float64, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{
		Name:  OpFillCircle,
		Rect:  raster.Rect{X: cx - radius, Y: cy - radius, W: 2 * radius, H: 2 * radius},
		Color: c,
	})
}

func (r *Recorder) FillEllipse(cx, cy, rx, ry float64, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{
		Name:  OpFillEllipse,
		Rect:  raster.Rect{X: cx - rx, Y: cy - ry, W: 2 * rx, H: 2 * ry},
		Color: c,
	})
}

func (r *Recorder) FillPill(rect raster.Rect, c color.NRGBA) {
	r.Ops = append(r.Ops, Op{Name: OpFillPill, Rect: rect, Color: c})
}

func (r *Recorder) FillRadial(g raster.RadialGradient) {
	r.Ops = append(r.Ops, Op{Name: OpFillRadial, Gradient: g})
}

func (r *Recorder) AddNoise(sample func() (float64, float64, float64)) {
	for i := 0; i < r.W*r.H; i++ {
		sample()
	}
	r.Ops = append(r.Ops, Op{Name: OpAddNoise})
}

func (r *Recorder) Static(sample func() uint8) {
	for i := 0; i < r.W*r.H; i++ {
		sample()
	}
	r.Ops = append(r.Ops, Op{Name: OpStatic})
}

func (r *Recorder) Text(s string, x, y float64, st raster.TextStyle) {
	r.Ops = append(r.Ops, Op{Name: OpText, Rect: raster.Rect{X: x, Y: y}, Text: s, Style: st})
}

func (r *Recorder) Copy(src raster.Canvas) {
	r.Ops = append(r.Ops, Op{Name: OpCopy})
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

// Named returns the recorded calls with the given name, in order.
func (r *Recorder) Named(name string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

// Names returns the sequence of call names.
func (r *Recorder) Names() []string {
	out := make([]string, len(r.Ops))
	for i, op := range r.Ops {
		out[i] = op.Name
	}
	return out
}

// Texts returns every string drawn.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Named(OpText) {
		out = append(out, op.Text)
	}
	return out
}
