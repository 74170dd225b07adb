// Package raster is the drawing surface the feed renderer paints on.
//
// Canvas mirrors the small subset of a 2D context the renderer needs: flat
// and translucent rectangles, circles, ellipses, radial gradients, per-pixel
// noise and text. Image implements it over *image.RGBA; rastertest records
// the calls for assertions.
package raster

import (
	"image/color"
	"math"
)

// Rect is a rectangle in surface coordinates. Fractional values are allowed.
type Rect struct {
	X, Y, W, H float64
}

// Stop is one colour stop of a gradient, Offset in [0,1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// RadialGradient fills a disc of radius R around (CX, CY), interpolating the
// stops from the centre outwards.
type RadialGradient struct {
	CX, CY, R float64
	Stops     []Stop
}

// At returns the gradient colour at distance d from the centre.
func (g RadialGradient) At(d float64) color.NRGBA {
	if len(g.Stops) == 0 {
		return color.NRGBA{}
	}
	t := 0.0
	if g.R > 0 {
		t = d / g.R
	}
	if t <= g.Stops[0].Offset {
		return g.Stops[0].Color
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t <= b.Offset {
			span := b.Offset - a.Offset
			if span <= 0 {
				return b.Color
			}
			return mix(a.Color, b.Color, (t-a.Offset)/span)
		}
	}
	return g.Stops[len(g.Stops)-1].Color
}

type Face int

const (
	Mono Face = iota
	Sans
	Bold
)

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type Baseline int

const (
	BaselineBottom Baseline = iota
	BaselineMiddle
)

// TextStyle describes how a string is placed and painted. An Outline with a
// non-zero alpha is stroked OutlineWidth pixels around the glyphs first.
type TextStyle struct {
	Face         Face
	Size         float64
	Color        color.NRGBA
	Align        Align
	Baseline     Baseline
	Outline      color.NRGBA
	OutlineWidth int
}

// Canvas is a drawable surface of fixed size.
type Canvas interface {
	Size() (w, h int)
	FillRect(r Rect, c color.NRGBA)
	StrokeRect(r Rect, c color.NRGBA)
	FillCircle(cx, cy, radius float64, c color.NRGBA)
	FillEllipse(cx, cy, rx, ry float64, c color.NRGBA)
	// FillPill fills r with semicircular ends.
	FillPill(r Rect, c color.NRGBA)
	FillRadial(g RadialGradient)
	// AddNoise adds sample() to the RGB channels of every pixel, clamping at 255.
	AddNoise(sample func() (r, g, b float64))
	// Static overwrites every pixel with an opaque grey level from sample().
	Static(sample func() uint8)
	Text(s string, x, y float64, st TextStyle)
	// Copy replaces the canvas content with src.
	Copy(src Canvas)
}

// RGBA builds a colour from 0-255 channels and an opacity in [0,1].
func RGBA(r, g, b uint8, alpha float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

// Hex parses #rgb or #rrggbb into an opaque colour. Malformed input yields black.
func Hex(s string) color.NRGBA {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	var v [6]uint8
	switch len(s) {
	case 3:
		for i := 0; i < 3; i++ {
			n := hexDigit(s[i])
			v[2*i], v[2*i+1] = n, n
		}
	case 6:
		for i := 0; i < 6; i++ {
			v[i] = hexDigit(s[i])
		}
	default:
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: v[0]<<4 | v[1], G: v[2]<<4 | v[3], B: v[4]<<4 | v[5], A: 255}
}

// WithAlpha returns c with its opacity multiplied by alpha.
func WithAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp01(alpha)))
	return c
}

func hexDigit(b byte) uint8 {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func mix(a, b color.NRGBA, t float64) color.NRGBA {
	l := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
