// Package effects holds the per-environment image treatments applied to a
// composed frame: the base fill with sensor noise, the night-vision and
// thermal post effects, and the scanline artifacts shared by every camera.
package effects

import (
	"math"

	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/scene"
)

// Effect post-processes a frame after the scene and motion layers.
type Effect interface {
	Apply(c raster.Canvas, rng scene.Rand)
}

// ForEnvironment returns the post effect for env. Outdoor and indoor have none.
func ForEnvironment(env scene.Environment) Effect {
	switch env {
	case scene.Night:
		return &NightVision{}
	case scene.Thermal:
		return &Thermal{}
	default:
		return None{}
	}
}

type None struct{}

func (None) Apply(raster.Canvas, scene.Rand) {}

// NightVision tints the frame green and occasionally flashes a bright bloom,
// like a light amplifier catching a headlight.
type NightVision struct{}

func (e *NightVision) Apply(c raster.Canvas, rng scene.Rand) {
	w, h := size(c)
	c.FillRect(raster.Rect{W: w, H: h}, raster.RGBA(0, 255, 0, 0.1))

	if rng.Float64() < 0.03 {
		x := rng.Float64() * w
		y := rng.Float64() * h
		radius := rng.Float64()*30 + 10
		c.FillCircle(x, y, radius, raster.RGBA(255, 255, 255, 0.3))
	}
}

// HeatSources is the number of radial blobs painted per thermal frame.
const HeatSources = 10

var heatStops = []raster.Stop{
	{Offset: 0, Color: raster.RGBA(255, 0, 0, 0.5)},
	{Offset: 0.5, Color: raster.RGBA(255, 255, 0, 0.3)},
	{Offset: 1, Color: raster.RGBA(0, 0, 255, 0.1)},
}

// Thermal scatters heat sources over the frame and darkens it slightly.
type Thermal struct{}

func (e *Thermal) Apply(c raster.Canvas, rng scene.Rand) {
	w, h := size(c)
	for i := 0; i < HeatSources; i++ {
		x := rng.Float64() * w
		y := rng.Float64() * h
		radius := rng.Float64()*40 + 20
		c.FillRadial(raster.RadialGradient{CX: x, CY: y, R: radius, Stops: heatStops})
	}
	c.FillRect(raster.Rect{W: w, H: h}, raster.RGBA(0, 0, 0, 0.2))
}

// Base paints the environment's ground colour and adds per-pixel sensor
// noise scaled by noise in [0,1]. Thermal frames get no noise.
func Base(c raster.Canvas, env scene.Environment, noise float64, rng scene.Rand) {
	w, h := size(c)

	fill := raster.Hex("#111")
	switch env {
	case scene.Night:
		fill = raster.Hex("#001a1a")
	case scene.Thermal:
		fill = raster.Hex("#000")
	}
	c.FillRect(raster.Rect{W: w, H: h}, fill)

	if env == scene.Thermal || noise <= 0 {
		return
	}
	amp := math.Min(noise, 1) * 255
	if env == scene.Night {
		c.AddNoise(func() (float64, float64, float64) {
			n := rng.Float64() * amp
			return 0.2 * n, n, 0.2 * n
		})
		return
	}
	c.AddNoise(func() (float64, float64, float64) {
		n := rng.Float64() * amp
		return n, n, n
	})
}

// Scanlines darkens every other row and, now and then, adds a faint bright
// band at a random height.
func Scanlines(c raster.Canvas, rng scene.Rand) {
	w, h := size(c)
	line := raster.WithAlpha(raster.Hex("#000"), 0.1)
	for y := 0.0; y < h; y += 2 {
		c.FillRect(raster.Rect{Y: y, W: w, H: 1}, line)
	}

	if rng.Float64() < 0.05 {
		y := rng.Float64() * h
		bh := rng.Float64()*5 + 1
		c.FillRect(raster.Rect{Y: y, W: w, H: bh}, raster.WithAlpha(raster.Hex("#fff"), 0.1))
	}
}

func size(c raster.Canvas) (float64, float64) {
	w, h := c.Size()
	return float64(w), float64(h)
}
