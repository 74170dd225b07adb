package renderer

import (
	"time"

	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/scene"
)

// NoSignal is the text painted over static when a camera is offline.
const NoSignal = "SIN SEÑAL"

// TimestampLayout renders as dd/mm/yyyy hh:mm:ss.
const TimestampLayout = "02/01/2006 15:04:05"

const backgroundAlpha = 0.3

var (
	buildingColor = raster.WithAlpha(raster.Hex("#555"), backgroundAlpha)
	windowColor   = raster.WithAlpha(raster.Hex("#888"), backgroundAlpha)
	roadColor     = raster.WithAlpha(raster.Hex("#333"), backgroundAlpha)
	markingColor  = raster.WithAlpha(raster.Hex("#aaa"), backgroundAlpha)
	trunkColor    = raster.WithAlpha(raster.Hex("#543"), backgroundAlpha)
	canopyColor   = raster.WithAlpha(raster.Hex("#363"), backgroundAlpha)
	wallColor     = raster.WithAlpha(raster.Hex("#eee"), backgroundAlpha)
	deskColor     = raster.WithAlpha(raster.Hex("#964"), backgroundAlpha)
	chairColor    = raster.WithAlpha(raster.Hex("#446"), backgroundAlpha)

	silhouette      = raster.RGBA(200, 200, 200, 0.4)
	faintSilhouette = raster.RGBA(200, 200, 200, 0.3)
	personBox       = raster.RGBA(0, 255, 0, 0.5)
	vehicleBox      = raster.RGBA(255, 0, 0, 0.5)
	animalBox       = raster.RGBA(0, 0, 255, 0.5)
)

func drawNoSignal(c raster.Canvas, rng scene.Rand) {
	w, h := c.Size()
	c.Static(func() uint8 {
		return uint8(rng.Float64() * 255)
	})
	c.Text(NoSignal, float64(w)/2, float64(h)/2, raster.TextStyle{
		Face:     raster.Bold,
		Size:     32,
		Color:    raster.Hex("#f00"),
		Align:    raster.AlignCenter,
		Baseline: raster.BaselineMiddle,
	})
}

func drawBackground(c raster.Canvas, elements []scene.Element) {
	for _, e := range elements {
		switch e.Kind {
		case scene.Building:
			c.FillRect(raster.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}, buildingColor)
			const size, gap = 15, 25
			for x := e.X + 20; x < e.X+e.W-20; x += gap {
				for y := e.Y + 20; y < e.Y+e.H-20; y += gap {
					c.FillRect(raster.Rect{X: x, Y: y, W: size, H: size}, windowColor)
				}
			}
		case scene.Road:
			c.FillRect(raster.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}, roadColor)
			const dash, gap = 30, 40
			for x := e.X; x < e.X+e.W; x += dash + gap {
				c.FillRect(raster.Rect{X: x, Y: e.Y + e.H/2 - 2, W: dash, H: 4}, markingColor)
			}
		case scene.Tree:
			c.FillRect(raster.Rect{X: e.X + e.W/2 - 5, Y: e.Y + e.H/2, W: 10, H: e.H / 2}, trunkColor)
			c.FillCircle(e.X+e.W/2, e.Y+e.H/3, e.W/2, canopyColor)
		case scene.Wall:
			c.FillRect(raster.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}, wallColor)
		case scene.Desk:
			c.FillRect(raster.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}, deskColor)
		case scene.Chair:
			c.FillRect(raster.Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}, chairColor)
		}
	}
}

// drawObjects advances every object one step and paints it with its
// detection box.
func drawObjects(c raster.Canvas, s *scene.Scene) {
	for _, o := range s.Objects {
		o.Step(s.Width, s.Height)

		x, y, sz := o.X, o.Y, o.Size
		switch o.Kind {
		case scene.Person:
			c.FillCircle(x, y-sz/2, sz/4, silhouette)
			c.FillEllipse(x, y, sz/3, sz/2, silhouette)
			c.StrokeRect(raster.Rect{X: x - sz/2, Y: y - sz, W: sz, H: sz * 1.5}, personBox)
		case scene.Vehicle:
			c.FillRect(raster.Rect{X: x - sz, Y: y - sz/2, W: sz * 2, H: sz}, silhouette)
			c.StrokeRect(raster.Rect{X: x - sz - 5, Y: y - sz/2 - 5, W: sz*2 + 10, H: sz + 10}, vehicleBox)
		default:
			c.FillEllipse(x, y, sz/2, sz/3, faintSilhouette)
			c.StrokeRect(raster.Rect{X: x - sz/2, Y: y - sz/3, W: sz, H: sz / 1.5}, animalBox)
		}
	}
}

func drawTimestamp(c raster.Canvas, now time.Time) {
	w, h := c.Size()
	c.Text(now.Format(TimestampLayout), float64(w)-10, float64(h)-10, raster.TextStyle{
		Face:         raster.Mono,
		Size:         16,
		Color:        raster.Hex("#fff"),
		Align:        raster.AlignRight,
		Baseline:     raster.BaselineBottom,
		Outline:      raster.Hex("#000"),
		OutlineWidth: 2,
	})
}

func drawCaption(c raster.Canvas, name string) {
	w, h := c.Size()
	c.FillRect(raster.Rect{Y: float64(h) - 24, W: float64(w), H: 24}, raster.RGBA(0, 0, 0, 0.5))
	c.Text(name, 8, float64(h)-8, raster.TextStyle{
		Face:     raster.Sans,
		Size:     12,
		Color:    raster.Hex("#fff"),
		Align:    raster.AlignLeft,
		Baseline: raster.BaselineBottom,
	})
}
