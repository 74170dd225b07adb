package renderer

import (
	"github.com/ivlev/camsim/internal/raster"
)

const (
	PausedLabel = "PAUSA"
	RecLabel    = "REC"
)

var recRed = raster.Hex("#ef4444")

// drawPaused dims the frame and centres a PAUSA pill on it.
func drawPaused(c raster.Canvas) {
	w, h := c.Size()
	fw, fh := float64(w), float64(h)
	c.FillRect(raster.Rect{W: fw, H: fh}, raster.RGBA(0, 0, 0, 0.4))

	const size, padX, pillH = 16, 16, 40
	pw := raster.MeasureText(PausedLabel, raster.Sans, size) + 2*padX
	c.FillPill(raster.Rect{X: (fw - pw) / 2, Y: (fh - pillH) / 2, W: pw, H: pillH}, raster.RGBA(0, 0, 0, 0.7))
	c.Text(PausedLabel, fw/2, fh/2, raster.TextStyle{
		Face:     raster.Sans,
		Size:     size,
		Color:    raster.Hex("#fff"),
		Align:    raster.AlignCenter,
		Baseline: raster.BaselineMiddle,
	})
}

// drawRec paints the recording badge in the top-left corner: a red dot at
// the given opacity followed by a boxed label.
func drawRec(c raster.Canvas, alpha float64) {
	const (
		inset  = 8.0
		rowH   = 16.0
		dot    = 8.0
		gap    = 4.0
		size   = 12.0
		padX   = 4.0
		middle = inset + rowH/2
	)
	c.FillCircle(inset+dot/2, middle, dot/2, raster.WithAlpha(recRed, alpha))

	lx := inset + dot + gap
	lw := raster.MeasureText(RecLabel, raster.Sans, size) + 2*padX
	c.FillRect(raster.Rect{X: lx, Y: inset, W: lw, H: rowH}, raster.RGBA(0, 0, 0, 0.5))
	c.Text(RecLabel, lx+padX, middle, raster.TextStyle{
		Face:     raster.Sans,
		Size:     size,
		Color:    raster.Hex("#fff"),
		Align:    raster.AlignLeft,
		Baseline: raster.BaselineMiddle,
	})
}
