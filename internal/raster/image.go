package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Image is a Canvas backed by an *image.RGBA.
type Image struct {
	img *image.RGBA
	ras vector.Rasterizer
}

// NewImage allocates a w×h surface.
func NewImage(w, h int) *Image {
	return Wrap(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// Wrap draws directly into img.
func Wrap(img *image.RGBA) *Image {
	return &Image{img: img}
}

func (m *Image) RGBA() *image.RGBA { return m.img }

func (m *Image) Size() (int, int) {
	b := m.img.Bounds()
	return b.Dx(), b.Dy()
}

func (m *Image) FillRect(r Rect, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	rect := image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	).Intersect(m.img.Bounds())
	if rect.Empty() {
		return
	}
	op := draw.Over
	if c.A == 255 {
		op = draw.Src
	}
	draw.Draw(m.img, rect, image.NewUniform(c), image.Point{}, op)
}

// StrokeRect draws a 1px outline inside r without blending the corners twice.
func (m *Image) StrokeRect(r Rect, c color.NRGBA) {
	x, y := math.Round(r.X), math.Round(r.Y)
	w, h := math.Round(r.W), math.Round(r.H)
	if w <= 0 || h <= 0 {
		return
	}
	m.FillRect(Rect{X: x, Y: y, W: w, H: 1}, c)
	if h > 1 {
		m.FillRect(Rect{X: x, Y: y + h - 1, W: w, H: 1}, c)
	}
	if h > 2 {
		m.FillRect(Rect{X: x, Y: y + 1, W: 1, H: h - 2}, c)
		if w > 1 {
			m.FillRect(Rect{X: x + w - 1, Y: y + 1, W: 1, H: h - 2}, c)
		}
	}
}

func (m *Image) FillCircle(cx, cy, radius float64, c color.NRGBA) {
	m.FillEllipse(cx, cy, radius, radius, c)
}

func (m *Image) FillEllipse(cx, cy, rx, ry float64, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	m.fillEllipse(cx, cy, rx, ry, image.NewUniform(c))
}

func (m *Image) FillRadial(g RadialGradient) {
	m.fillEllipse(g.CX, g.CY, g.R, g.R, radialSource{g})
}

func (m *Image) AddNoise(sample func() (r, g, b float64)) {
	m.eachPixel(func(p []uint8) {
		dr, dg, db := sample()
		p[0] = addClamped(p[0], dr)
		p[1] = addClamped(p[1], dg)
		p[2] = addClamped(p[2], db)
	})
}

func (m *Image) Static(sample func() uint8) {
	m.eachPixel(func(p []uint8) {
		v := sample()
		p[0], p[1], p[2], p[3] = v, v, v, 255
	})
}

func (m *Image) Copy(src Canvas) {
	s, ok := src.(*Image)
	if !ok || s == m {
		return
	}
	draw.Draw(m.img, m.img.Bounds(), s.img, s.img.Bounds().Min, draw.Src)
}

func (m *Image) eachPixel(fn func(p []uint8)) {
	b := m.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.img.Pix[m.img.PixOffset(b.Min.X, y):m.img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			fn(row[i : i+4])
		}
	}
}

// fillEllipse approximates the ellipse with a polygon and fills it.
func (m *Image) fillEllipse(cx, cy, rx, ry float64, src image.Image) {
	if rx <= 0 || ry <= 0 {
		return
	}
	n := segments(math.Max(rx, ry))
	pts := make([][2]float64, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = [2]float64{cx + rx*math.Cos(a), cy + ry*math.Sin(a)}
	}
	m.fillPolygon(pts, src)
}

// FillPill fills r with fully rounded ends.
func (m *Image) FillPill(r Rect, c color.NRGBA) {
	if c.A == 0 || r.W <= 0 || r.H <= 0 {
		return
	}
	rad := math.Min(r.W, r.H) / 2
	n := segments(rad) / 2
	pts := make([][2]float64, 0, 2*n+2)
	// right cap from top to bottom, then left cap from bottom to top
	for i := 0; i <= n; i++ {
		a := -math.Pi/2 + math.Pi*float64(i)/float64(n)
		pts = append(pts, [2]float64{r.X + r.W - rad + rad*math.Cos(a), r.Y + rad + rad*math.Sin(a)})
	}
	for i := 0; i <= n; i++ {
		a := math.Pi/2 + math.Pi*float64(i)/float64(n)
		pts = append(pts, [2]float64{r.X + rad + rad*math.Cos(a), r.Y + rad + rad*math.Sin(a)})
	}
	m.fillPolygon(pts, image.NewUniform(c))
}

// fillPolygon rasterises pts into an alpha mask sized to their bounding box,
// then composites src through it onto the visible part.
func (m *Image) fillPolygon(pts [][2]float64, src image.Image) {
	if len(pts) < 3 {
		return
	}
	minX, minY := pts[0][0], pts[0][1]
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	bb := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
	clip := bb.Intersect(m.img.Bounds())
	if clip.Empty() {
		return
	}

	ox, oy := float64(bb.Min.X), float64(bb.Min.Y)
	m.ras.Reset(bb.Dx(), bb.Dy())
	m.ras.MoveTo(float32(pts[0][0]-ox), float32(pts[0][1]-oy))
	for _, p := range pts[1:] {
		m.ras.LineTo(float32(p[0]-ox), float32(p[1]-oy))
	}
	m.ras.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, bb.Dx(), bb.Dy()))
	m.ras.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(m.img, clip, src, clip.Min, mask, clip.Min.Sub(bb.Min), draw.Over)
}

func segments(radius float64) int {
	n := int(radius * 1.5)
	if n < 24 {
		return 24
	}
	if n > 160 {
		return 160
	}
	return n
}

func addClamped(v uint8, d float64) uint8 {
	s := math.Round(float64(v) + d)
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s)
}

// radialSource evaluates a gradient in destination coordinates.
type radialSource struct {
	g RadialGradient
}

func (s radialSource) ColorModel() color.Model { return color.NRGBAModel }

func (s radialSource) Bounds() image.Rectangle {
	return image.Rect(-1<<20, -1<<20, 1<<20, 1<<20)
}

func (s radialSource) At(x, y int) color.Color {
	dx := float64(x) + 0.5 - s.g.CX
	dy := float64(y) + 0.5 - s.g.CY
	return s.g.At(math.Hypot(dx, dy))
}
