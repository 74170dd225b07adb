package raster

import (
	"image"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type faceKey struct {
	face Face
	size float64
}

// sharedFace guards a font.Face: opentype faces keep scratch buffers and
// must not be used from two goroutines at once.
type sharedFace struct {
	mu   sync.Mutex
	face font.Face
}

var (
	facesMu sync.Mutex
	faces   = map[faceKey]*sharedFace{}
)

func lookupFace(f Face, size float64) *sharedFace {
	key := faceKey{f, size}

	facesMu.Lock()
	defer facesMu.Unlock()

	if sf, ok := faces[key]; ok {
		return sf
	}
	sf := &sharedFace{face: loadFace(f, size)}
	faces[key] = sf
	return sf
}

func loadFace(f Face, size float64) font.Face {
	ttf := goregular.TTF
	switch f {
	case Mono:
		ttf = gomono.TTF
	case Bold:
		ttf = gobold.TTF
	}

	parsed, err := opentype.Parse(ttf)
	if err != nil {
		log.Printf("[!] font parse error, falling back to basicfont: %v", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("[!] font face error, falling back to basicfont: %v", err)
		return basicfont.Face7x13
	}
	return face
}

// MeasureText returns the advance width of s in pixels.
func MeasureText(s string, f Face, size float64) float64 {
	sf := lookupFace(f, size)
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return float64(font.MeasureString(sf.face, s)) / 64
}

func (m *Image) Text(s string, x, y float64, st TextStyle) {
	if s == "" {
		return
	}
	sf := lookupFace(st.Face, st.Size)
	sf.mu.Lock()
	defer sf.mu.Unlock()

	face := sf.face
	met := face.Metrics()

	dotX := fixed.Int26_6(x * 64)
	switch st.Align {
	case AlignCenter:
		dotX -= font.MeasureString(face, s) / 2
	case AlignRight:
		dotX -= font.MeasureString(face, s)
	}

	dotY := fixed.Int26_6(y * 64)
	switch st.Baseline {
	case BaselineBottom:
		dotY -= met.Descent
	case BaselineMiddle:
		dotY += (met.Ascent - met.Descent) / 2
	}

	d := &font.Drawer{Dst: m.img, Face: face}

	if st.Outline.A > 0 && st.OutlineWidth > 0 {
		// a stroke of width w reaches w/2 px beyond the glyph edge
		reach := st.OutlineWidth / 2
		if reach < 1 {
			reach = 1
		}
		d.Src = image.NewUniform(st.Outline)
		for oy := -reach; oy <= reach; oy++ {
			for ox := -reach; ox <= reach; ox++ {
				if ox == 0 && oy == 0 {
					continue
				}
				d.Dot = fixed.Point26_6{X: dotX + fixed.I(ox), Y: dotY + fixed.I(oy)}
				d.DrawString(s)
			}
		}
	}

	d.Src = image.NewUniform(st.Color)
	d.Dot = fixed.Point26_6{X: dotX, Y: dotY}
	d.DrawString(s)
}
