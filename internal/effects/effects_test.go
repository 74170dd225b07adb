package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/raster/rastertest"
	"github.com/ivlev/camsim/internal/scene"
	"github.com/ivlev/camsim/internal/scene/scenetest"
)

func TestForEnvironment(t *testing.T) {
	assert.IsType(t, &NightVision{}, ForEnvironment(scene.Night))
	assert.IsType(t, &Thermal{}, ForEnvironment(scene.Thermal))
	assert.IsType(t, None{}, ForEnvironment(scene.Outdoor))
	assert.IsType(t, None{}, ForEnvironment(scene.Indoor))
}

func TestThermalPaintsTenBlobs(t *testing.T) {
	rec := rastertest.New(640, 360)
	rng := scenetest.NewSeq(0.5)

	ForEnvironment(scene.Thermal).Apply(rec, rng)

	blobs := rec.Named(rastertest.OpFillRadial)
	require.Len(t, blobs, HeatSources)
	for _, b := range blobs {
		g := b.Gradient
		require.Len(t, g.Stops, 3)
		assert.Equal(t, raster.RGBA(255, 0, 0, 0.5), g.Stops[0].Color)
		assert.Equal(t, raster.RGBA(255, 255, 0, 0.3), g.Stops[1].Color)
		assert.Equal(t, raster.RGBA(0, 0, 255, 0.1), g.Stops[2].Color)
		assert.Equal(t, 320.0, g.CX)
		assert.Equal(t, 180.0, g.CY)
		assert.Equal(t, 40.0, g.R)
	}
	assert.Equal(t, 30, rng.Calls)

	last := rec.Ops[len(rec.Ops)-1]
	assert.Equal(t, rastertest.OpFillRect, last.Name)
	assert.Equal(t, raster.RGBA(0, 0, 0, 0.2), last.Color)
}

func TestNightVisionBloom(t *testing.T) {
	t.Run("quiet", func(t *testing.T) {
		rec := rastertest.New(100, 50)
		(&NightVision{}).Apply(rec, scenetest.Const(0.5))

		assert.Equal(t, []string{rastertest.OpFillRect}, rec.Names())
		assert.Equal(t, raster.RGBA(0, 255, 0, 0.1), rec.Ops[0].Color)
	})

	t.Run("flash", func(t *testing.T) {
		rec := rastertest.New(100, 50)
		(&NightVision{}).Apply(rec, scenetest.NewSeq(0.01, 0.5, 0.5, 0.5))

		circles := rec.Named(rastertest.OpFillCircle)
		require.Len(t, circles, 1)
		// centre (50,25), radius 25
		assert.Equal(t, raster.Rect{X: 25, Y: 0, W: 50, H: 50}, circles[0].Rect)
		assert.Equal(t, raster.RGBA(255, 255, 255, 0.3), circles[0].Color)
	})
}

func TestBaseFillPerEnvironment(t *testing.T) {
	tests := []struct {
		env   scene.Environment
		fill  string
		noise bool
	}{
		{scene.Outdoor, "#111", true},
		{scene.Indoor, "#111", true},
		{scene.Night, "#001a1a", true},
		{scene.Thermal, "#000", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.env), func(t *testing.T) {
			rec := rastertest.New(4, 3)
			rng := scenetest.NewSeq(0.5)

			Base(rec, tt.env, 0.05, rng)

			require.NotEmpty(t, rec.Ops)
			assert.Equal(t, raster.Hex(tt.fill), rec.Ops[0].Color)
			assert.Equal(t, tt.noise, len(rec.Named(rastertest.OpAddNoise)) == 1)
			if tt.noise {
				assert.Equal(t, 12, rng.Calls)
			} else {
				assert.Zero(t, rng.Calls)
			}
		})
	}
}

func TestBaseNoiseTint(t *testing.T) {
	img := raster.NewImage(2, 1)
	Base(img, scene.Night, 1, scenetest.Const(0.2))

	// n = 0.2*255 = 51 over #001a1a
	px := img.RGBA().RGBAAt(0, 0)
	assert.Equal(t, uint8(10), px.R)
	assert.Equal(t, uint8(0x1a+51), px.G)
	assert.Equal(t, uint8(0x1a+10), px.B)

	img = raster.NewImage(2, 1)
	Base(img, scene.Outdoor, 1, scenetest.Const(1))
	assert.Equal(t, uint8(255), img.RGBA().RGBAAt(1, 0).R, "channels clamp at 255")
}

func TestScanlines(t *testing.T) {
	rec := rastertest.New(640, 360)
	Scanlines(rec, scenetest.Const(0.9))

	rows := rec.Named(rastertest.OpFillRect)
	require.Len(t, rows, 180)
	for i, r := range rows {
		assert.Equal(t, float64(2*i), r.Rect.Y)
		assert.Equal(t, 1.0, r.Rect.H)
		assert.Equal(t, uint8(26), r.Color.A)
	}

	rec = rastertest.New(640, 361)
	Scanlines(rec, scenetest.NewSeq(0.01, 0.5, 0.5))
	rows = rec.Named(rastertest.OpFillRect)
	require.Len(t, rows, 182)
	band := rows[len(rows)-1]
	assert.Equal(t, uint8(255), band.Color.R)
	assert.Equal(t, 180.5, band.Rect.Y)
	assert.Equal(t, 3.5, band.Rect.H)
}
