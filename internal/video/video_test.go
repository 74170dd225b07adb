package video

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/camsim/internal/config"
)

func TestBuildFFmpegArgs(t *testing.T) {
	base := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", "640x360",
		"-framerate", "15",
		"-i", "-",
		"-r", "15",
		"-pix_fmt", "yuv420p",
	}
	tests := []struct {
		encoder string
		quality []string
	}{
		{"libx264", []string{"-crf", "23", "-preset", "medium"}},
		{"h264_nvenc", []string{"-cq", "23"}},
		{"h264_videotoolbox", []string{"-b:v", "2300k"}},
	}
	e := &FFmpegEncoder{}
	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			params := config.EncodeParams{Width: 640, Height: 360, FPS: 15, Encoder: tt.encoder, Quality: 23}
			got := e.buildFFmpegArgs("out.mp4", params)

			want := append(append([]string{}, base...), "-c:v", tt.encoder)
			want = append(want, tt.quality...)
			want = append(want, "out.mp4")
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteRawRGBA(t *testing.T) {
	e := &FFmpegEncoder{}

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{R: 9, A: 255})
	var buf bytes.Buffer
	require.NoError(t, e.writeRawRGBA(&buf, img))
	assert.Equal(t, img.Pix, buf.Bytes())

	// A sub-image has a wider stride and must be repacked.
	big := image.NewRGBA(image.Rect(0, 0, 4, 4))
	big.Set(2, 2, color.RGBA{G: 7, A: 255})
	sub := big.SubImage(image.Rect(1, 1, 3, 3))
	buf.Reset()
	require.NoError(t, e.writeRawRGBA(&buf, sub))
	assert.Len(t, buf.Bytes(), 2*2*4)
	assert.Equal(t, uint8(7), buf.Bytes()[3*4+1])
}
