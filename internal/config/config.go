package config

import (
	"math"
	"time"

	"github.com/ivlev/camsim/internal/scene"
)

// Config is the process configuration. A YAML file overlays Default(), and
// command-line flags override the file.
type Config struct {
	Addr        string `yaml:"addr"`
	Auth        Auth   `yaml:"auth"`
	CamerasPath string `yaml:"cameras"`

	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           int     `yaml:"fps"`
	JPEGQuality   int     `yaml:"jpeg_quality"`
	Noise         float64 `yaml:"noise"`
	Motion        float64 `yaml:"motion"`
	ShowTimestamp bool    `yaml:"show_timestamp"`
	ShowCaption   bool    `yaml:"show_caption"`

	FlapInterval  int `yaml:"flap_interval"`  // seconds
	AlertInterval int `yaml:"alert_interval"` // seconds
	MotionRefresh int `yaml:"motion_refresh"` // seconds
	PinnedCamera  int `yaml:"pinned_camera"`

	RecordDir     string  `yaml:"record_dir"`
	RecordCameras []int   `yaml:"record_cameras"`
	RecordSeconds float64 `yaml:"record_seconds"`
	Workers       int     `yaml:"workers"`
	VideoEncoder  string  `yaml:"video_encoder"`
	Quality       int     `yaml:"quality"` // 0 picks a per-encoder default

	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

// Auth enables HTTP basic auth when both fields are set.
type Auth struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

func (a Auth) Enabled() bool { return a.User != "" && a.Password != "" }

func Default() *Config {
	return &Config{
		Addr:          ":8080",
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		FPS:           15,
		JPEGQuality:   80,
		Noise:         0.05,
		Motion:        0.2,
		ShowTimestamp: false, // dashboard tiles carry no timestamp
		ShowCaption:   true,
		FlapInterval:  30,
		AlertInterval: 30,
		MotionRefresh: 10,
		PinnedCamera:  6,
		RecordSeconds: 10,
		Workers:       2,
	}
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func (c *Config) FlapEvery() time.Duration   { return seconds(c.FlapInterval, 30) }
func (c *Config) AlertEvery() time.Duration  { return seconds(c.AlertInterval, 30) }
func (c *Config) MotionEvery() time.Duration { return seconds(c.MotionRefresh, 10) }

func (c *Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 15
	}
	return time.Second / time.Duration(c.FPS)
}

// Feed returns the renderer configuration for one camera using the process
// defaults for everything but identity, environment and connectivity.
func (c *Config) Feed(id, name, env string, offline bool) Feed {
	f := Feed{
		Width:         c.Width,
		Height:        c.Height,
		Name:          name,
		ID:            id,
		Noise:         c.Noise,
		ShowTimestamp: c.ShowTimestamp,
		ShowCaption:   c.ShowCaption,
		Motion:        c.Motion,
		Offline:       offline,
		Environment:   env,
	}
	f.Normalize()
	return f
}

const (
	DefaultWidth  = 640
	DefaultHeight = 360

	// MaxDimension bounds each side of a surface.
	MaxDimension = 4096
)

// Feed configures one simulated camera renderer.
type Feed struct {
	Width         int     `yaml:"width" json:"width"`
	Height        int     `yaml:"height" json:"height"`
	Name          string  `yaml:"name" json:"name"`
	ID            string  `yaml:"id" json:"id"`
	Noise         float64 `yaml:"noise" json:"noise"`
	ShowTimestamp bool    `yaml:"show_timestamp" json:"showTimestamp"`
	ShowCaption   bool    `yaml:"show_caption" json:"showCaption"`
	Motion        float64 `yaml:"motion" json:"motion"`
	Offline       bool    `yaml:"offline" json:"offline"`
	Environment   string  `yaml:"environment" json:"environment"`
}

func DefaultFeed() Feed {
	return Feed{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		Name:          "CAM-01",
		ID:            "CCTV-1",
		Noise:         0.05,
		ShowTimestamp: true,
		ShowCaption:   true,
		Motion:        0.2,
		Environment:   string(scene.Outdoor),
	}
}

// Normalize coerces any input into a renderable configuration: non-positive
// dimensions fall back to the defaults, larger ones are capped at
// MaxDimension, probabilities are clamped to [0,1] and unknown environments
// become outdoor.
func (f *Feed) Normalize() {
	if f.Width <= 0 {
		f.Width = DefaultWidth
	}
	if f.Height <= 0 {
		f.Height = DefaultHeight
	}
	f.Width = min(f.Width, MaxDimension)
	f.Height = min(f.Height, MaxDimension)
	f.Noise = unit(f.Noise)
	f.Motion = unit(f.Motion)
	f.Environment = string(scene.ParseEnvironment(f.Environment))
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// EncoderQuality returns Quality, or the usual setting for encoder when it
// is unset: bitrate units for VideoToolbox, CQ for NVENC, CRF for x264.
func (c *Config) EncoderQuality(encoder string) int {
	if c.Quality > 0 {
		return c.Quality
	}
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// EncodeParams describes one recorder output file.
type EncodeParams struct {
	Width, Height int
	FPS           int
	Encoder       string
	Quality       int
}
