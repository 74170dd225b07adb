// Package renderer composes simulated CCTV frames.
//
// A Renderer owns one raster surface and one scene. Every Tick while playing
// repaints the surface in a fixed order: base fill with sensor noise,
// background elements, the motion layer (with probability Motion), the
// environment's post effect, scanlines, timestamp and caption. An offline
// renderer paints static and "SIN SEÑAL" instead.
//
// A Renderer is not safe for concurrent use. feed.Player gives each one a
// single owning goroutine.
package renderer

import (
	"time"

	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/effects"
	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/scene"
)

type Renderer struct {
	cfg    config.Feed
	env    scene.Environment
	scene  *scene.Scene
	effect effects.Effect

	rng        scene.Rand
	clock      func() time.Time
	newSurface func(w, h int) raster.Canvas
	surface    raster.Canvas

	playing bool
	now     time.Time
	started time.Time
	frames  uint64
}

type Option func(*Renderer)

// WithRand replaces the time-seeded random source.
func WithRand(rng scene.Rand) Option {
	return func(r *Renderer) { r.rng = rng }
}

// WithSurface replaces the *raster.Image surface factory.
func WithSurface(fn func(w, h int) raster.Canvas) Option {
	return func(r *Renderer) { r.newSurface = fn }
}

// WithClock replaces time.Now for the REC pulse and the initial timestamp.
func WithClock(fn func() time.Time) Option {
	return func(r *Renderer) { r.clock = fn }
}

// New builds a playing renderer. cfg is normalized first, so any value is
// accepted.
func New(cfg config.Feed, opts ...Option) *Renderer {
	r := &Renderer{
		clock:   time.Now,
		playing: true,
		newSurface: func(w, h int) raster.Canvas {
			return raster.NewImage(w, h)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = scene.NewRand()
	}
	r.now = r.clock()
	r.started = r.now

	cfg.Normalize()
	r.cfg = cfg
	r.rebuild()
	r.surface = r.newSurface(cfg.Width, cfg.Height)
	return r
}

func (r *Renderer) rebuild() {
	r.env = scene.Environment(r.cfg.Environment)
	r.scene = scene.New(r.cfg.Width, r.cfg.Height, r.env, r.rng)
	r.effect = effects.ForEnvironment(r.env)
}

// Reconfigure applies cfg. The scene is regenerated only when the surface
// size or the environment changes; the other fields take effect on the next
// tick.
func (r *Renderer) Reconfigure(cfg config.Feed) {
	cfg.Normalize()
	old := r.cfg
	r.cfg = cfg

	resized := cfg.Width != old.Width || cfg.Height != old.Height
	if resized {
		r.surface = r.newSurface(cfg.Width, cfg.Height)
	}
	if resized || cfg.Environment != old.Environment {
		r.rebuild()
	}
}

// Toggle flips between playing and paused and reports the new state.
func (r *Renderer) Toggle() bool {
	r.playing = !r.playing
	return r.playing
}

func (r *Renderer) Playing() bool { return r.playing }

// SetTime sets the wall-clock value shown by the timestamp overlay.
func (r *Renderer) SetTime(t time.Time) { r.now = t }

func (r *Renderer) Config() config.Feed { return r.cfg }

func (r *Renderer) Scene() *scene.Scene { return r.scene }

// Frames returns how many ticks have painted the surface.
func (r *Renderer) Frames() uint64 { return r.frames }

func (r *Renderer) Surface() raster.Canvas { return r.surface }

// Tick paints one frame. A paused renderer does nothing and returns false.
func (r *Renderer) Tick() bool {
	if !r.playing {
		return false
	}
	r.frames++

	c := r.surface
	if r.cfg.Offline {
		drawNoSignal(c, r.rng)
		return true
	}

	effects.Base(c, r.env, r.cfg.Noise, r.rng)
	drawBackground(c, r.scene.Background)
	if r.rng.Float64() < r.cfg.Motion {
		drawObjects(c, r.scene)
	}
	r.effect.Apply(c, r.rng)
	effects.Scanlines(c, r.rng)

	if r.cfg.ShowTimestamp {
		drawTimestamp(c, r.now)
	}
	if r.cfg.ShowCaption {
		drawCaption(c, r.cfg.Name)
	}
	return true
}

// Present copies the last painted frame into dst and adds the interactive
// overlays: the pause veil when paused and the REC indicator when online.
// dst must have the renderer's size.
func (r *Renderer) Present(dst raster.Canvas) {
	dst.Copy(r.surface)
	if !r.playing {
		drawPaused(dst)
	}
	if !r.cfg.Offline {
		drawRec(dst, Pulse(r.clock().Sub(r.started)))
	}
}
