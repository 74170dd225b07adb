// Package feed schedules camera renderers and distributes their frames.
//
// Each Player owns one renderer. Its run loop is the only goroutine that
// touches the renderer; everything else talks to it through requests.
package feed

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/renderer"
	"github.com/ivlev/camsim/internal/system"
)

var ErrRunning = errors.New("player already running")

type request struct {
	fn   func(*renderer.Renderer)
	done chan struct{}
}

// Player drives one renderer: a frame task ticks and presents it at a fixed
// rate, and a clock task refreshes the displayed time once per second by
// default. Both stop when the context passed to Run is cancelled.
type Player struct {
	id       int
	r        *renderer.Renderer
	hub      *Hub
	pool     *system.ImagePool
	interval time.Duration
	quality  int
	clock    func() time.Time
	clockDur time.Duration

	reqs    chan request
	started atomic.Bool
	stopped chan struct{}

	now     atomic.Int64
	latest  atomic.Pointer[Frame]
	playing atomic.Bool
	offline atomic.Bool
	seq     uint64
}

type PlayerOption func(*Player)

// WithInterval sets the frame period. The default is 15 fps.
func WithInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) PlayerOption {
	return func(p *Player) {
		if q > 0 && q <= 100 {
			p.quality = q
		}
	}
}

// WithPool gives the player its own frame pool instead of the shared one.
func WithPool(pool *system.ImagePool) PlayerOption {
	return func(p *Player) { p.pool = pool }
}

// WithWallClock replaces time.Now for the clock task.
func WithWallClock(fn func() time.Time) PlayerOption {
	return func(p *Player) { p.clock = fn }
}

// WithClockInterval sets how often the displayed time is refreshed. The
// default is one second.
func WithClockInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.clockDur = d
		}
	}
}

func NewPlayer(id int, r *renderer.Renderer, opts ...PlayerOption) *Player {
	p := &Player{
		id:       id,
		r:        r,
		hub:      NewHub(),
		interval: time.Second / 15,
		quality:  80,
		clock:    time.Now,
		clockDur: time.Second,
		reqs:     make(chan request),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.now.Store(p.clock().UnixNano())
	p.sync()
	return p
}

func (p *Player) ID() int { return p.id }

// Run blocks until ctx is cancelled or a task fails. It may be called once.
func (p *Player) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(p.stopped)
	defer p.hub.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runClock(ctx) })
	g.Go(func() error { return p.runFrames(ctx) })
	return g.Wait()
}

// Done is closed once Run has returned.
func (p *Player) Done() <-chan struct{} { return p.stopped }

func (p *Player) runClock(ctx context.Context) error {
	ticker := time.NewTicker(p.clockDur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.now.Store(p.clock().UnixNano())
		}
	}
}

func (p *Player) runFrames(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.frame()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-p.reqs:
			req.fn(p.r)
			p.sync()
			close(req.done)
			p.present()
		case <-ticker.C:
			p.frame()
		}
	}
}

// frame ticks the renderer and publishes the result. A paused renderer with
// nobody watching is not re-encoded: the frame published when it was paused
// stays current.
func (p *Player) frame() {
	p.r.SetTime(time.Unix(0, p.now.Load()))
	if !p.r.Tick() && p.hub.Subscribers() == 0 && p.latest.Load() != nil {
		return
	}
	p.present()
}

func (p *Player) sync() {
	p.playing.Store(p.r.Playing())
	p.offline.Store(p.r.Config().Offline)
}

// present encodes the renderer's presented frame and publishes it.
func (p *Player) present() {
	cfg := p.r.Config()
	rect := image.Rect(0, 0, cfg.Width, cfg.Height)
	var img *image.RGBA
	if p.pool != nil {
		img = p.pool.Get(rect)
		defer p.pool.Put(img)
	} else {
		img = system.GetImage(rect)
		defer system.PutImage(img)
	}

	p.r.Present(raster.Wrap(img))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		log.Printf("[!] camera %d: jpeg encode: %v", p.id, err)
		return
	}

	p.seq++
	f := Frame{Seq: p.seq, CameraID: p.id, JPEG: buf.Bytes(), At: p.clock()}
	p.latest.Store(&f)
	p.hub.Publish(f)
}

// do runs fn on the loop goroutine and waits for it.
func (p *Player) do(ctx context.Context, fn func(*renderer.Renderer)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case p.reqs <- req:
	case <-p.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Toggle flips play/pause and reports the new state.
func (p *Player) Toggle(ctx context.Context) (bool, error) {
	var playing bool
	err := p.do(ctx, func(r *renderer.Renderer) { playing = r.Toggle() })
	return playing, err
}

// Reconfigure replaces the renderer configuration between two ticks.
func (p *Player) Reconfigure(ctx context.Context, cfg config.Feed) error {
	return p.do(ctx, func(r *renderer.Renderer) { r.Reconfigure(cfg) })
}

// SetOffline switches the renderer to or from the no-signal state.
func (p *Player) SetOffline(ctx context.Context, offline bool) error {
	return p.do(ctx, func(r *renderer.Renderer) {
		cfg := r.Config()
		cfg.Offline = offline
		r.Reconfigure(cfg)
	})
}

func (p *Player) Playing() bool { return p.playing.Load() }

func (p *Player) Offline() bool { return p.offline.Load() }

// Snapshot returns the most recent frame, if any has been presented.
func (p *Player) Snapshot() (Frame, bool) {
	f := p.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

func (p *Player) Subscribe(id string) (<-chan Frame, error) { return p.hub.Subscribe(id) }

func (p *Player) Unsubscribe(id string) error { return p.hub.Unsubscribe(id) }

func (p *Player) Hub() *Hub { return p.hub }
