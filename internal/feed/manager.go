package feed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/renderer"
	"github.com/ivlev/camsim/internal/scene"
)

// Manager runs one Player per registry camera and keeps their offline
// state in step with the registry.
type Manager struct {
	cfg     *config.Config
	reg     *registry.Registry
	players map[int]*Player
	ids     []int
	rng     scene.Rand
}

type ManagerOption func(*managerOptions)

type managerOptions struct {
	player   []PlayerOption
	renderer func(id int) []renderer.Option
	rng      scene.Rand
}

// WithPlayerOptions applies opts to every player.
func WithPlayerOptions(opts ...PlayerOption) ManagerOption {
	return func(o *managerOptions) { o.player = append(o.player, opts...) }
}

// WithRendererOptions supplies per-camera renderer options.
func WithRendererOptions(fn func(id int) []renderer.Option) ManagerOption {
	return func(o *managerOptions) { o.renderer = fn }
}

// WithRegistryRand replaces the source used for status flaps and motion
// labels.
func WithRegistryRand(rng scene.Rand) ManagerOption {
	return func(o *managerOptions) { o.rng = rng }
}

func NewManager(cfg *config.Config, reg *registry.Registry, opts ...ManagerOption) *Manager {
	o := managerOptions{
		renderer: func(id int) []renderer.Option {
			return []renderer.Option{
				renderer.WithRand(rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*99)))),
			}
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = scene.NewRand()
	}

	m := &Manager{
		cfg:     cfg,
		reg:     reg,
		players: make(map[int]*Player),
		rng:     o.rng,
	}
	popts := append([]PlayerOption{
		WithInterval(cfg.FrameInterval()),
		WithQuality(cfg.JPEGQuality),
	}, o.player...)

	for _, cam := range reg.All() {
		fc := cfg.Feed(cam.Code(), cam.Name, string(cam.Environment()), cam.Offline())
		r := renderer.New(fc, o.renderer(cam.ID)...)
		m.players[cam.ID] = NewPlayer(cam.ID, r, popts...)
		m.ids = append(m.ids, cam.ID)
	}
	sort.Ints(m.ids)
	return m
}

func (m *Manager) Registry() *registry.Registry { return m.reg }

// Player returns the player for camera id.
func (m *Manager) Player(id int) (*Player, error) {
	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("camera %d: %w", id, registry.ErrNotFound)
	}
	return p, nil
}

// Players returns every player ordered by camera id.
func (m *Manager) Players() []*Player {
	out := make([]*Player, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.players[id])
	}
	return out
}

// SetStatus updates the registry and switches the camera's feed to match.
func (m *Manager) SetStatus(ctx context.Context, id int, s registry.Status) (registry.Camera, error) {
	cam, err := m.reg.SetStatus(id, s)
	if err != nil {
		return registry.Camera{}, err
	}
	p, err := m.Player(id)
	if err != nil {
		return cam, err
	}
	return cam, p.SetOffline(ctx, cam.Offline())
}

// Run starts every player and the registry simulation and blocks until ctx
// is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, p := range m.Players() {
		p := p
		g.Go(func() error { return p.Run(ctx) })
	}

	g.Go(func() error {
		return m.reg.Run(ctx, m.cfg.FlapEvery(), m.cfg.MotionEvery(), m.rng, func(c registry.Camera) {
			p, err := m.Player(c.ID)
			if err != nil {
				log.Printf("[!] %v", err)
				return
			}
			if err := p.SetOffline(ctx, c.Offline()); err != nil && ctx.Err() == nil {
				log.Printf("[!] camera %d: %v", c.ID, err)
			}
		})
	})

	fmt.Printf("[*] Streaming %d cameras at %d fps\n", len(m.ids), m.cfg.FPS)
	return g.Wait()
}
