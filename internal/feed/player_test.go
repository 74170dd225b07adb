package feed

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/raster/rastertest"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/renderer"
	"github.com/ivlev/camsim/internal/scene/scenetest"
)

func smallFeed() config.Feed {
	f := config.DefaultFeed()
	f.Width, f.Height = 64, 36
	return f
}

func startPlayer(t *testing.T, p *Player) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("player did not stop")
		}
	})
	return cancel
}

func TestPlayerPublishesJPEG(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(4, r, WithInterval(5*time.Millisecond), WithQuality(60))

	_, ok := p.Snapshot()
	assert.False(t, ok, "no frame before Run")

	ch, err := p.Subscribe("test")
	require.NoError(t, err)
	startPlayer(t, p)

	var f Frame
	select {
	case f = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame published")
	}
	assert.Equal(t, 4, f.CameraID)
	assert.Positive(t, f.Seq)

	img, err := jpeg.Decode(bytes.NewReader(f.JPEG))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 36, img.Bounds().Dy())

	require.Eventually(t, func() bool {
		s, ok := p.Snapshot()
		return ok && s.Seq >= f.Seq
	}, time.Second, 5*time.Millisecond)
}

func TestPlayerToggle(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(1, r, WithInterval(10*time.Millisecond))
	assert.True(t, p.Playing())
	startPlayer(t, p)

	ctx := context.Background()
	playing, err := p.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, playing)
	assert.False(t, p.Playing())

	playing, err = p.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, playing)
}

func TestPlayerSetOfflineAndReconfigure(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(2, r, WithInterval(10*time.Millisecond))
	startPlayer(t, p)

	ctx := context.Background()
	require.NoError(t, p.SetOffline(ctx, true))
	assert.True(t, p.Offline())

	cfg := smallFeed()
	cfg.Width = 80
	require.NoError(t, p.Reconfigure(ctx, cfg))
	assert.False(t, p.Offline())

	require.Eventually(t, func() bool {
		f, ok := p.Snapshot()
		if !ok {
			return false
		}
		img, err := jpeg.Decode(bytes.NewReader(f.JPEG))
		return err == nil && img.Bounds().Dx() == 80
	}, time.Second, 5*time.Millisecond)
}

func TestPlayerStopsOnCancel(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(3, r, WithInterval(5*time.Millisecond))
	ch, err := p.Subscribe("viewer")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	<-ch
	cancel()
	require.NoError(t, <-errc)

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed")
	}
	for range ch {
	}

	_, err = p.Toggle(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Run(context.Background()), ErrRunning)
}

func TestPlayerRequestHonoursContext(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(5, r)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Toggle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "nobody serves requests before Run")
}

func TestManager(t *testing.T) {
	cfg := config.Default()
	cfg.Width, cfg.Height = 64, 36
	cfg.FPS = 100
	reg := registry.New(registry.Defaults(), cfg.PinnedCamera)

	m := NewManager(cfg, reg,
		WithRendererOptions(func(int) []renderer.Option {
			return []renderer.Option{renderer.WithRand(scenetest.Const(0.5))}
		}),
		WithRegistryRand(scenetest.Const(0.99)),
	)
	players := m.Players()
	require.Len(t, players, len(registry.Defaults()))
	for i := 1; i < len(players); i++ {
		assert.Less(t, players[i-1].ID(), players[i].ID())
	}

	_, err := m.Player(999)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, p := range m.Players() {
			if _, ok := p.Snapshot(); !ok {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cam, err := m.SetStatus(ctx, 1, registry.Offline)
	require.NoError(t, err)
	assert.True(t, cam.Offline())
	p, err := m.Player(1)
	require.NoError(t, err)
	assert.True(t, p.Offline())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

// stampSurface records the timestamps painted by the renderer.
type stampSurface struct {
	*rastertest.Recorder

	mu     sync.Mutex
	stamps []time.Time
}

func (s *stampSurface) Text(str string, x, y float64, st raster.TextStyle) {
	if t, err := time.ParseInLocation(renderer.TimestampLayout, str, time.Local); err == nil {
		s.mu.Lock()
		s.stamps = append(s.stamps, t)
		s.mu.Unlock()
	}
	s.Recorder.Text(str, x, y, st)
}

func (s *stampSurface) Stamps() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.stamps...)
}

func TestPlayerClockUpdatesTimestamp(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	var calls atomic.Int64
	clock := func() time.Time {
		return base.Add(time.Duration(calls.Add(1)) * time.Second)
	}

	var surf *stampSurface
	r := renderer.New(smallFeed(),
		renderer.WithRand(scenetest.Const(0.5)),
		renderer.WithSurface(func(w, h int) raster.Canvas {
			surf = &stampSurface{Recorder: rastertest.New(w, h)}
			return surf
		}),
	)
	p := NewPlayer(1, r,
		WithWallClock(clock),
		WithClockInterval(5*time.Millisecond),
		WithInterval(5*time.Millisecond),
	)
	startPlayer(t, p)

	require.Eventually(t, func() bool {
		stamps := surf.Stamps()
		return len(stamps) > 1 && stamps[len(stamps)-1].After(stamps[0])
	}, 2*time.Second, 5*time.Millisecond, "timestamp never advanced")

	stamps := surf.Stamps()
	assert.False(t, stamps[0].Before(base.Add(time.Second)), "first frame shows the construction time")
	for i := 1; i < len(stamps); i++ {
		assert.False(t, stamps[i].Before(stamps[i-1]), "timestamp went backwards at %d", i)
	}
}

func TestPlayerClockStopsOnCancel(t *testing.T) {
	var calls atomic.Int64
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(1, r,
		WithWallClock(func() time.Time { calls.Add(1); return time.Now() }),
		WithClockInterval(time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.runClock(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() > 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("clock task did not stop")
	}

	stopped := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "clock read after cancel")
}

func TestPlayerPausedWithoutViewersSkipsEncoding(t *testing.T) {
	r := renderer.New(smallFeed(), renderer.WithRand(scenetest.Const(0.5)))
	p := NewPlayer(1, r, WithInterval(2*time.Millisecond))
	startPlayer(t, p)

	ctx := context.Background()
	playing, err := p.Toggle(ctx)
	require.NoError(t, err)
	require.False(t, playing)

	time.Sleep(20 * time.Millisecond)
	paused := p.Hub().Published()
	assert.Positive(t, paused)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, paused, p.Hub().Published(), "idle paused feed kept encoding")

	_, ok := p.Snapshot()
	assert.True(t, ok, "paused frame stays available")

	ch, err := p.Subscribe("viewer")
	require.NoError(t, err)
	select {
	case f := <-ch:
		assert.Greater(t, f.Seq, uint64(0))
	case <-time.After(2 * time.Second):
		t.Fatal("viewer of a paused feed got no frame")
	}
	require.NoError(t, p.Unsubscribe("viewer"))

	_, err = p.Toggle(ctx)
	require.NoError(t, err)
	resumed := p.Hub().Published()
	require.Eventually(t, func() bool { return p.Hub().Published() > resumed+2 },
		2*time.Second, 2*time.Millisecond, "playing feed publishes without viewers")
}
