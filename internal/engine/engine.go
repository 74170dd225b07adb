// Package engine records camera feeds to video files without a wall clock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/raster"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/renderer"
	"github.com/ivlev/camsim/internal/scene"
	"github.com/ivlev/camsim/internal/system"
	"github.com/ivlev/camsim/internal/video"
)

var ErrNoFrames = errors.New("nothing to record: seconds and fps must be positive")

// Result describes one recorded camera.
type Result struct {
	CameraID int
	Path     string
	Frames   int
	Render   time.Duration
	Encode   time.Duration
}

type RecordProject struct {
	Config  *config.Config
	Cameras []registry.Camera
	Encoder video.VideoEncoder

	// Start is the simulated wall-clock time of frame 0.
	Start time.Time
	// NewRand returns the random source for a camera's renderer.
	NewRand func(cameraID int) scene.Rand
	// Stats samples host load for the performance report.
	Stats func(ctx context.Context) (system.Stats, error)
	// Report receives the performance report. Defaults to stdout.
	Report io.Writer
}

func NewRecordProject(cfg *config.Config, cams []registry.Camera, ve video.VideoEncoder) *RecordProject {
	return &RecordProject{
		Config:  cfg,
		Cameras: cams,
		Encoder: ve,
		Start:   time.Now(),
		NewRand: func(id int) scene.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*99)))
		},
		Stats: func(ctx context.Context) (system.Stats, error) {
			return system.CollectStats(ctx, 0)
		},
		Report: os.Stdout,
	}
}

// SelectCameras returns the cameras with the given ids in that order, or all
// of them when ids is empty.
func SelectCameras(all []registry.Camera, ids []int) ([]registry.Camera, error) {
	if len(ids) == 0 {
		return all, nil
	}
	out := make([]registry.Camera, 0, len(ids))
	for _, id := range ids {
		found := false
		for _, c := range all {
			if c.ID == id {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("camera %d: %w", id, registry.ErrNotFound)
		}
	}
	return out, nil
}

// FrameCount is the number of frames in one recording.
func (p *RecordProject) FrameCount() int {
	return int(p.Config.RecordSeconds * float64(p.Config.FPS))
}

// OutputPath is where camera id is written.
func (p *RecordProject) OutputPath(id int) string {
	return filepath.Join(p.Config.RecordDir, fmt.Sprintf("cctv-%d.mp4", id))
}

// Run renders and encodes every camera, at most Config.Workers at a time.
func (p *RecordProject) Run(ctx context.Context) ([]Result, error) {
	startTime := time.Now()

	n := p.FrameCount()
	if n <= 0 || p.Config.FPS <= 0 {
		return nil, ErrNoFrames
	}
	if len(p.Cameras) == 0 {
		return nil, fmt.Errorf("no cameras to record")
	}
	if err := os.MkdirAll(p.Config.RecordDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	encoder := p.Config.VideoEncoder
	if encoder == "" {
		encoder = "libx264"
	}

	fmt.Println("--- [CAMSIM: RECORDER] ---")
	fmt.Printf("[*] Cameras: %d | Frames per camera: %d\n", len(p.Cameras), n)
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS | Encoder: %s\n", p.Config.Width, p.Config.Height, p.Config.FPS, encoder)
	fmt.Println("--------------------------")

	workers := p.Config.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(p.Cameras))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cam := range p.Cameras {
		i, cam := i, cam
		g.Go(func() error {
			res, err := p.record(gctx, cam, n, encoder)
			if err != nil {
				log.Printf("[!] Error recording camera %d: %v", cam.ID, err)
				return fmt.Errorf("camera %d: %w", cam.ID, err)
			}
			results[i] = res

			mu.Lock()
			done++
			fmt.Printf("[>] Ready: %d/%d (%s)\n", done, len(p.Cameras), res.Path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p.Config.ShowStats {
		p.report(ctx, results, time.Since(startTime))
	}
	return results, nil
}

func (p *RecordProject) record(ctx context.Context, cam registry.Camera, n int, encoder string) (Result, error) {
	now := p.Start
	fc := p.Config.Feed(cam.Code(), cam.Name, string(cam.Environment()), cam.Offline())
	r := renderer.New(fc,
		renderer.WithRand(p.NewRand(cam.ID)),
		renderer.WithClock(func() time.Time { return now }),
	)
	fc = r.Config()

	params := config.EncodeParams{
		Width:   fc.Width,
		Height:  fc.Height,
		FPS:     p.Config.FPS,
		Encoder: encoder,
		Quality: p.Config.EncoderQuality(encoder),
	}
	step := time.Second / time.Duration(p.Config.FPS)
	res := Result{CameraID: cam.ID, Path: p.OutputPath(cam.ID), Frames: n}

	started := time.Now()
	err := p.Encoder.EncodeFrames(ctx, res.Path, params, n, func(i int, dst *image.RGBA) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		t0 := time.Now()
		now = p.Start.Add(time.Duration(i) * step)
		r.SetTime(now)
		r.Tick()
		r.Present(raster.Wrap(dst))
		res.Render += time.Since(t0)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Encode = time.Since(started) - res.Render
	return res, nil
}

func (p *RecordProject) report(ctx context.Context, results []Result, total time.Duration) {
	var frames int
	var render, encode time.Duration
	for _, r := range results {
		frames += r.Frames
		render += r.Render
		encode += r.Encode
	}
	fps := float64(frames) / total.Seconds()

	st, err := p.Stats(ctx)
	if err != nil {
		log.Printf("[!] Incomplete host stats: %v", err)
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU): %.2fs\n"+
			"Encoding (GPU/CPU): %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Host CPU: %.1f%% of %d cores | Memory: %.1f%%\n"+
			"Process RSS: %.1f MiB\n"+
			"----------------------------\n",
		p.Config.BuildVersion, total.Seconds(), render.Seconds(), encode.Seconds(), fps,
		st.CPUPercent, st.NumCPU, st.MemUsedPercent,
		float64(st.ProcessRSS)/(1<<20),
	)
	fmt.Fprint(p.Report, report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Cameras: %d | Frames: %d | Total: %.2fs | Render: %.2fs | Encode: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		len(results),
		frames,
		total.Seconds(),
		render.Seconds(),
		encode.Seconds(),
		fps,
	)

	f, err := os.OpenFile(filepath.Join(p.Config.RecordDir, "benchmark.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Could not write benchmark.log: %v\n", err)
	}
}
