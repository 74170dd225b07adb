package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/camsim/internal/alerts"
	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/engine"
	"github.com/ivlev/camsim/internal/feed"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/scene"
	"github.com/ivlev/camsim/internal/system"
	"github.com/ivlev/camsim/internal/video"
	"github.com/ivlev/camsim/internal/web"
)

var version = "dev"

func main() {
	system.InitResourceLimits()

	configPtr := flag.String("config", "", "Path to a YAML config file")
	initConfigPtr := flag.String("init-config", "", "Write the effective config to this path and exit")
	camerasPtr := flag.String("cameras", "", "Path to a YAML camera table (default: built-in)")
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	widthPtr := flag.Int("width", config.DefaultWidth, "Frame width")
	heightPtr := flag.Int("height", config.DefaultHeight, "Frame height")
	fpsPtr := flag.Int("fps", 15, "Frames per second")
	qualityPtr := flag.Int("quality", 0, "Video quality (0 - auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	statsPtr := flag.Bool("stats", false, "Print a performance report")
	recordPtr := flag.String("record", "", "Record to this directory instead of serving")
	cameraPtr := flag.String("camera", "", "Comma-separated camera ids to record (default: all)")
	secondsPtr := flag.Float64("seconds", 10, "Seconds of video per camera")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Cameras recorded in parallel")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	cfg.BuildVersion = version

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cameras":
			cfg.CamerasPath = *camerasPtr
		case "addr":
			cfg.Addr = *addrPtr
		case "width":
			cfg.Width = *widthPtr
		case "height":
			cfg.Height = *heightPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "quality":
			cfg.Quality = *qualityPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "record":
			cfg.RecordDir = *recordPtr
		case "camera":
			cfg.RecordCameras, flagErr = parseIDs(*cameraPtr)
		case "seconds":
			cfg.RecordSeconds = *secondsPtr
		case "workers":
			cfg.Workers = *workersPtr
		}
	})
	if flagErr != nil {
		log.Fatalf("[-] Invalid -camera: %v", flagErr)
	}

	if *initConfigPtr != "" {
		if err := cfg.Save(*initConfigPtr); err != nil {
			log.Fatalf("[-] %v", err)
		}
		fmt.Printf("[+++] Config written: %s\n", *initConfigPtr)
		return
	}

	cams, err := registry.Load(cfg.CamerasPath)
	if err != nil {
		log.Fatalf("[-] Camera table error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RecordDir != "" {
		record(ctx, cfg, cams)
		return
	}
	serve(ctx, cfg, cams)
}

func record(ctx context.Context, cfg *config.Config, cams []registry.Camera) {
	if err := system.CheckFFmpeg(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	selected, err := engine.SelectCameras(cams, cfg.RecordCameras)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}

	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder()
	}
	if cfg.VideoEncoder != "libx264" {
		fmt.Printf("[*] Hardware acceleration detected: %s\n", cfg.VideoEncoder)
	}

	project := engine.NewRecordProject(cfg, selected, &video.FFmpegEncoder{})
	results, err := project.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Recording failed: %v", err)
	}

	fmt.Printf("[+++] Done! %d recordings in %s\n", len(results), cfg.RecordDir)
}

func serve(ctx context.Context, cfg *config.Config, cams []registry.Camera) {
	reg := registry.New(cams, cfg.PinnedCamera)
	feeds := feed.NewManager(cfg, reg)
	al := alerts.NewFeed(alerts.Seed(time.Now()))
	srv := web.NewServer(cfg, feeds, al)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feeds.Run(ctx) })
	g.Go(func() error { return al.Run(ctx, cfg.AlertEvery(), scene.NewRand()) })
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil {
		log.Fatalf("[-] %v", err)
	}
	fmt.Println("[*] Stopped")
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("camera id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
