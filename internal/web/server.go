// Package web serves the camera dashboard, JSON API and MJPEG streams.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/camsim/internal/alerts"
	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/feed"
	"github.com/ivlev/camsim/internal/system"
)

//go:embed templates/*.html
var templates embed.FS

type Server struct {
	cfg        *config.Config
	feeds      *feed.Manager
	alerts     *alerts.Feed
	stats      func(ctx context.Context) (system.Stats, error)
	Router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, feeds *feed.Manager, al *alerts.Feed) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	s := &Server{
		cfg:    cfg,
		feeds:  feeds,
		alerts: al,
		stats: func(ctx context.Context) (system.Stats, error) {
			return system.CollectStats(ctx, 0)
		},
		Router: r,
	}
	s.SetupRoutes()
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router,
	}

	log.Printf("[WEB] Listening on %s", s.cfg.Addr)

	errc := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("[WEB] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.httpServer.Close()
	}
	return nil
}

func (s *Server) SetupRoutes() {
	var route *gin.RouterGroup
	if s.cfg.Auth.Enabled() {
		route = s.Router.Group("/", gin.BasicAuth(gin.Accounts{
			s.cfg.Auth.User: s.cfg.Auth.Password,
		}))
	} else {
		route = s.Router.Group("/")
	}
	route.GET("/", s.IndexHandler)

	api := route.Group("/api")
	api.GET("/cameras", s.ListCameras)
	api.GET("/cameras/:id", s.GetCamera)
	api.GET("/cameras/:id/snapshot", s.SnapHandler)
	api.GET("/cameras/:id/stream", s.StreamHandler)
	api.GET("/cameras/:id/qr", s.QRHandler)
	api.POST("/cameras/:id/toggle", s.ToggleHandler)
	api.POST("/cameras/:id/status", s.SetStatus)

	api.GET("/alerts", s.ListAlerts)
	api.POST("/alerts/:id/seen", s.MarkSeen)

	api.GET("/stats", s.StatsHandler)
}
