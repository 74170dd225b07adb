package web

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/ivlev/camsim/internal/alerts"
	"github.com/ivlev/camsim/internal/feed"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/system"
)

type cameraView struct {
	registry.Camera
	Code        string `json:"code"`
	Environment string `json:"environment"`
	Playing     bool   `json:"playing"`
}

type alertView struct {
	alerts.Alert
	Title string `json:"title"`
	Tag   string `json:"tag"`
	Clock string `json:"time"`
}

type feedStats struct {
	CameraID    int    `json:"cameraId"`
	Published   uint64 `json:"published"`
	Subscribers int    `json:"subscribers"`
	Playing     bool   `json:"playing"`
	Offline     bool   `json:"offline"`
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func (s *Server) view(cam registry.Camera) cameraView {
	v := cameraView{Camera: cam, Code: cam.Code(), Environment: string(cam.Environment())}
	if p, err := s.feeds.Player(cam.ID); err == nil {
		v.Playing = p.Playing()
	}
	return v
}

func viewAlert(a alerts.Alert) alertView {
	return alertView{Alert: a, Title: a.Type.Title(), Tag: a.Type.Tag(), Clock: a.Time()}
}

// player resolves the :id parameter, writing 400 or 404 on failure.
func (s *Server) player(c *gin.Context) (*feed.Player, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("invalid camera id %q", c.Param("id")))
		return nil, false
	}
	p, err := s.feeds.Player(id)
	if err != nil {
		abort(c, http.StatusNotFound, err)
		return nil, false
	}
	return p, true
}

func (s *Server) IndexHandler(c *gin.Context) {
	reg := s.feeds.Registry()
	online, offline := reg.Counts()

	list := s.alerts.List("all", "")
	views := make([]alertView, 0, len(list))
	for _, a := range list {
		views = append(views, viewAlert(a))
	}

	noCache(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Cameras": reg.All(),
		"Online":  online,
		"Offline": offline,
		"Unseen":  s.alerts.Unseen(),
		"Alerts":  views,
		"Version": s.cfg.BuildVersion,
	})
}

func (s *Server) ListCameras(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", "all", string(registry.Online), string(registry.Offline):
	default:
		abort(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
		return
	}

	cams := s.feeds.Registry().Filter(status)
	out := make([]cameraView, 0, len(cams))
	for _, cam := range cams {
		out = append(out, s.view(cam))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) GetCamera(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	cam, err := s.feeds.Registry().Get(p.ID())
	if err != nil {
		abort(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, s.view(cam))
}

func (s *Server) SnapHandler(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	frame, ok := p.Snapshot()
	if !ok {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	noCache(c)
	c.Data(http.StatusOK, "image/jpeg", frame.JPEG)
}

// StreamHandler writes every new frame of one camera as a part of a
// multipart/x-mixed-replace response until the client goes away.
func (s *Server) StreamHandler(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	subID := uuid.NewString()
	frames, err := p.Subscribe(subID)
	if err != nil {
		abort(c, http.StatusServiceUnavailable, err)
		return
	}
	defer func() {
		if err := p.Unsubscribe(subID); err != nil && !errors.Is(err, feed.ErrClosed) {
			log.Printf("[WEB] unsubscribe %s: %v", subID, err)
		}
	}()

	mw := multipart.NewWriter(c.Writer)
	noCache(c)
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	c.Status(http.StatusOK)

	write := func(f feed.Frame) error {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(f.JPEG))},
		})
		if err != nil {
			return err
		}
		if _, err := part.Write(f.JPEG); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if f, ok := p.Snapshot(); ok {
		if err := write(f); err != nil {
			return
		}
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := write(f); err != nil {
				return
			}
		}
	}
}

func (s *Server) ToggleHandler(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	playing, err := p.Toggle(c.Request.Context())
	if err != nil {
		abort(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": p.ID(), "playing": playing})
}

func (s *Server) SetStatus(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	var req struct {
		Status registry.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if req.Status != registry.Online && req.Status != registry.Offline {
		abort(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", req.Status))
		return
	}

	cam, err := s.feeds.SetStatus(c.Request.Context(), p.ID(), req.Status)
	if err != nil {
		abort(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, s.view(cam))
}

// QRHandler returns a PNG code linking to the camera's live stream.
func (s *Server) QRHandler(c *gin.Context) {
	p, ok := s.player(c)
	if !ok {
		return
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s/api/cameras/%d/stream", scheme, c.Request.Host, p.ID())

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) ListAlerts(c *gin.Context) {
	filter := c.DefaultQuery("filter", "all")
	if filter != "all" {
		if _, ok := alerts.ParseType(filter); !ok {
			abort(c, http.StatusBadRequest, fmt.Errorf("unknown alert type %q", filter))
			return
		}
	}

	list := s.alerts.List(filter, c.Query("q"))
	out := make([]alertView, 0, len(list))
	for _, a := range list {
		out = append(out, viewAlert(a))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out, "unseen": s.alerts.Unseen()})
}

func (s *Server) MarkSeen(c *gin.Context) {
	a, err := s.alerts.MarkSeen(c.Param("id"))
	if err != nil {
		abort(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, viewAlert(a))
}

func (s *Server) StatsHandler(c *gin.Context) {
	host, err := s.stats(c.Request.Context())
	if err != nil {
		log.Printf("[WEB] incomplete host stats: %v", err)
	}

	players := s.feeds.Players()
	feeds := make([]feedStats, 0, len(players))
	for _, p := range players {
		feeds = append(feeds, feedStats{
			CameraID:    p.ID(),
			Published:   p.Hub().Published(),
			Subscribers: p.Hub().Subscribers(),
			Playing:     p.Playing(),
			Offline:     p.Offline(),
		})
	}

	noCache(c)
	c.JSON(http.StatusOK, struct {
		Host  system.Stats `json:"host"`
		Feeds []feedStats  `json:"feeds"`
	}{host, feeds})
}
