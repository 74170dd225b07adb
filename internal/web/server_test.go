package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/camsim/internal/alerts"
	"github.com/ivlev/camsim/internal/config"
	"github.com/ivlev/camsim/internal/feed"
	"github.com/ivlev/camsim/internal/registry"
	"github.com/ivlev/camsim/internal/renderer"
	"github.com/ivlev/camsim/internal/scene/scenetest"
	"github.com/ivlev/camsim/internal/system"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer runs a manager with small fast feeds for the duration of
// the test.
func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Width, cfg.Height = 32, 18
	cfg.FPS = 50

	reg := registry.New(registry.Defaults(), cfg.PinnedCamera)
	m := feed.NewManager(cfg, reg,
		feed.WithRendererOptions(func(int) []renderer.Option {
			return []renderer.Option{renderer.WithRand(scenetest.Const(0.5))}
		}),
		feed.WithRegistryRand(scenetest.Const(0.99)),
	)
	al := alerts.NewFeed(alerts.Seed(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	s := NewServer(cfg, m, al)
	s.stats = func(context.Context) (system.Stats, error) {
		return system.Stats{NumCPU: 2, Goroutines: 10}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})

	require.Eventually(t, func() bool {
		for _, p := range m.Players() {
			if _, ok := p.Snapshot(); !ok {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
	return s
}

func do(s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Estacionamiento CD41-E")
	assert.Contains(t, body, "/api/cameras/8/stream")
	assert.Contains(t, body, "6 en línea")
	assert.Contains(t, body, "3 alertas nuevas")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestListCameras(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		query string
		code  int
		count int
	}{
		{"", http.StatusOK, 8},
		{"?status=all", http.StatusOK, 8},
		{"?status=online", http.StatusOK, 6},
		{"?status=offline", http.StatusOK, 2},
		{"?status=broken", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(s, http.MethodGet, "/api/cameras"+tt.query, nil)
			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var got []cameraView
			decode(t, w, &got)
			assert.Len(t, got, tt.count)
		})
	}
}

func TestGetCamera(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/api/cameras/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	decode(t, w, &got)
	assert.Equal(t, float64(3), got["id"])
	assert.Equal(t, "CCTV-3", got["code"])
	assert.Equal(t, "thermal", got["environment"])
	assert.Equal(t, true, got["playing"])

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/cameras/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/cameras/abc", nil).Code)
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/api/cameras/1/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	img, err := jpeg.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestToggleAndStatus(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodPost, "/api/cameras/2/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		ID      int  `json:"id"`
		Playing bool `json:"playing"`
	}
	decode(t, w, &toggled)
	assert.Equal(t, 2, toggled.ID)
	assert.False(t, toggled.Playing)

	w = do(s, http.MethodPost, "/api/cameras/2/status", strings.NewReader(`{"status":"offline"}`))
	require.Equal(t, http.StatusOK, w.Code)
	var cam cameraView
	decode(t, w, &cam)
	assert.Equal(t, registry.Offline, cam.Status)
	assert.Equal(t, registry.LabelTwoHours, cam.LastMotion)

	p, err := s.feeds.Player(2)
	require.NoError(t, err)
	assert.True(t, p.Offline())

	assert.Equal(t, http.StatusBadRequest,
		do(s, http.MethodPost, "/api/cameras/2/status", strings.NewReader(`{"status":"dead"}`)).Code)
	assert.Equal(t, http.StatusBadRequest,
		do(s, http.MethodPost, "/api/cameras/2/status", strings.NewReader(`{}`)).Code)
}

func TestQR(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/api/cameras/4/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestAlerts(t *testing.T) {
	s := newTestServer(t, nil)

	var res struct {
		Alerts []alertView `json:"alerts"`
		Unseen int         `json:"unseen"`
	}
	w := do(s, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Len(t, res.Alerts, 7)
	assert.Equal(t, 3, res.Unseen)
	assert.Equal(t, "Movimiento", res.Alerts[0].Title)
	assert.Equal(t, "11:55", res.Alerts[0].Clock)

	w = do(s, http.MethodGet, "/api/alerts?filter=crowd", nil)
	decode(t, w, &res)
	assert.Len(t, res.Alerts, 2)

	w = do(s, http.MethodGet, "/api/alerts?q=PUERTA", nil)
	decode(t, w, &res)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, alerts.Device, res.Alerts[0].Type)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/alerts?filter=ufo", nil).Code)

	first := s.alerts.List("all", "")[0]
	w = do(s, http.MethodPost, "/api/alerts/"+first.ID+"/seen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.alerts.Unseen())
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/api/alerts/nope/seen", nil).Code)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Host  system.Stats `json:"host"`
		Feeds []feedStats  `json:"feeds"`
	}
	decode(t, w, &res)
	assert.Equal(t, 2, res.Host.NumCPU)
	require.Len(t, res.Feeds, 8)
	for _, f := range res.Feeds {
		assert.Positive(t, f.Published)
	}
	assert.True(t, res.Feeds[5].Offline, "camera 6 starts offline")
}

func TestBasicAuth(t *testing.T) {
	cfg := config.Default()
	cfg.Auth = config.Auth{User: "admin", Password: "secret"}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, do(s, http.MethodGet, "/api/cameras", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStream(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/cameras/1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/x-mixed-replace", mediaType)

	mr := multipart.NewReader(resp.Body, params["boundary"])
	for i := 0; i < 3; i++ {
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
		_, err = jpeg.Decode(part)
		require.NoError(t, err)
	}

	p, _ := s.feeds.Player(1)
	assert.Equal(t, 1, p.Hub().Subscribers())

	cancel()
	require.Eventually(t, func() bool { return p.Hub().Subscribers() == 0 },
		2*time.Second, 10*time.Millisecond)
}
