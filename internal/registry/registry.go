// Package registry keeps the in-memory camera table and simulates its
// connectivity changes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/camsim/internal/scene"
)

var ErrNotFound = errors.New("camera not found")

type Status string

const (
	Online  Status = "online"
	Offline Status = "offline"
)

// Last-motion labels set when a camera changes state.
const (
	LabelNow      = "Ahora mismo"
	LabelTwoHours = "2 horas atrás"
)

var motionLabels = []string{LabelNow, "1 min atrás", "2 min atrás", "3 min atrás", "5 min atrás"}

// Camera is one monitored site.
type Camera struct {
	ID         int    `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Location   string `yaml:"location" json:"location"`
	Status     Status `yaml:"status" json:"status"`
	LastMotion string `yaml:"last_motion" json:"lastMotion"`
	Type       string `yaml:"type,omitempty" json:"type"`
}

// Environment returns the explicit type when set, otherwise one derived
// from the id: multiples of 4 are night, of 3 thermal, even ids indoor.
func (c Camera) Environment() scene.Environment {
	if c.Type != "" {
		return scene.ParseEnvironment(c.Type)
	}
	switch {
	case c.ID%4 == 0:
		return scene.Night
	case c.ID%3 == 0:
		return scene.Thermal
	case c.ID%2 == 0:
		return scene.Indoor
	default:
		return scene.Outdoor
	}
}

func (c Camera) Offline() bool { return c.Status != Online }

// Code is the identity shown by the renderer, e.g. CCTV-3.
func (c Camera) Code() string { return fmt.Sprintf("CCTV-%d", c.ID) }

// Defaults returns the built-in camera table.
func Defaults() []Camera {
	return []Camera{
		{ID: 1, Name: "Estacionamiento CD41-E", Location: "Exterior", Status: Online, LastMotion: "2 min atrás"},
		{ID: 2, Name: "Subestación Eléctrica CD62-E", Location: "Exterior", Status: Online, LastMotion: LabelNow},
		{ID: 3, Name: "Línea de Transmisión CD51-E", Location: "Exterior", Status: Online, LastMotion: "1 min atrás"},
		{ID: 4, Name: "Transformador Principal CP81-E", Location: "Exterior", Status: Online, LastMotion: "5 min atrás"},
		{ID: 5, Name: "Estación de Control CB61-E", Location: "Interior", Status: Online, LastMotion: "3 min atrás"},
		{ID: 6, Name: "Cruce de Líneas CD41-E", Location: "Exterior", Status: Offline, LastMotion: LabelTwoHours},
		{ID: 7, Name: "Subestación Sur CD31-E", Location: "Exterior", Status: Offline, LastMotion: "2 min atrás"},
		{ID: 8, Name: "Estación Este CD22-E", Location: "Exterior", Status: Online, LastMotion: LabelNow},
	}
}

type file struct {
	Cameras []Camera `yaml:"cameras"`
}

// Load reads a camera table from YAML. An empty path returns Defaults().
func Load(path string) ([]Camera, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cameras: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cameras %s: %w", path, err)
	}

	seen := make(map[int]bool, len(f.Cameras))
	for i, c := range f.Cameras {
		if seen[c.ID] {
			return nil, fmt.Errorf("parse cameras %s: duplicate id %d", path, c.ID)
		}
		seen[c.ID] = true
		if c.Status != Offline {
			f.Cameras[i].Status = Online
		}
	}
	return f.Cameras, nil
}

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	cams   []Camera
	pinned int
}

// New copies cams. The camera with id pinned never flaps; 0 pins none.
func New(cams []Camera, pinned int) *Registry {
	return &Registry{cams: append([]Camera(nil), cams...), pinned: pinned}
}

func (r *Registry) All() []Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Camera(nil), r.cams...)
}

func (r *Registry) Get(id int) (Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cams {
		if c.ID == id {
			return c, nil
		}
	}
	return Camera{}, fmt.Errorf("camera %d: %w", id, ErrNotFound)
}

// Filter returns cameras with the given status. "" and "all" match every
// camera.
func (r *Registry) Filter(status string) []Camera {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return r.All()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Camera
	for _, c := range r.cams {
		if string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns how many cameras are online and offline.
func (r *Registry) Counts() (online, offline int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cams {
		if c.Offline() {
			offline++
		} else {
			online++
		}
	}
	return online, offline
}

// SetStatus forces a camera's connectivity.
func (r *Registry) SetStatus(id int, s Status) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.cams {
		if r.cams[i].ID == id {
			r.cams[i].setStatus(s)
			return r.cams[i], nil
		}
	}
	return Camera{}, fmt.Errorf("camera %d: %w", id, ErrNotFound)
}

func (c *Camera) setStatus(s Status) {
	c.Status = s
	if s == Online {
		c.LastMotion = LabelNow
	} else {
		c.LastMotion = LabelTwoHours
	}
}

// FlapChance is the per-round probability that one camera changes state.
const FlapChance = 0.05

// Flap runs one round of the connectivity simulation. With FlapChance a
// random camera other than the pinned one flips online/offline. The changed
// camera is returned with ok set.
func (r *Registry) Flap(rng scene.Rand) (Camera, bool) {
	if rng.Float64() >= FlapChance {
		return Camera{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cams) == 0 {
		return Camera{}, false
	}
	i := int(rng.Float64() * float64(len(r.cams)))
	if i >= len(r.cams) {
		i = len(r.cams) - 1
	}
	c := &r.cams[i]
	if c.ID == r.pinned {
		return Camera{}, false
	}
	if c.Offline() {
		c.setStatus(Online)
	} else {
		c.setStatus(Offline)
	}
	return *c, true
}

// MotionChance is the per-camera probability of a new last-motion label.
const MotionChance = 0.3

// RefreshMotion relabels the last motion of online cameras at random.
func (r *Registry) RefreshMotion(rng scene.Rand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.cams {
		if r.cams[i].Offline() || rng.Float64() >= MotionChance {
			continue
		}
		k := int(rng.Float64() * float64(len(motionLabels)))
		if k >= len(motionLabels) {
			k = len(motionLabels) - 1
		}
		r.cams[i].LastMotion = motionLabels[k]
	}
}

// Run drives Flap every flapEvery and RefreshMotion every motionEvery until
// ctx is done. onChange is called for every camera that flipped.
func (r *Registry) Run(ctx context.Context, flapEvery, motionEvery time.Duration, rng scene.Rand, onChange func(Camera)) error {
	flap := time.NewTicker(flapEvery)
	defer flap.Stop()
	motion := time.NewTicker(motionEvery)
	defer motion.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-flap.C:
			if c, ok := r.Flap(rng); ok {
				log.Printf("[*] %s (%d) is now %s", c.Name, c.ID, c.Status)
				if onChange != nil {
					onChange(c)
				}
			}
		case <-motion.C:
			r.RefreshMotion(rng)
		}
	}
}
