// Package alerts simulates the detection feed shown next to the camera grid.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/camsim/internal/scene"
)

var ErrNotFound = errors.New("alert not found")

type Type string

const (
	Motion  Type = "motion"
	Crowd   Type = "crowd"
	Person  Type = "person"
	Vehicle Type = "vehicle"
	Device  Type = "device"
	Alarm   Type = "alarm"
)

var types = []Type{Motion, Crowd, Person, Vehicle, Device, Alarm}

// ParseType reports whether s names a known alert type.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range types {
		if k == t {
			return t, true
		}
	}
	return "", false
}

// Title is the short heading of an alert card.
func (t Type) Title() string {
	switch t {
	case Motion, Person, Vehicle:
		return "Movimiento"
	case Crowd:
		return "Multitud"
	case Device:
		return "Dispositivo"
	default:
		return "Alarma"
	}
}

// Tag is the category label of an alert card.
func (t Type) Tag() string {
	switch t {
	case Motion:
		return "Detección de movimiento"
	case Crowd:
		return "Detección de multitud"
	case Person:
		return "Detección de persona"
	case Vehicle:
		return "Detección de vehículo"
	case Device:
		return "Alerta de dispositivo"
	default:
		return "Alarma de seguridad"
	}
}

func (t Type) noun() string {
	switch t {
	case Motion:
		return "Movimiento"
	case Crowd:
		return "Multitud"
	case Person:
		return "Persona"
	case Vehicle:
		return "Vehículo"
	case Device:
		return "Dispositivo"
	default:
		return "Alarma"
	}
}

type Alert struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Subtype    string    `json:"subtype,omitempty"`
	Location   string    `json:"location"`
	Timestamp  time.Time `json:"timestamp"`
	CameraID   int       `json:"cameraId"`
	CameraName string    `json:"cameraName"`
	Details    string    `json:"details"`
	New        bool      `json:"isNew"`
}

// Time renders the timestamp as 24h HH:MM.
func (a Alert) Time() string { return a.Timestamp.Format("15:04") }

func (a Alert) matches(q string) bool {
	if q == "" {
		return true
	}
	for _, s := range []string{a.Details, a.CameraName, a.Location} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Names of the cameras new alerts are attributed to, by id-1.
var cameraNames = []string{
	"Torre de Transmisión CD41-E",
	"Subestación Eléctrica CD62-E",
	"Línea de Transmisión CD51-E",
	"Transformador Principal CP81-E",
	"Estación de Control CB61-E",
	"Cruce de Líneas CD41-E",
}

// Seed returns the mock alerts the feed starts with, stamped relative to now.
func Seed(now time.Time) []Alert {
	ago := func(m int) time.Time { return now.Add(-time.Duration(m) * time.Minute) }
	mk := func(t Type, sub string, min, cam int, details string, isNew bool) Alert {
		return Alert{
			ID:         uuid.NewString(),
			Type:       t,
			Subtype:    sub,
			Location:   "Exterior",
			Timestamp:  ago(min),
			CameraID:   cam,
			CameraName: cameraNames[cam-1],
			Details:    details,
			New:        isNew,
		}
	}
	return []Alert{
		mk(Motion, "", 5, 1, "Movimiento detectado en área restringida", true),
		mk(Crowd, "vehicle", 10, 2, "5 o más vehículos", true),
		mk(Crowd, "person", 15, 3, "2 o más personas", true),
		mk(Vehicle, "", 20, 4, "Vehículos detectados", false),
		mk(Person, "", 25, 5, "Personas detectadas", false),
		mk(Device, "", 30, 6, "Dispositivo de entrada auxiliar de puerta modificado", false),
		mk(Motion, "", 35, 1, "Movimiento detectado", false),
	}
}

const (
	// MaxAlerts bounds the feed; older alerts fall off the end.
	MaxAlerts = 20
	// NewAlertChance is the per-round probability of a new alert.
	NewAlertChance = 0.1
)

// Feed is safe for concurrent use.
type Feed struct {
	mu     sync.RWMutex
	alerts []Alert
	clock  func() time.Time
}

// NewFeed starts from seed, newest first.
func NewFeed(seed []Alert) *Feed {
	return &Feed{alerts: append([]Alert(nil), seed...), clock: time.Now}
}

// List returns alerts of the given type ("" or "all" for any) whose details,
// camera name or location contain q, case-insensitively.
func (f *Feed) List(filter, q string) []Alert {
	filter = strings.ToLower(strings.TrimSpace(filter))
	q = strings.ToLower(strings.TrimSpace(q))

	f.mu.RLock()
	defer f.mu.RUnlock()
	out := []Alert{}
	for _, a := range f.alerts {
		if filter != "" && filter != "all" && string(a.Type) != filter {
			continue
		}
		if !a.matches(q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MarkSeen clears the new flag of one alert.
func (f *Feed) MarkSeen(id string) (Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			f.alerts[i].New = false
			return f.alerts[i], nil
		}
	}
	return Alert{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
}

func (f *Feed) Unseen() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, a := range f.alerts {
		if a.New {
			n++
		}
	}
	return n
}

// Push prepends a and trims the feed to MaxAlerts.
func (f *Feed) Push(a Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append([]Alert{a}, f.alerts...)
	if len(f.alerts) > MaxAlerts {
		f.alerts = f.alerts[:MaxAlerts]
	}
}

// Generate runs one round of the alert simulation. With NewAlertChance it
// pushes a random alert for one of the first six cameras.
func (f *Feed) Generate(rng scene.Rand) (Alert, bool) {
	if rng.Float64() >= NewAlertChance {
		return Alert{}, false
	}
	t := types[pick(rng, len(types))]
	cam := pick(rng, len(cameraNames)) + 1

	a := Alert{
		ID:         uuid.NewString(),
		Type:       t,
		Location:   "Exterior",
		Timestamp:  f.clock(),
		CameraID:   cam,
		CameraName: cameraNames[cam-1],
		Details:    t.noun() + " detectado",
		New:        true,
	}
	f.Push(a)
	return a, true
}

// Run calls Generate every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, every time.Duration, rng scene.Rand) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if a, ok := f.Generate(rng); ok {
				log.Printf("[*] alert %s on %s: %s", a.Type, a.CameraName, a.Details)
			}
		}
	}
}

func pick(rng scene.Rand, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
