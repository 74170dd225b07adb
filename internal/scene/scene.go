package scene

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// Rand is the single source of randomness for scene generation and frame
// composition. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a time-seeded source.
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Environment selects the background set and the post-processing effect.
type Environment string

const (
	Outdoor Environment = "outdoor"
	Indoor  Environment = "indoor"
	Thermal Environment = "thermal"
	Night   Environment = "night"
)

// ParseEnvironment never fails: anything unrecognised renders as outdoor.
func ParseEnvironment(s string) Environment {
	switch env := Environment(strings.ToLower(strings.TrimSpace(s))); env {
	case Indoor, Thermal, Night:
		return env
	default:
		return Outdoor
	}
}

type ObjectKind string

const (
	Person  ObjectKind = "person"
	Vehicle ObjectKind = "vehicle"
	Animal  ObjectKind = "animal"
)

var objectKinds = []ObjectKind{Person, Vehicle, Animal}

// Object is a simulated moving entity in surface-local coordinates.
type Object struct {
	X, Y    float64
	Size    float64
	Speed   float64 // pixels per tick
	Heading float64 // radians
	Kind    ObjectKind
}

// Step advances the object one tick and bounces it off the surface edges.
// Each axis is mirrored independently, then the position is clamped.
func (o *Object) Step(width, height float64) {
	o.X += math.Cos(o.Heading) * o.Speed
	o.Y += math.Sin(o.Heading) * o.Speed

	if o.X < 0 || o.X > width {
		o.Heading = math.Pi - o.Heading
	}
	if o.Y < 0 || o.Y > height {
		o.Heading = -o.Heading
	}

	o.X = clamp(o.X, 0, width)
	o.Y = clamp(o.Y, 0, height)
}

type ElementKind string

const (
	Building ElementKind = "building"
	Tree     ElementKind = "tree"
	Road     ElementKind = "road"
	Desk     ElementKind = "desk"
	Chair    ElementKind = "chair"
	Wall     ElementKind = "wall"
)

// Element is a static decorative feature of the scene.
type Element struct {
	X, Y, W, H float64
	Kind       ElementKind
}

// Scene is the model one renderer owns. It is not safe for concurrent use.
type Scene struct {
	Width, Height float64
	Env           Environment
	Background    []Element
	Objects       []*Object
}

// New builds a scene for the given surface and environment.
func New(width, height int, env Environment, rng Rand) *Scene {
	w, h := float64(width), float64(height)
	return &Scene{
		Width:      w,
		Height:     h,
		Env:        env,
		Background: Background(w, h, env),
		Objects:    SpawnObjects(w, h, rng),
	}
}

// Background returns the fixed element set of an environment. Thermal and
// night cameras have none; their look comes from post effects.
func Background(width, height float64, env Environment) []Element {
	switch env {
	case Outdoor:
		return []Element{
			{X: 50, Y: 50, W: 200, H: 150, Kind: Building},
			{X: 400, Y: 80, W: 180, H: 120, Kind: Building},
			{X: 0, Y: 200, W: width, H: 20, Kind: Road},
			{X: 300, Y: 30, W: 50, H: 80, Kind: Tree},
			{X: 100, Y: 30, W: 40, H: 70, Kind: Tree},
		}
	case Indoor:
		return []Element{
			{X: 0, Y: 0, W: width, H: height, Kind: Wall},
			{X: 100, Y: 150, W: 120, H: 80, Kind: Desk},
			{X: 250, Y: 180, W: 50, H: 60, Kind: Chair},
			{X: 400, Y: 150, W: 120, H: 80, Kind: Desk},
			{X: 450, Y: 180, W: 50, H: 60, Kind: Chair},
		}
	default:
		return nil
	}
}

// SpawnObjects creates between one and three objects. The draw order from
// rng is fixed: count, then x, y, size, speed, heading, kind per object.
func SpawnObjects(width, height float64, rng Rand) []*Object {
	count := int(rng.Float64()*3) + 1
	if count > 3 {
		count = 3
	}

	objects := make([]*Object, 0, count)
	for i := 0; i < count; i++ {
		o := &Object{
			X:       rng.Float64() * width,
			Y:       rng.Float64() * height,
			Size:    rng.Float64()*20 + 10,
			Speed:   rng.Float64()*1 + 0.5,
			Heading: rng.Float64() * math.Pi * 2,
		}
		k := int(rng.Float64() * float64(len(objectKinds)))
		if k >= len(objectKinds) {
			k = len(objectKinds) - 1
		}
		o.Kind = objectKinds[k]
		objects = append(objects, o)
	}
	return objects
}

// Step advances every object one tick.
func (s *Scene) Step() {
	for _, o := range s.Objects {
		o.Step(s.Width, s.Height)
	}
}

// Count returns how many background elements of the given kind exist.
func (s *Scene) Count(kind ElementKind) int {
	n := 0
	for _, e := range s.Background {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
