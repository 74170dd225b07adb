// Package scenetest provides scripted random sources for deterministic tests.
package scenetest

// Seq replays a fixed list of values, wrapping around when exhausted.
type Seq struct {
	vals  []float64
	pos   int
	Calls int
}

func NewSeq(vals ...float64) *Seq {
	if len(vals) == 0 {
		vals = []float64{0}
	}
	return &Seq{vals: vals}
}

func (s *Seq) Float64() float64 {
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	s.Calls++
	return v
}

// Const always returns the same value.
type Const float64

func (c Const) Float64() float64 { return float64(c) }
