package renderer

import (
	"time"
)

// PulsePeriod is one full fade-out and fade-in of the REC dot.
const PulsePeriod = 2 * time.Second

// Pulse returns the REC dot opacity at elapsed time since the renderer
// started. The opacity eases from 1 down to 0.5 and back every PulsePeriod.
func Pulse(elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = -elapsed
	}
	phase := float64(elapsed%PulsePeriod) / float64(PulsePeriod)

	// triangle wave: 0 -> 1 -> 0
	t := phase * 2
	if phase >= 0.5 {
		t = (1 - phase) * 2
	}

	return lerp(1, 0.5, easeInOutCubic(t))
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
