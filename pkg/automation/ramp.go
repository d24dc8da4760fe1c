// ABOUTME: Time-bounded parameter ramps with discrete steps and easing
// ABOUTME: Moves a small vector of values from a start to a target over N steps
package automation

import (
	"math"
	"time"
)

// DefaultSteps is used when a ramp is started with a non-positive step count
const DefaultSteps = 50

// Easing maps linear progress t in [0,1] to eased progress
type Easing func(t float64) float64

// SmoothStep is the cubic ease-in/ease-out curve t*t*(3-2t)
func SmoothStep(t float64) float64 {
	return t * t * (3.0 - 2.0*t)
}

// EaseOutCubic decelerates into the target: 1-(1-t)^3
func EaseOutCubic(t float64) float64 {
	u := 1.0 - t
	return 1.0 - u*u*u
}

// Linear applies no easing
func Linear(t float64) float64 {
	return t
}

// Ramp interpolates from Start to Target in Steps discrete increments
// spread evenly over Duration
type Ramp struct {
	Start     []float64
	Target    []float64
	Steps     int
	Duration  time.Duration
	Easing    Easing
	StartedAt time.Time
}

// NewRamp creates a ramp starting now from the given values.
// Start and target are copied so callers may reuse their slices.
func NewRamp(start, target []float64, duration time.Duration, steps int, easing Easing, now time.Time) *Ramp {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if easing == nil {
		easing = SmoothStep
	}

	return &Ramp{
		Start:     append([]float64(nil), start...),
		Target:    append([]float64(nil), target...),
		Steps:     steps,
		Duration:  duration,
		Easing:    easing,
		StartedAt: now,
	}
}

// Step returns the step reached at the given time, in [0, Steps]
func (r *Ramp) Step(now time.Time) int {
	if r.Duration <= 0 {
		return r.Steps
	}

	elapsed := now.Sub(r.StartedAt)
	if elapsed <= 0 {
		return 0
	}

	step := int(math.Floor(float64(elapsed) / float64(r.Duration) * float64(r.Steps)))
	if step > r.Steps {
		step = r.Steps
	}
	return step
}

// Values returns the interpolated values at the given time and whether the
// ramp has reached its final step. The final step yields Target exactly.
func (r *Ramp) Values(now time.Time) ([]float64, bool) {
	step := r.Step(now)
	if step >= r.Steps {
		return append([]float64(nil), r.Target...), true
	}

	eased := r.Easing(float64(step) / float64(r.Steps))
	out := make([]float64, len(r.Target))
	for i := range out {
		out[i] = r.Start[i] + (r.Target[i]-r.Start[i])*eased
	}
	return out, false
}

// MaxStepDelta is the largest change any value makes between two adjacent steps
func (r *Ramp) MaxStepDelta() float64 {
	maxDelta := 0.0
	prev := 0.0
	for step := 1; step <= r.Steps; step++ {
		cur := r.Easing(float64(step) / float64(r.Steps))
		for i := range r.Target {
			d := math.Abs((r.Target[i] - r.Start[i]) * (cur - prev))
			if d > maxDelta {
				maxDelta = d
			}
		}
		prev = cur
	}
	return maxDelta
}
