// ABOUTME: Block peak meter normalized to the track's overall peak
// ABOUTME: Written by the render callback and read lock-free by UI pollers
package meter

import (
	"math"
	"sync/atomic"
)

// Meter tracks the loudness of the most recent block
type Meter struct {
	trackPeak float64
	level     atomic.Uint32 // float32 bits
}

// New creates a meter for a track with the given overall peak
func New(trackPeak float64) *Meter {
	if trackPeak <= 0 {
		trackPeak = 1e-6
	}
	return &Meter{trackPeak: trackPeak}
}

// Measure records the peak of a block and returns the normalized level
func (m *Meter) Measure(block [][]float32) float32 {
	peak := 0.0
	for _, ch := range block {
		for _, s := range ch {
			if v := math.Abs(float64(s)); v > peak {
				peak = v
			}
		}
	}

	level := float32(math.Min(peak/m.trackPeak, 1))
	m.level.Store(math.Float32bits(level))
	return level
}

// Level returns the last measured level in [0,1]
func (m *Meter) Level() float32 {
	return math.Float32frombits(m.level.Load())
}

// Reset drops the level back to silence
func (m *Meter) Reset() {
	m.level.Store(0)
}
