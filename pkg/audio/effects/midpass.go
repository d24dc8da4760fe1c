// ABOUTME: Band-pass biquad filter stage blended with the dry signal
// ABOUTME: Direct Form I with per-channel history and cached RBJ coefficients
package effects

import "math"

// MinQ keeps the band-pass bandwidth finite
const MinQ = 0.001

// Midpass is a second-order band-pass filter (constant 0 dB peak gain)
type Midpass struct {
	sampleRate float64

	// Coefficients normalized by a0
	b0, b1, b2 float64
	a1, a2     float64

	// Parameters the coefficients were computed for
	center, q float64
	valid     bool

	// State variables (per-channel)
	x1, x2 []float64
	y1, y2 []float64
}

// NewMidpass creates a filter for the given rate and channel count
func NewMidpass(sampleRate, channels int) *Midpass {
	return &Midpass{
		sampleRate: float64(sampleRate),
		x1:         make([]float64, channels),
		x2:         make([]float64, channels),
		y1:         make([]float64, channels),
		y2:         make([]float64, channels),
	}
}

// Name returns the stage name
func (m *Midpass) Name() string {
	return "midpass"
}

// Enabled reports whether the stage runs for these parameters
func (m *Midpass) Enabled(p *Params) bool {
	return p.Midpass.Enabled
}

// Reset clears the filter history
func (m *Midpass) Reset() {
	for i := range m.x1 {
		m.x1[i] = 0
		m.x2[i] = 0
		m.y1[i] = 0
		m.y2[i] = 0
	}
}

// SetBandpass recomputes coefficients when center or Q changed
func (m *Midpass) SetBandpass(center, q float64) {
	nyquist := m.sampleRate / 2
	center = clamp(center, 1, nyquist*0.99)
	q = math.Max(q, MinQ)

	if m.valid && center == m.center && q == m.q {
		return
	}

	omega := 2.0 * math.Pi * center / m.sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2.0 * q)

	a0 := 1.0 + alpha
	m.b0 = alpha / a0
	m.b1 = 0
	m.b2 = -alpha / a0
	m.a1 = -2.0 * cosOmega / a0
	m.a2 = (1.0 - alpha) / a0

	m.center = center
	m.q = q
	m.valid = true
}

// Process filters each channel in place in sample order
func (m *Midpass) Process(block [][]float32, p *Params) {
	m.SetBandpass(p.Midpass.CenterHz, p.Midpass.Q)
	mix := clamp(p.Midpass.Mix, 0, 1)
	gain := p.Midpass.Gain

	for ch, buf := range block {
		x1, x2 := m.x1[ch], m.x2[ch]
		y1, y2 := m.y1[ch], m.y2[ch]

		for i, s := range buf {
			x0 := float64(s)
			y0 := m.b0*x0 + m.b1*x1 + m.b2*x2 - m.a1*y1 - m.a2*y2

			x2, x1 = x1, x0
			y2, y1 = y1, y0

			buf[i] = float32((1-mix)*x0 + mix*y0*gain)
		}

		m.x1[ch], m.x2[ch] = x1, x2
		m.y1[ch], m.y2[ch] = y1, y2
	}
}
