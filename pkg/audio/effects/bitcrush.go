// ABOUTME: Bit-depth and sample-rate reduction stage
// ABOUTME: Per-channel sample-and-hold followed by quantization over [-1,1]
package effects

import "math"

// Bitcrush holds each input sample for Downsample frames and quantizes it
type Bitcrush struct {
	held    []float64
	counter []int
}

// NewBitcrush creates a crusher with per-channel hold state
func NewBitcrush(channels int) *Bitcrush {
	return &Bitcrush{
		held:    make([]float64, channels),
		counter: make([]int, channels),
	}
}

// Name returns the stage name
func (b *Bitcrush) Name() string {
	return "bitcrush"
}

// Enabled reports whether the stage runs; a zero mix is a no-op
func (b *Bitcrush) Enabled(p *Params) bool {
	return p.Bitcrush.Enabled && p.Bitcrush.Mix > 0
}

// Reset clears the hold state
func (b *Bitcrush) Reset() {
	for i := range b.held {
		b.held[i] = 0
		b.counter[i] = 0
	}
}

// Levels returns the number of quantization steps for a bit depth
func Levels(bits int) float64 {
	if bits < 1 {
		bits = 1
	}
	if bits > 24 {
		bits = 24
	}
	return float64(int(1)<<uint(bits) - 1)
}

// Quantize snaps v in [-1,1] to the nearest of levels evenly spaced values
func Quantize(v, levels float64) float64 {
	q := math.Round(((v+1.0)*0.5)*levels) / levels
	return q*2.0 - 1.0
}

// Process crushes each channel in place
func (b *Bitcrush) Process(block [][]float32, p *Params) {
	levels := Levels(p.Bitcrush.Bits)
	down := p.Bitcrush.Downsample
	if down < 1 {
		down = 1
	}
	mix := clamp(p.Bitcrush.Mix, 0, 1)

	for ch, buf := range block {
		held := b.held[ch]
		counter := b.counter[ch]

		for i, s := range buf {
			dry := float64(s)
			if counter <= 0 {
				held = dry
				counter = down - 1
			} else {
				counter--
			}

			wet := Quantize(held, levels)
			buf[i] = float32((1-mix)*dry + mix*wet)
		}

		b.held[ch] = held
		b.counter[ch] = counter
	}
}
