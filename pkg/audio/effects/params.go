// ABOUTME: Effect parameter values read by the chain on every block
// ABOUTME: Plain values so a whole parameter set can be snapshotted by copy
package effects

// MidpassParams configures the band-pass filter stage
type MidpassParams struct {
	Enabled  bool
	CenterHz float64
	Q        float64
	Mix      float64 // dry/wet balance in [0,1]
	Gain     float64 // applied to the filtered signal only
}

// BitcrushParams configures the hold-and-quantize stage
type BitcrushParams struct {
	Enabled    bool
	Bits       int // clamped to [1,24] when rendering
	Downsample int // hold length in frames, at least 1
	Mix        float64
}

// Params is the full effect configuration for one block
type Params struct {
	Midpass  MidpassParams
	Bitcrush BitcrushParams
}

// DefaultParams returns the configuration every track starts from
func DefaultParams() Params {
	return Params{
		Midpass: MidpassParams{
			CenterHz: 1000,
			Q:        1,
			Mix:      0,
			Gain:     1,
		},
		Bitcrush: BitcrushParams{
			Bits:       16,
			Downsample: 1,
			Mix:        0,
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
