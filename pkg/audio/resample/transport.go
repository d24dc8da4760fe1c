// ABOUTME: Variable-speed transport reading interpolated frames from a sample buffer
// ABOUTME: Applies per-channel fractional delays and reports end of stream
package resample

import (
	"math"

	"github.com/cassette-audio/cassette-go/pkg/audio"
)

// Transport maps a fractional playback position to interpolated samples
type Transport struct {
	buf *audio.SampleBuffer
}

// NewTransport creates a transport over a loaded buffer
func NewTransport(buf *audio.SampleBuffer) *Transport {
	return &Transport{buf: buf}
}

// DelaySamples converts a delay in milliseconds to a fractional sample offset
func DelaySamples(ms float64, sampleRate int) float64 {
	return ms * float64(sampleRate) / 1000.0
}

// Render fills dst[ch][0:frames] with samples read at position + i*speed,
// each channel shifted back by delays[ch] samples (missing entries mean no delay).
// Reads before the start produce silence and reads past the last
// interpolation index hold the final sample.
// It returns the advanced position and whether it reached the end of the buffer.
func (t *Transport) Render(dst [][]float32, frames int, position, speed float64, delays []float64) (float64, bool) {
	total := t.buf.Frames()
	maxIndex := total - 1

	for ch, out := range dst {
		data := t.buf.Data[ch]
		delay := 0.0
		if ch < len(delays) {
			delay = delays[ch]
		}

		for i := 0; i < frames; i++ {
			pos := position + float64(i)*speed - delay
			idx := int(math.Floor(pos))

			switch {
			case idx < 0:
				out[i] = 0
			case idx >= maxIndex:
				out[i] = data[maxIndex]
			default:
				frac := float32(pos - float64(idx))
				out[i] = data[idx]*(1-frac) + data[idx+1]*frac
			}
		}
	}

	next := position + float64(frames)*speed
	return next, next >= float64(total)
}
