// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Converts whole sample buffers to a canonical rate after decoding
package resample

import (
	"fmt"

	"github.com/cassette-audio/cassette-go/pkg/audio"
)

// Convert resamples a whole buffer to the target rate using linear interpolation.
// The buffer is returned unchanged when the rates already match.
func Convert(buf *audio.SampleBuffer, targetRate int) (*audio.SampleBuffer, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("invalid target rate: %d", targetRate)
	}
	if buf.SampleRate == targetRate {
		return buf, nil
	}

	ratio := float64(buf.SampleRate) / float64(targetRate)
	inFrames := buf.Frames()
	outFrames := int(float64(inFrames) / ratio)
	if outFrames == 0 {
		return nil, audio.ErrEmptyStream
	}

	data := make([][]float32, buf.Channels())
	for ch, in := range buf.Data {
		out := make([]float32, outFrames)
		for i := range out {
			pos := float64(i) * ratio
			idx := int(pos)

			// Past the last pair there is nothing to interpolate towards
			if idx >= inFrames-1 {
				out[i] = in[inFrames-1]
				continue
			}

			frac := float32(pos - float64(idx))
			out[i] = in[idx]*(1-frac) + in[idx+1]*frac
		}
		data[ch] = out
	}

	converted, err := audio.NewSampleBuffer(data, targetRate)
	if err != nil {
		return nil, err
	}
	converted.Format = buf.Format
	converted.Format.SampleRate = targetRate
	return converted, nil
}
