// ABOUTME: WAV audio decoder
// ABOUTME: Decodes integer PCM WAV files with go-audio
package decode

import (
	"fmt"
	"io"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes RIFF/WAVE integer PCM
type WAVDecoder struct{}

// NewWAV creates a WAV decoder
func NewWAV() *WAVDecoder {
	return &WAVDecoder{}
}

// Decode reads a whole WAV stream
func (d *WAVDecoder) Decode(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	channels := int(dec.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}

	return newBuffer(intToFloat(pcm, bitDepth), channels, int(dec.SampleRate), audio.Format{
		Codec:      "wav",
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		BitDepth:   bitDepth,
	})
}

// intToFloat scales integer PCM to [-1,1]
func intToFloat(pcm *goaudio.IntBuffer, bitDepth int) []float32 {
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		// 8-bit WAV is unsigned
		if bitDepth == 8 {
			v -= 128
		}
		samples[i] = audio.SampleFromInt(v, bitDepth)
	}
	return samples
}
