// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 files to float samples with go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MPEG-1/2 Layer III
type MP3Decoder struct{}

// NewMP3 creates an MP3 decoder
func NewMP3() *MP3Decoder {
	return &MP3Decoder{}
}

// Decode reads a whole MP3 stream. go-mp3 always yields 16-bit stereo.
func (d *MP3Decoder) Decode(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create mp3 decoder: %v", ErrDecode, err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3 decode error: %v", ErrDecode, err)
	}

	// Convert bytes to int16 then to float
	numSamples := len(data) / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = audio.SampleFromInt16(sample16)
	}

	return newBuffer(samples, 2, dec.SampleRate(), audio.Format{
		Codec:      "mp3",
		SampleRate: dec.SampleRate(),
		Channels:   2,
		BitDepth:   16,
	})
}
