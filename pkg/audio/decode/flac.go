// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC files frame by frame with mewkiz/flac
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC streams
type FLACDecoder struct{}

// NewFLAC creates a FLAC decoder
func NewFLAC() *FLACDecoder {
	return &FLACDecoder{}
}

// Decode reads every frame of a FLAC stream
func (d *FLACDecoder) Decode(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode FLAC: %v", ErrDecode, err)
	}
	defer stream.Close()

	// Get stream info
	info := stream.Info
	sampleRate := int(info.SampleRate)
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	if channels > audio.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", audio.ErrUnsupportedLayout, channels)
	}

	data := make([][]float32, channels)
	if info.NSamples > 0 {
		for ch := range data {
			data[ch] = make([]float32, 0, info.NSamples)
		}
	}

	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: flac frame error: %v", ErrDecode, err)
		}

		for ch := 0; ch < channels; ch++ {
			for _, sample := range frame.Subframes[ch].Samples {
				data[ch] = append(data[ch], audio.SampleFromInt(int(sample), bitDepth))
			}
		}
	}

	buf, err := audio.NewSampleBuffer(data, sampleRate)
	if err != nil {
		return nil, err
	}
	buf.Format = audio.Format{
		Codec:      "flac",
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
	}
	return buf, nil
}
