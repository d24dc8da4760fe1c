// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Opus files to float samples at 48kHz
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// opusRate is the rate every Opus stream decodes at
	opusRate = 48000

	// opusFrameMax is the largest Opus frame (120ms at 48kHz)
	opusFrameMax = 5760

	// opusHeadProbe is how much of the stream is searched for the ID header
	opusHeadProbe = 4096
)

var opusHeadMagic = []byte("OpusHead")

// OpusDecoder decodes Ogg-encapsulated Opus
type OpusDecoder struct{}

// NewOpus creates an Opus decoder
func NewOpus() *OpusDecoder {
	return &OpusDecoder{}
}

// Decode reads a whole Ogg Opus stream
func (d *OpusDecoder) Decode(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	channels, err := opusChannels(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind opus stream: %w", err)
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open opus stream: %v", ErrDecode, err)
	}
	defer stream.Close()

	var samples []float32
	pcm := make([]float32, opusFrameMax*channels)
	for {
		n, err := stream.ReadFloat32(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: opus decode failed: %v", ErrDecode, err)
		}
		samples = append(samples, pcm[:n*channels]...)
	}

	return newBuffer(samples, channels, opusRate, audio.Format{
		Codec:      "opus",
		SampleRate: opusRate,
		Channels:   channels,
		BitDepth:   16,
	})
}

// opusChannels reads the channel count from the OpusHead ID header
func opusChannels(r io.Reader) (int, error) {
	head := make([]byte, opusHeadProbe)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w: failed to read opus header: %v", ErrDecode, err)
	}
	head = head[:n]

	// Magic, version byte, then the channel count
	idx := bytes.Index(head, opusHeadMagic)
	if idx < 0 || idx+9 >= len(head) {
		return 0, fmt.Errorf("%w: missing OpusHead", ErrDecode)
	}

	channels := int(head[idx+9])
	if channels == 0 || channels > audio.MaxChannels {
		return 0, fmt.Errorf("%w: %d channels", audio.ErrUnsupportedLayout, channels)
	}
	return channels, nil
}
