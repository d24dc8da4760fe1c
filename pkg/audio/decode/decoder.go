// ABOUTME: Decoder interface definition and file loader
// ABOUTME: Picks a decoder by file extension and returns a float sample buffer
package decode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/cassette-audio/cassette-go/pkg/audio/resample"
)

var (
	// ErrDecode is returned when a file cannot be decoded
	ErrDecode = errors.New("decode: invalid audio data")

	// ErrUnsupportedFormat is returned for file types without a decoder
	ErrUnsupportedFormat = errors.New("decode: unsupported format")
)

// Decoder decodes a whole encoded stream into a sample buffer
type Decoder interface {
	// Decode reads r to the end and returns the decoded samples
	Decode(r io.ReadSeeker) (*audio.SampleBuffer, error)
}

// Options controls file loading
type Options struct {
	// TargetRate converts the decoded buffer to this rate (0 keeps the native rate)
	TargetRate int
}

// ForPath returns the decoder for a file name's extension
func ForPath(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return NewWAV(), nil
	case ".mp3":
		return NewMP3(), nil
	case ".flac":
		return NewFLAC(), nil
	case ".opus", ".ogg":
		return NewOpus(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// File decodes an audio file from disk
func File(path string, opts Options) (*audio.SampleBuffer, error) {
	dec, err := ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	buf, err := dec.Decode(f)
	if err != nil {
		return nil, err
	}

	log.Printf("Decoded %s: %s, %d Hz, %d channels, %d-bit, %s",
		filepath.Base(path), buf.Format.Codec, buf.SampleRate, buf.Channels(),
		buf.Format.BitDepth, buf.Duration())

	if opts.TargetRate > 0 && opts.TargetRate != buf.SampleRate {
		converted, err := resample.Convert(buf, opts.TargetRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample %s: %w", filepath.Base(path), err)
		}
		log.Printf("Resampled %s: %d Hz -> %d Hz", filepath.Base(path), buf.SampleRate, opts.TargetRate)
		buf = converted
	}

	return buf, nil
}

// newBuffer builds a tagged buffer from interleaved samples
func newBuffer(samples []float32, channels, sampleRate int, format audio.Format) (*audio.SampleBuffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrDecode, channels)
	}
	if len(samples) < channels {
		return nil, audio.ErrEmptyStream
	}

	// Drop a trailing partial frame
	samples = samples[:len(samples)-len(samples)%channels]

	buf, err := audio.FromInterleaved(samples, channels, sampleRate)
	if err != nil {
		return nil, err
	}
	buf.Format = format
	return buf, nil
}
