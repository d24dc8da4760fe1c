// ABOUTME: Audio type definitions
// ABOUTME: Defines source formats, the loaded sample buffer and sample conversions
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// MinChannels is the channel count every loaded buffer is expanded to
	MinChannels = 2

	// MaxChannels is the widest layout the engine renders
	MaxChannels = 2

	// minTrackPeak keeps level normalization finite for silent tracks
	minTrackPeak = 1e-6
)

var (
	// ErrEmptyStream is returned when a buffer holds no frames
	ErrEmptyStream = errors.New("audio: empty stream")

	// ErrUnsupportedLayout is returned for channel layouts the engine cannot render
	ErrUnsupportedLayout = errors.New("audio: unsupported channel layout")
)

// Format describes the source an audio buffer was decoded from
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// SampleBuffer is channel-major float PCM plus its sample rate.
// It is read-only once handed to the player and may be shared between goroutines.
type SampleBuffer struct {
	Data       [][]float32 // Data[channel][frame], all channels the same length
	SampleRate int
	Format     Format
}

// NewSampleBuffer validates channel-major data and wraps it in a buffer
func NewSampleBuffer(data [][]float32, sampleRate int) (*SampleBuffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if len(data) == 0 || len(data) > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, len(data))
	}

	frames := len(data[0])
	for ch := 1; ch < len(data); ch++ {
		if len(data[ch]) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, expected %d",
				ErrUnsupportedLayout, ch, len(data[ch]), frames)
		}
	}
	if frames == 0 {
		return nil, ErrEmptyStream
	}

	return &SampleBuffer{
		Data:       data,
		SampleRate: sampleRate,
		Format: Format{
			Codec:      "pcm",
			SampleRate: sampleRate,
			Channels:   len(data),
			BitDepth:   32,
		},
	}, nil
}

// FromInterleaved splits interleaved samples into a channel-major buffer
func FromInterleaved(samples []float32, channels, sampleRate int) (*SampleBuffer, error) {
	if channels <= 0 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d channels",
			ErrUnsupportedLayout, len(samples), channels)
	}

	frames := len(samples) / channels
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[ch][i] = samples[i*channels+ch]
		}
	}

	return NewSampleBuffer(data, sampleRate)
}

// Channels returns the channel count
func (b *SampleBuffer) Channels() int {
	return len(b.Data)
}

// Frames returns the number of frames per channel
func (b *SampleBuffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback length at normal speed
func (b *SampleBuffer) Duration() time.Duration {
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// DurationMs returns the playback length in milliseconds
func (b *SampleBuffer) DurationMs() float64 {
	return float64(b.Frames()) / float64(b.SampleRate) * 1000
}

// Peak returns the largest absolute sample value, floored so it can divide
func (b *SampleBuffer) Peak() float64 {
	peak := 0.0
	for _, ch := range b.Data {
		for _, s := range ch {
			if v := math.Abs(float64(s)); v > peak {
				peak = v
			}
		}
	}
	return math.Max(peak, minTrackPeak)
}

// ExpandToStereo duplicates a mono buffer into two identical channels.
// Buffers that already have MinChannels are returned unchanged.
func (b *SampleBuffer) ExpandToStereo() *SampleBuffer {
	if b.Channels() >= MinChannels {
		return b
	}

	mono := b.Data[0]
	right := make([]float32, len(mono))
	copy(right, mono)

	format := b.Format
	format.Channels = MinChannels

	return &SampleBuffer{
		Data:       [][]float32{mono, right},
		SampleRate: b.SampleRate,
		Format:     format,
	}
}

// Interleaved returns the buffer as interleaved samples
func (b *SampleBuffer) Interleaved() []float32 {
	channels := b.Channels()
	frames := b.Frames()
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = b.Data[ch][i]
		}
	}
	return out
}

// SampleFromInt16 converts a 16-bit sample to float in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleFromInt scales a signed integer sample of the given bit depth to float
func SampleFromInt(sample int, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	scale := float64(uint64(1) << uint(bitDepth-1))
	return float32(float64(sample) / scale)
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to float
func SampleFrom24Bit(b [3]byte) float32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / float32(Max24Bit+1)
}

// ClampSample limits a float sample to [-1, 1]
func ClampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
