// ABOUTME: Audio output interface definition
// ABOUTME: Common interface and stream configuration for playback backends
package output

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultBlockSize is the number of frames rendered per callback block
const DefaultBlockSize = 256

// ErrStream is returned when a device cannot be opened or started
var ErrStream = errors.New("output: stream error")

// Latency is the device latency hint
type Latency string

const (
	LatencyLow  Latency = "low"
	LatencyHigh Latency = "high"
)

// ParseLatency validates a latency hint
func ParseLatency(s string) (Latency, error) {
	switch Latency(strings.ToLower(s)) {
	case LatencyLow:
		return LatencyLow, nil
	case LatencyHigh:
		return LatencyHigh, nil
	default:
		return "", fmt.Errorf("invalid latency %q (expected low or high)", s)
	}
}

// StreamConfig describes the hardware stream the engine renders into
type StreamConfig struct {
	BlockSize  int // frames per block
	Latency    Latency
	Channels   int
	SampleRate int
}

// withDefaults fills unset fields
func (c StreamConfig) withDefaults() StreamConfig {
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.Latency == "" {
		c.Latency = LatencyLow
	}
	return c
}

func (c StreamConfig) validate() error {
	if c.Channels <= 0 {
		return fmt.Errorf("%w: invalid channel count %d", ErrStream, c.Channels)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample rate %d", ErrStream, c.SampleRate)
	}
	return nil
}

// RenderFunc fills one interleaved block of BlockSize*Channels samples.
// It runs on the device's real-time thread and must not block.
type RenderFunc func(out []float32)

// Output represents an audio output device driven by a render callback
type Output interface {
	// Open starts a stream that calls render whenever the device needs audio
	Open(cfg StreamConfig, render RenderFunc) error

	// Close stops the stream and releases device resources
	Close() error
}

// Backends lists the names accepted by New
var Backends = []string{"oto", "malgo", "portaudio", "headless"}

// New creates an output by backend name
func New(backend string) (Output, error) {
	switch strings.ToLower(backend) {
	case "", "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "headless":
		return NewHeadless(), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (expected one of %s)",
			backend, strings.Join(Backends, ", "))
	}
}
