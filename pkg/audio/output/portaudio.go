//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform callback stream using PortAudio
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open initializes PortAudio and starts a callback stream
func (p *PortAudio) Open(cfg StreamConfig, render RenderFunc) error {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return fmt.Errorf("%w: portaudio output already open", ErrStream)
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: failed to initialize portaudio: %v", ErrStream, err)
	}

	device, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: no default output device: %v", ErrStream, err)
	}

	var params portaudio.StreamParameters
	if cfg.Latency == LatencyHigh {
		params = portaudio.HighLatencyParameters(nil, device)
	} else {
		params = portaudio.LowLatencyParameters(nil, device)
	}
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.BlockSize

	feeder := newBlockFeeder(cfg, render)
	stream, err := portaudio.OpenStream(params, func(out []float32) {
		feeder.Fill(out)
	})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: failed to open stream: %v", ErrStream, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: failed to start stream: %v", ErrStream, err)
	}

	p.stream = stream

	log.Printf("Audio output initialized: %dHz, %d channels, block %d, %s latency (portaudio)",
		cfg.SampleRate, cfg.Channels, cfg.BlockSize, cfg.Latency)

	return nil
}

// Close aborts the stream and releases resources
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	var firstErr error
	if err := p.stream.Abort(); err != nil {
		firstErr = err
	}
	if err := p.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	p.stream = nil

	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
