// ABOUTME: Device-less output that renders blocks on demand
// ABOUTME: Used for tests and machines without audio hardware
package output

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Headless renders blocks only when pulled, or paced in real time by RunRealtime
type Headless struct {
	mu     sync.Mutex
	cfg    StreamConfig
	render RenderFunc
	open   bool
	blocks int64
}

// NewHeadless creates a headless output
func NewHeadless() *Headless {
	return &Headless{}
}

// Open records the stream configuration and render callback
func (h *Headless) Open(cfg StreamConfig, render RenderFunc) error {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open {
		return fmt.Errorf("%w: headless output already open", ErrStream)
	}

	h.cfg = cfg
	h.render = render
	h.open = true
	return nil
}

// Close stops the stream; later pulls return nothing
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open = false
	h.render = nil
	return nil
}

// IsOpen reports whether a stream is running
func (h *Headless) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// Config returns the configuration of the open stream
func (h *Headless) Config() StreamConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Blocks returns the number of blocks rendered so far
func (h *Headless) Blocks() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blocks
}

// Pull renders n blocks and returns them concatenated as interleaved samples.
// It returns nil when the stream is closed.
func (h *Headless) Pull(n int) []float32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.open {
		return nil
	}

	size := h.cfg.BlockSize * h.cfg.Channels
	out := make([]float32, n*size)
	for i := 0; i < n; i++ {
		h.render(out[i*size : (i+1)*size])
		h.blocks++
	}
	return out
}

// RunRealtime pulls one block per block period until ctx is done or the stream closes
func (h *Headless) RunRealtime(ctx context.Context) error {
	cfg := h.Config()
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("%w: headless output not open", ErrStream)
	}

	period := time.Duration(cfg.BlockSize) * time.Second / time.Duration(cfg.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if h.Pull(1) == nil {
				return nil
			}
		}
	}
}
