//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(cfg StreamConfig, render RenderFunc) error {
	return fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrStream)
}

// Close is a no-op
func (p *PortAudio) Close() error {
	return nil
}
