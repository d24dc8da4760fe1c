// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the callback-driven Output interface and its backends
// Package output provides callback-driven audio playback backends.
//
// Every backend pulls audio from a RenderFunc in fixed blocks of
// StreamConfig.BlockSize frames, whatever buffer sizes the device asks for:
//   - Oto: default backend, float32 through a pull reader
//   - Malgo: miniaudio device callback
//   - PortAudio: callback stream (build with -tags portaudio)
//   - Headless: no device; blocks are pulled by tests or paced in real time
//
// Example:
//
//	out, err := output.New("malgo")
//	err = out.Open(output.StreamConfig{Channels: 2, SampleRate: 48000}, func(block []float32) {
//	    engine.Render(block)
//	})
//	defer out.Close()
package output
