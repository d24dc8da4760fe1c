// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleBuffer, Format and sample conversion functions
// Package audio provides the PCM types shared by the cassette engine.
//
// This package defines:
//   - SampleBuffer: channel-major float PCM with its sample rate, immutable after load
//   - Format: describes the source a buffer was decoded from
//
// It also provides conversions from integer PCM to float and the mono to
// stereo expansion the player applies to every loaded track.
//
// Example:
//
//	buf, err := audio.FromInterleaved(samples, 1, 44100)
//	if err != nil {
//	    return err
//	}
//	stereo := buf.ExpandToStereo()
//	fmt.Println(stereo.Channels(), stereo.Duration())
package audio
