// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides the Decoder interface and WAV, MP3, FLAC and Opus implementations
// Package decode loads audio files into float sample buffers.
//
// Supports: WAV (integer PCM), MP3, FLAC, Ogg Opus
//
// Integer PCM is scaled to [-1,1]. File picks the decoder from the file
// extension and can convert the result to a fixed rate for the output device.
//
// Example:
//
//	buf, err := decode.File("/path/to/track.flac", decode.Options{TargetRate: 48000})
package decode
