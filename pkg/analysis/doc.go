// ABOUTME: Audio analysis package
// ABOUTME: Detects beats and estimates tempo from decoded buffers
// Package analysis estimates the tempo of a track.
//
// DetectBeats mixes the buffer to mono, measures spectral flux with a Hann
// window and FFT per hop, and picks onsets against an adaptive threshold.
// The tempo is the median of the per-interval tempos.
//
// Example:
//
//	result := analysis.DetectBeats(buf, analysis.Options{})
//	fmt.Printf("%.2f BPM, %d beats\n", result.BPM, len(result.Beats))
package analysis
