// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts sample rates and reads buffers at variable speed
// Package resample provides linear-interpolation readers for sample buffers.
//
// Convert changes the sample rate of a whole buffer, used by the loader to
// reach a canonical rate. Transport reads a buffer at an arbitrary speed
// with per-channel fractional delays, used by the player on every block.
//
// Example:
//
//	tr := resample.NewTransport(buf)
//	next, ended := tr.Render(block, 256, position, 1.25, []float64{0, 12.5})
package resample
