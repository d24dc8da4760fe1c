// ABOUTME: Real-time effect stages for the playback engine
// ABOUTME: Provides the midpass filter, the bitcrusher and the ordered chain
// Package effects implements the per-block signal processing of the player.
//
// Stages run in a fixed order (midpass, then bitcrush) and read their
// parameters from a Params value on every block. Smoothing parameter changes
// is the job of the automation package; stages only keep the state that must
// persist between blocks (filter history, hold counters).
//
// Example:
//
//	chain := effects.NewDefaultChain(44100, 2)
//	params := effects.DefaultParams()
//	params.Bitcrush = effects.BitcrushParams{Enabled: true, Bits: 6, Downsample: 8, Mix: 1}
//	chain.Process(block, &params)
package effects
