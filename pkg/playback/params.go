// ABOUTME: Immutable parameter snapshot shared with the render callback
// ABOUTME: The control path publishes copies; the render path only loads or swaps them
package playback

import (
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio/effects"
)

// Params is every value the render callback needs for one block.
// Published values are never mutated; writers copy, modify and swap.
type Params struct {
	Session uint64 // render sessions ignore snapshots from other sessions
	Playing bool
	Speed   float64
	Volume  float64
	Effects effects.Params
	DelayMs [2]float64

	// PlayEpoch changes whenever the position is set; the renderer then
	// restarts from StartFrame
	PlayEpoch  uint64
	StartFrame float64

	// Reported position: AnchorMs at AnchorWall, advancing at Speed while playing
	AnchorMs   float64
	AnchorWall time.Time
}

func defaultParams(session uint64) *Params {
	return &Params{
		Session: session,
		Speed:   1,
		Volume:  1,
		Effects: effects.DefaultParams(),
	}
}

// positionMs extrapolates the reported position to now
func (p *Params) positionMs(now time.Time) float64 {
	if !p.Playing {
		return p.AnchorMs
	}
	elapsed := float64(now.Sub(p.AnchorWall)) / float64(time.Millisecond)
	return p.AnchorMs + elapsed*p.Speed
}

// reanchor freezes the extrapolated position so speed can change without a jump
func (p *Params) reanchor(now time.Time) {
	p.AnchorMs = p.positionMs(now)
	p.AnchorWall = now
}
