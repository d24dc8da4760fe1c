// ABOUTME: Per-load render session and the real-time render callback
// ABOUTME: The callback reads one parameter snapshot per block and never blocks
package playback

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/cassette-audio/cassette-go/pkg/audio/effects"
	"github.com/cassette-audio/cassette-go/pkg/audio/meter"
	"github.com/cassette-audio/cassette-go/pkg/audio/resample"
)

// faultLogEvery rate-limits render fault logging
const faultLogEvery = 1000

// session is everything bound to one loaded buffer
type session struct {
	id         uint64
	trackID    string
	buf        *audio.SampleBuffer
	durationMs float64
	transport  *resample.Transport
	chain      *effects.Chain
	meter      *meter.Meter

	// Owned by the render callback
	block    [][]float32
	view     [][]float32
	delays   []float64
	fx       effects.Params
	epoch    uint64
	position float64

	// Published frame position for statistics
	positionBits atomic.Uint64
}

func newSession(id uint64, trackID string, buf *audio.SampleBuffer, blockSize int) *session {
	channels := buf.Channels()
	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, blockSize)
	}

	return &session{
		id:         id,
		trackID:    trackID,
		buf:        buf,
		durationMs: buf.DurationMs(),
		transport:  resample.NewTransport(buf),
		chain:      effects.NewDefaultChain(buf.SampleRate, channels),
		meter:      meter.New(buf.Peak()),
		block:      block,
		view:       make([][]float32, channels),
		delays:     make([]float64, channels),
	}
}

func (s *session) positionFrames() float64 {
	return math.Float64frombits(s.positionBits.Load())
}

// render fills one interleaved output block
func (p *Player) render(s *session, out []float32) {
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			n := p.faults.Add(1)
			if n == 1 || n%faultLogEvery == 0 {
				log.Printf("Render fault #%d: %v", n, r)
				p.emit(event{err: fmt.Errorf("render fault: %v", r)})
			}
		}
	}()

	p.blocks.Add(1)

	params := p.params.Load()
	if params == nil || params.Session != s.id || !params.Playing {
		clear(out)
		s.meter.Reset()
		return
	}

	if params.PlayEpoch != s.epoch {
		s.epoch = params.PlayEpoch
		s.position = params.StartFrame
	}

	channels := len(s.block)
	frames := len(out) / channels
	for ch := range s.block {
		s.view[ch] = s.block[ch][:frames]
		s.delays[ch] = resample.DelaySamples(params.DelayMs[ch], s.buf.SampleRate)
	}

	next, ended := s.transport.Render(s.view, frames, s.position, params.Speed, s.delays)

	s.fx = params.Effects
	s.chain.Process(s.view, &s.fx)
	s.meter.Measure(s.view)

	volume := float32(params.Volume)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = s.view[ch][i] * volume
		}
	}

	s.position = next
	s.positionBits.Store(math.Float64bits(next))

	if ended {
		p.finish(s, params.PlayEpoch)
	}
}

// finish marks playback stopped at the end of the buffer, once per play epoch
func (p *Player) finish(s *session, epoch uint64) {
	for {
		cur := p.params.Load()
		if cur.Session != s.id || cur.PlayEpoch != epoch || !cur.Playing {
			return
		}

		next := *cur
		next.Playing = false
		next.AnchorMs = s.durationMs
		next.AnchorWall = p.clock.Now()
		if p.params.CompareAndSwap(cur, &next) {
			p.emit(event{state: true, playing: false})
			return
		}
	}
}
