// ABOUTME: Automated parameter controls: speed, volume, effects, delay and tape
// ABOUTME: Each control snaps immediately or installs a ramp ticked by the player
package playback

import (
	"math"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio/effects"
	"github.com/cassette-audio/cassette-go/pkg/automation"
)

// Neutral bitcrush settings applied when the stage is switched off
const (
	neutralBits       = 24
	neutralDownsample = 1
)

// SetSpeed changes the playback rate. Negative targets are clamped to 0.
// With stopOnEnd, playback stops once a glide reaches the target; an instant
// change never stops playback.
func (p *Player) SetSpeed(target float64, g Glide, stopOnEnd bool) {
	target = math.Max(0, target)

	p.mu.Lock()
	defer p.mu.Unlock()

	if g.instant() {
		p.auto.Cancel(automation.GroupSpeed)
		p.setSpeedLocked(target)
		return
	}

	var onDone func()
	if stopOnEnd {
		onDone = func() { p.stopAfter(automation.GroupSpeed) }
	}

	ramp := g.ramp([]float64{p.params.Load().Speed}, []float64{target}, p.clock.Now())
	p.auto.Start(automation.GroupSpeed, ramp, func(v []float64) {
		p.setSpeedLocked(math.Max(0, v[0]))
	}, onDone)
}

// setSpeedLocked re-anchors the reported position so it stays continuous
func (p *Player) setSpeedLocked(speed float64) {
	now := p.now()
	p.update(func(pr *Params) {
		pr.reanchor(now)
		pr.Speed = speed
	})
}

// SetVolume changes the output gain, clamped to [0,1]
func (p *Player) SetVolume(target float64, g Glide) {
	target = clamp01(target)

	p.mu.Lock()
	defer p.mu.Unlock()

	if g.instant() {
		p.auto.Cancel(automation.GroupVolume)
		p.setVolumeLocked(target)
		return
	}

	ramp := g.ramp([]float64{p.params.Load().Volume}, []float64{target}, p.clock.Now())
	p.auto.Start(automation.GroupVolume, ramp, func(v []float64) {
		p.setVolumeLocked(clamp01(v[0]))
	}, nil)
}

func (p *Player) setVolumeLocked(volume float64) {
	p.update(func(pr *Params) {
		pr.Volume = volume
	})
}

// EnableMidpass switches the band-pass on and glides to the given settings.
// Mix is clamped to [0,1] and q to at least effects.MinQ.
func (p *Player) EnableMidpass(centerHz, q, mix, gain float64, g Glide) {
	target := effects.MidpassParams{
		Enabled:  true,
		CenterHz: math.Max(1, centerHz),
		Q:        math.Max(effects.MinQ, q),
		Mix:      clamp01(mix),
		Gain:     gain,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if g.instant() {
		p.auto.Cancel(automation.GroupMidpass)
		p.update(func(pr *Params) {
			pr.Effects.Midpass = target
		})
		return
	}

	p.update(func(pr *Params) {
		pr.Effects.Midpass.Enabled = true
	})
	p.rampMidpass(target, g)
}

// DisableMidpass switches the band-pass off, optionally fading its mix to 0 first
func (p *Player) DisableMidpass(g Glide) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g.instant() {
		p.auto.Cancel(automation.GroupMidpass)
		p.update(func(pr *Params) {
			pr.Effects.Midpass.Enabled = false
		})
		return
	}

	target := p.params.Load().Effects.Midpass
	target.Mix = 0
	target.Gain = 0
	p.rampMidpass(target, g)
}

func (p *Player) rampMidpass(target effects.MidpassParams, g Glide) {
	cur := p.params.Load().Effects.Midpass
	ramp := g.ramp(
		[]float64{cur.CenterHz, cur.Q, cur.Mix, cur.Gain},
		[]float64{target.CenterHz, target.Q, target.Mix, target.Gain},
		p.clock.Now(),
	)

	var onDone func()
	if target.Mix == 0 {
		onDone = p.switchOffMidpass
	}

	p.auto.Start(automation.GroupMidpass, ramp, func(v []float64) {
		p.update(func(pr *Params) {
			m := &pr.Effects.Midpass
			m.CenterHz = math.Max(1, v[0])
			m.Q = math.Max(effects.MinQ, v[1])
			m.Mix = clamp01(v[2])
			m.Gain = v[3]
		})
	}, onDone)
}

// switchOffMidpass disables a band-pass whose mix ramp finished at 0
func (p *Player) switchOffMidpass() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.auto.Active(automation.GroupMidpass) {
		return
	}
	p.update(func(pr *Params) {
		if pr.Effects.Midpass.Mix == 0 {
			pr.Effects.Midpass.Enabled = false
		}
	})
}

// EnableBitcrush switches the bitcrusher on and glides to the given settings.
// Bits are clamped to [1,24], downsample to at least 1 and mix to [0,1].
func (p *Player) EnableBitcrush(bits, downsample int, mix float64, g Glide) {
	target := effects.BitcrushParams{
		Enabled:    true,
		Bits:       clampInt(bits, 1, 24),
		Downsample: max(1, downsample),
		Mix:        clamp01(mix),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if g.instant() {
		p.auto.Cancel(automation.GroupBitcrush)
		p.update(func(pr *Params) {
			pr.Effects.Bitcrush = target
		})
		return
	}

	p.update(func(pr *Params) {
		pr.Effects.Bitcrush.Enabled = true
	})
	p.rampBitcrush(target, g, nil)
}

// DisableBitcrush returns the bitcrusher to neutral and switches it off
func (p *Player) DisableBitcrush(g Glide) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.params.Load().Effects.Bitcrush.Enabled {
		return
	}

	neutral := effects.BitcrushParams{
		Bits:       neutralBits,
		Downsample: neutralDownsample,
	}

	if g.instant() {
		p.auto.Cancel(automation.GroupBitcrush)
		p.update(func(pr *Params) {
			pr.Effects.Bitcrush = neutral
		})
		return
	}

	p.rampBitcrush(neutral, g, p.switchOffBitcrush)
}

func (p *Player) rampBitcrush(target effects.BitcrushParams, g Glide, onDone func()) {
	cur := p.params.Load().Effects.Bitcrush
	ramp := g.ramp(
		[]float64{float64(cur.Bits), float64(cur.Downsample), cur.Mix},
		[]float64{float64(target.Bits), float64(target.Downsample), target.Mix},
		p.clock.Now(),
	)

	p.auto.Start(automation.GroupBitcrush, ramp, func(v []float64) {
		p.update(func(pr *Params) {
			b := &pr.Effects.Bitcrush
			b.Bits = clampInt(int(math.Round(v[0])), 1, 24)
			b.Downsample = max(1, int(math.Round(v[1])))
			b.Mix = clamp01(v[2])
		})
	}, onDone)
}

func (p *Player) switchOffBitcrush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.auto.Active(automation.GroupBitcrush) {
		return
	}
	p.update(func(pr *Params) {
		if pr.Effects.Bitcrush.Mix == 0 {
			pr.Effects.Bitcrush.Enabled = false
		}
	})
}

// SetChannelDelayMs sets the left and right delays immediately. Negative values are clamped to 0.
func (p *Player) SetChannelDelayMs(leftMs, rightMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.auto.Cancel(automation.GroupDelay)
	p.setDelayLocked(leftMs, rightMs)
}

func (p *Player) setDelayLocked(leftMs, rightMs float64) {
	p.update(func(pr *Params) {
		pr.DelayMs = [2]float64{math.Max(0, leftMs), math.Max(0, rightMs)}
	})
}

// SmoothChannelDelay glides the per-channel delays
func (p *Player) SmoothChannelDelay(d DelayGlide) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.params.Load().DelayMs
	leftFrom := valueOr(d.LeftFromMs, cur[0])
	rightFrom := valueOr(d.RightFromMs, cur[1])
	leftTo := valueOr(d.LeftToMs, cur[0])
	rightTo := valueOr(d.RightToMs, cur[1])

	p.auto.Cancel(automation.GroupDelay)

	if d.Instant {
		p.setDelayLocked(leftTo, rightTo)
		return
	}

	duration := d.Duration
	if duration <= 0 {
		duration = DefaultDelayGlide
	}

	p.setDelayLocked(leftFrom, rightFrom)

	ramp := automation.NewRamp(
		[]float64{leftFrom, rightFrom},
		[]float64{leftTo, rightTo},
		duration, d.Steps, nil, p.clock.Now(),
	)
	p.auto.Start(automation.GroupDelay, ramp, func(v []float64) {
		p.setDelayLocked(v[0], v[1])
	}, nil)
}

// Tape runs a combined fade and speed transition. A stopped player starts
// playing at req.StartMs first. Start values are applied immediately and
// the end values are reached together over req.Duration.
func (p *Player) Tape(req TapeRequest) error {
	p.mu.Lock()

	s := p.session.Load()
	if s == nil {
		p.mu.Unlock()
		return ErrNotLoaded
	}

	started := false
	if !p.params.Load().Playing {
		if err := p.playLocked(valueOr(req.StartMs, 0)); err != nil {
			p.mu.Unlock()
			return err
		}
		started = true
	}

	cur := p.params.Load()
	startVolume := clamp01(valueOr(req.StartFade, cur.Volume))
	startSpeed := math.Max(0, valueOr(req.StartSpeed, cur.Speed))
	endVolume := clamp01(valueOr(req.EndFade, startVolume))
	endSpeed := math.Max(0, valueOr(req.EndSpeed, startSpeed))

	p.auto.Cancel(automation.GroupVolume)
	p.auto.Cancel(automation.GroupSpeed)
	p.setVolumeLocked(startVolume)
	p.setSpeedLocked(startSpeed)

	var onDone func()
	if req.CleanupOnFinish {
		id := s.id
		onDone = func() { p.cleanupAfterTape(id) }
	}

	if req.Instant {
		p.setVolumeLocked(endVolume)
		p.setSpeedLocked(endSpeed)
	} else {
		duration := req.Duration
		if duration <= 0 {
			duration = DefaultTapeDuration
		}
		steps := req.Steps
		if steps <= 0 {
			steps = DefaultTapeSteps
		}
		now := p.clock.Now()

		volume := automation.NewRamp([]float64{startVolume}, []float64{endVolume}, duration, steps, nil, now)
		p.auto.Start(automation.GroupVolume, volume, func(v []float64) {
			p.setVolumeLocked(clamp01(v[0]))
		}, nil)

		speed := automation.NewRamp([]float64{startSpeed}, []float64{endSpeed}, duration, steps, nil, now)
		p.auto.Start(automation.GroupSpeed, speed, func(v []float64) {
			p.setSpeedLocked(math.Max(0, v[0]))
		}, onDone)
		onDone = nil
	}

	p.mu.Unlock()

	if started {
		p.emit(event{state: true, playing: true})
	}
	if onDone != nil {
		onDone()
	}
	return nil
}

// cleanupAfterTape tears down the session the tape ran on, unless a newer
// track or speed ramp has taken over since
func (p *Player) cleanupAfterTape(id uint64) {
	p.mu.Lock()
	s := p.session.Load()
	superseded := s == nil || s.id != id || p.auto.Active(automation.GroupSpeed)
	p.mu.Unlock()

	if !superseded {
		p.Cleanup()
	}
}

// stopAfter stops playback when the group's ramp has not been replaced
func (p *Player) stopAfter(group automation.Group) {
	p.mu.Lock()
	if p.auto.Active(group) {
		p.mu.Unlock()
		return
	}
	stopped := p.stopLocked()
	p.mu.Unlock()

	if stopped {
		p.emit(event{state: true, playing: false})
	}
}

// now is the automation tick time while ticking, wall time otherwise. Callers hold mu.
func (p *Player) now() time.Time {
	if !p.tickNow.IsZero() {
		return p.tickNow
	}
	return p.clock.Now()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
