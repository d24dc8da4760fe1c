// ABOUTME: Playback controller for a single loaded track
// ABOUTME: Owns the output stream, parameter snapshots, automation and notifications
package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/cassette-audio/cassette-go/pkg/audio/decode"
	"github.com/cassette-audio/cassette-go/pkg/audio/output"
	"github.com/cassette-audio/cassette-go/pkg/automation"
	"github.com/google/uuid"
)

// ErrNotLoaded is returned by operations that need a loaded track
var ErrNotLoaded = errors.New("playback: no track loaded")

// eventBuffer bounds queued notifications; overflow is dropped and logged
const eventBuffer = 64

type event struct {
	state   bool
	playing bool
	err     error
}

// Player renders one loaded track through an output device
type Player struct {
	config Config
	clock  Clock

	// Control path; serializes writers of params and owns automation
	mu      sync.Mutex
	auto    *automation.Automator
	out     output.Output
	nextID  uint64
	tickNow time.Time

	// Shared with the render callback
	params  atomic.Pointer[Params]
	session atomic.Pointer[session]
	blocks  atomic.Uint64
	faults  atomic.Uint64

	events    chan event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewPlayer creates a player with nothing loaded
func NewPlayer(config Config) *Player {
	// Set defaults
	if config.BlockSize <= 0 {
		config.BlockSize = output.DefaultBlockSize
	}
	if config.Latency == "" {
		config.Latency = output.LatencyLow
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}
	if config.NewOutput == nil {
		backend := config.Backend
		config.NewOutput = func() (output.Output, error) {
			return output.New(backend)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		config: config,
		clock:  config.Clock,
		auto:   automation.NewAutomator(),
		events: make(chan event, eventBuffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.params.Store(defaultParams(0))

	go p.dispatch()

	return p
}

// LoadFile decodes an audio file and loads it
func (p *Player) LoadFile(path string) (Loaded, error) {
	buf, err := decode.File(path, decode.Options{})
	if err != nil {
		return Loaded{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return p.Load(buf)
}

// Load replaces the current track with buf. Mono input is duplicated to
// stereo. The new stream is opened before anything is torn down, so a
// failed load leaves the previous track playing.
func (p *Player) Load(buf *audio.SampleBuffer) (Loaded, error) {
	if buf == nil || buf.Channels() == 0 || buf.Frames() == 0 {
		return Loaded{}, audio.ErrEmptyStream
	}
	if buf.Channels() > audio.MaxChannels {
		return Loaded{}, fmt.Errorf("%w: %d channels", audio.ErrUnsupportedLayout, buf.Channels())
	}
	if buf.SampleRate <= 0 {
		return Loaded{}, fmt.Errorf("invalid sample rate: %d", buf.SampleRate)
	}

	stereo := buf.ExpandToStereo()

	p.mu.Lock()

	p.nextID++
	s := newSession(p.nextID, uuid.New().String(), stereo, p.config.BlockSize)

	out, err := p.config.NewOutput()
	if err != nil {
		p.mu.Unlock()
		return Loaded{}, fmt.Errorf("failed to create output: %w", err)
	}

	cfg := output.StreamConfig{
		BlockSize:  p.config.BlockSize,
		Latency:    p.config.Latency,
		Channels:   stereo.Channels(),
		SampleRate: stereo.SampleRate,
	}
	if err := out.Open(cfg, func(block []float32) { p.render(s, block) }); err != nil {
		p.mu.Unlock()
		return Loaded{}, fmt.Errorf("failed to open output: %w", err)
	}

	p.auto.CancelAll()
	wasPlaying := p.params.Load().Playing
	p.params.Store(defaultParams(s.id))
	p.session.Store(s)

	old := p.out
	p.out = out
	closeOutput(old)

	p.mu.Unlock()

	log.Printf("Loaded track %s: %d frames at %dHz (%s)",
		s.trackID, stereo.Frames(), stereo.SampleRate, stereo.Duration())

	if wasPlaying {
		p.emit(event{state: true, playing: false})
	}

	loaded := Loaded{
		ID:         s.trackID,
		Buffer:     stereo,
		SampleRate: stereo.SampleRate,
		Duration:   stereo.Duration(),
	}
	if p.config.OnLoaded != nil {
		p.config.OnLoaded(loaded)
	}
	return loaded, nil
}

// Play starts playback at startMs, clamped to the track
func (p *Player) Play(startMs float64) error {
	p.mu.Lock()
	err := p.playLocked(startMs)
	p.mu.Unlock()

	if err != nil {
		return err
	}
	p.emit(event{state: true, playing: true})
	return nil
}

func (p *Player) playLocked(startMs float64) error {
	s := p.session.Load()
	if s == nil {
		return ErrNotLoaded
	}

	startMs = math.Max(0, math.Min(startMs, s.durationMs))
	now := p.clock.Now()
	p.update(func(pr *Params) {
		pr.Playing = true
		pr.PlayEpoch++
		pr.StartFrame = startMs * float64(s.buf.SampleRate) / 1000.0
		pr.AnchorMs = startMs
		pr.AnchorWall = now
	})
	return nil
}

// Stop halts playback, freezing the reported position
func (p *Player) Stop() {
	p.mu.Lock()
	stopped := p.stopLocked()
	p.mu.Unlock()

	if stopped {
		p.emit(event{state: true, playing: false})
	}
}

func (p *Player) stopLocked() bool {
	if !p.params.Load().Playing {
		return false
	}

	now := p.clock.Now()
	duration := p.durationMs()
	p.update(func(pr *Params) {
		pr.AnchorMs = clampMs(pr.positionMs(now), duration)
		pr.AnchorWall = now
		pr.Playing = false
	})
	return true
}

// Toggle stops playback if playing, otherwise starts it at startMs
func (p *Player) Toggle(startMs float64) error {
	if p.IsPlaying() {
		p.Stop()
		return nil
	}
	return p.Play(startMs)
}

// Seek moves the play position without changing the play state
func (p *Player) Seek(ms float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session.Load()
	if s == nil {
		return ErrNotLoaded
	}

	ms = math.Max(0, math.Min(ms, s.durationMs))
	now := p.clock.Now()
	p.update(func(pr *Params) {
		pr.PlayEpoch++
		pr.StartFrame = ms * float64(s.buf.SampleRate) / 1000.0
		pr.AnchorMs = ms
		pr.AnchorWall = now
	})
	return nil
}

// IsPlaying reports whether playback is running
func (p *Player) IsPlaying() bool {
	return p.params.Load().Playing
}

// PositionMs returns the reported playback position, clamped to the track
func (p *Player) PositionMs() float64 {
	s := p.session.Load()
	if s == nil {
		return 0
	}
	return clampMs(p.params.Load().positionMs(p.clock.Now()), s.durationMs)
}

// DurationMs returns the loaded track's duration
func (p *Player) DurationMs() float64 {
	return p.durationMs()
}

func (p *Player) durationMs() float64 {
	s := p.session.Load()
	if s == nil {
		return 0
	}
	return s.durationMs
}

// CurrentAudioLevel returns the last block's peak relative to the track peak
func (p *Player) CurrentAudioLevel() float32 {
	s := p.session.Load()
	if s == nil {
		return 0
	}
	return s.meter.Level()
}

// Speed returns the current playback rate
func (p *Player) Speed() float64 {
	return p.params.Load().Speed
}

// Volume returns the current gain
func (p *Player) Volume() float64 {
	return p.params.Load().Volume
}

// Params returns a copy of the current parameter snapshot
func (p *Player) Params() Params {
	return *p.params.Load()
}

// Status returns a point-in-time view of the player
func (p *Player) Status() Status {
	params := p.params.Load()
	status := Status{
		Playing:  params.Playing,
		Speed:    params.Speed,
		Volume:   params.Volume,
		Midpass:  params.Effects.Midpass,
		Bitcrush: params.Effects.Bitcrush,
		DelayMs:  params.DelayMs,
	}

	if s := p.session.Load(); s != nil {
		status.Loaded = true
		status.TrackID = s.trackID
		status.DurationMs = s.durationMs
		status.PositionMs = clampMs(params.positionMs(p.clock.Now()), s.durationMs)
		status.Level = s.meter.Level()
	}
	return status
}

// Stats returns render statistics
func (p *Player) Stats() Stats {
	stats := Stats{
		Blocks: p.blocks.Load(),
		Faults: p.faults.Load(),
	}
	if s := p.session.Load(); s != nil {
		stats.PositionFrames = s.positionFrames()
	}
	return stats
}

// Cleanup cancels automation, closes the stream and drops the track.
// It is safe to call at any time, any number of times.
func (p *Player) Cleanup() {
	p.mu.Lock()

	p.auto.CancelAll()
	wasPlaying := p.params.Load().Playing

	closeOutput(p.out)
	p.out = nil
	p.session.Store(nil)
	p.params.Store(defaultParams(0))

	p.mu.Unlock()

	if wasPlaying {
		p.emit(event{state: true, playing: false})
	}
}

// Close releases the stream and stops notification delivery
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.Cleanup()
		p.cancel()
		<-p.done
	})
	return nil
}

// Tick advances automation by one step. Completion hooks run after the
// final values are published.
func (p *Player) Tick() {
	p.mu.Lock()
	p.tickNow = p.clock.Now()
	done := p.auto.Tick(p.tickNow)
	p.tickNow = time.Time{}
	p.mu.Unlock()

	for _, fn := range done {
		fn()
	}
}

// Run ticks automation until ctx is cancelled or the player is closed
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.ctx.Done():
			return nil
		case <-ticker.C:
			p.Tick()
		}
	}
}

// update publishes a modified copy of the current snapshot. Callers hold mu.
// fn may run more than once if the render callback swaps concurrently.
func (p *Player) update(fn func(*Params)) {
	for {
		cur := p.params.Load()
		next := *cur
		fn(&next)
		if p.params.CompareAndSwap(cur, &next) {
			return
		}
	}
}

func (p *Player) emit(ev event) {
	select {
	case p.events <- ev:
	default:
		log.Printf("Notification queue full, dropping event")
	}
}

// dispatch delivers notifications off the render and control paths
func (p *Player) dispatch() {
	defer close(p.done)

	for {
		select {
		case ev := <-p.events:
			p.deliver(ev)
		case <-p.ctx.Done():
			// Drain what was queued before close
			for {
				select {
				case ev := <-p.events:
					p.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Player) deliver(ev event) {
	if ev.err != nil {
		if p.config.OnError != nil {
			p.config.OnError(ev.err)
		}
		return
	}
	if ev.state && p.config.OnStateChange != nil {
		p.config.OnStateChange(ev.playing)
	}
}

func closeOutput(out output.Output) {
	if out == nil {
		return
	}
	if err := out.Close(); err != nil {
		log.Printf("Failed to close output: %v", err)
	}
}

func clampMs(ms, duration float64) float64 {
	return math.Max(0, math.Min(ms, duration))
}
