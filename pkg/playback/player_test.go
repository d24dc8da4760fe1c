// ABOUTME: Tests for the playback controller
// ABOUTME: Drives the render callback through a headless output and a manual clock
package playback

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/cassette-audio/cassette-go/pkg/audio/output"
)

const testBlock = 100

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	player  *Player
	clock   *manualClock
	outputs []*output.Headless
	states  chan bool
	openErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:  newManualClock(),
		states: make(chan bool, 32),
	}
	h.player = NewPlayer(Config{
		BlockSize: testBlock,
		Clock:     h.clock,
		NewOutput: func() (output.Output, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			out := output.NewHeadless()
			h.outputs = append(h.outputs, out)
			return out, nil
		},
		OnStateChange: func(playing bool) {
			h.states <- playing
		},
	})
	t.Cleanup(func() { h.player.Close() })
	return h
}

func (h *harness) out() *output.Headless {
	return h.outputs[len(h.outputs)-1]
}

// advance moves the clock in tick-sized steps, ticking automation each time
func (h *harness) advance(d time.Duration) {
	const step = 5 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.clock.Advance(step)
		h.player.Tick()
	}
}

func (h *harness) expectState(t *testing.T, want bool) {
	t.Helper()
	select {
	case got := <-h.states:
		if got != want {
			t.Fatalf("expected state change to %v, got %v", want, got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for state change to %v", want)
	}
}

func (h *harness) expectNoState(t *testing.T) {
	t.Helper()
	select {
	case got := <-h.states:
		t.Fatalf("unexpected state change to %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func constantBuffer(t *testing.T, frames, rate int, value float32) *audio.SampleBuffer {
	t.Helper()
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range left {
		left[i] = value
		right[i] = value
	}
	buf, err := audio.NewSampleBuffer([][]float32{left, right}, rate)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	return buf
}

func sineBuffer(t *testing.T, frames, rate int) *audio.SampleBuffer {
	t.Helper()
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range left {
		left[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		right[i] = float32(0.5 * math.Sin(2*math.Pi*660*float64(i)/float64(rate)))
	}
	buf, err := audio.NewSampleBuffer([][]float32{left, right}, rate)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}
	return buf
}

func TestNewPlayerDefaults(t *testing.T) {
	player := NewPlayer(Config{})
	defer player.Close()

	if player.config.BlockSize != output.DefaultBlockSize {
		t.Errorf("expected BlockSize=%d, got %d", output.DefaultBlockSize, player.config.BlockSize)
	}
	if player.config.TickInterval != DefaultTickInterval {
		t.Errorf("expected TickInterval=%v, got %v", DefaultTickInterval, player.config.TickInterval)
	}
	if player.IsPlaying() {
		t.Error("expected player to start stopped")
	}
	if player.Speed() != 1 || player.Volume() != 1 {
		t.Errorf("expected unity speed and volume, got %v and %v", player.Speed(), player.Volume())
	}
	if err := player.Play(0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if player.PositionMs() != 0 || player.CurrentAudioLevel() != 0 {
		t.Error("expected zero position and level with nothing loaded")
	}
}

func TestPositionTracksWallClock(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := h.player.Play(2000); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	h.expectState(t, true)

	h.clock.Advance(time.Second)
	if got := h.player.PositionMs(); math.Abs(got-3000) > 1e-6 {
		t.Errorf("expected position 3000, got %v", got)
	}

	h.player.Stop()
	h.expectState(t, false)

	h.clock.Advance(5 * time.Second)
	if got := h.player.PositionMs(); math.Abs(got-3000) > 1e-6 {
		t.Errorf("expected frozen position 3000, got %v", got)
	}
}

func TestPositionScalesWithSpeed(t *testing.T) {
	for _, speed := range []float64{0, 0.5, 1, 2, 4} {
		h := newHarness(t)
		if _, err := h.player.Load(constantBuffer(t, 20000, 1000, 0.5)); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		h.player.SetSpeed(speed, Glide{}, false)
		if err := h.player.Play(0); err != nil {
			t.Fatalf("Play failed: %v", err)
		}

		h.clock.Advance(2 * time.Second)
		want := 2000 * speed
		if got := h.player.PositionMs(); math.Abs(got-want) > 1e-6 {
			t.Errorf("speed %v: expected position %v, got %v", speed, want, got)
		}
	}
}

func TestSpeedChangeKeepsPositionContinuous(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 20000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	h.clock.Advance(time.Second)
	h.player.SetSpeed(2, Glide{}, false)
	if got := h.player.PositionMs(); math.Abs(got-1000) > 1e-6 {
		t.Errorf("expected position 1000 at the speed change, got %v", got)
	}

	h.clock.Advance(time.Second)
	if got := h.player.PositionMs(); math.Abs(got-3000) > 1e-6 {
		t.Errorf("expected position 3000, got %v", got)
	}
}

func TestRenderFollowsPosition(t *testing.T) {
	h := newHarness(t)
	buf := sineBuffer(t, 2000, 1000)
	if _, err := h.player.Load(buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Nothing plays before Play
	for _, v := range h.out().Pull(1) {
		if v != 0 {
			t.Fatal("expected silence while stopped")
		}
	}

	h.player.Play(500)
	block := h.out().Pull(1)
	for i := 0; i < testBlock; i++ {
		if block[2*i] != buf.Data[0][500+i] || block[2*i+1] != buf.Data[1][500+i] {
			t.Fatalf("frame %d does not match the buffer at 500ms", i)
		}
	}

	if stats := h.player.Stats(); stats.PositionFrames != 600 {
		t.Errorf("expected render position 600, got %v", stats.PositionFrames)
	}
}

func TestSetVolumeAppliesNextBlock(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	if got := h.out().Pull(1)[0]; got != 0.5 {
		t.Errorf("expected 0.5 at unity volume, got %v", got)
	}

	h.player.SetVolume(0.25, Glide{})
	block := h.out().Pull(1)
	for i, v := range block {
		if v != 0.125 {
			t.Fatalf("sample %d: expected 0.125, got %v", i, v)
		}
	}
}

func TestVolumeRampIsMonotonicAndExact(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	h.player.SetVolume(0, Glide{Duration: time.Second, Steps: 100})

	prev := h.player.Volume()
	for i := 0; i < 220; i++ {
		h.advance(5 * time.Millisecond)
		v := h.player.Volume()
		if v > prev {
			t.Fatalf("volume increased from %v to %v", prev, v)
		}
		if v < 0 || v > 1 {
			t.Fatalf("volume %v outside [0,1]", v)
		}
		prev = v
	}

	if h.player.Volume() != 0 {
		t.Errorf("expected final volume exactly 0, got %v", h.player.Volume())
	}
}

func TestReplacedRampStartsFromCurrentValue(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	h.player.SetSpeed(0, Over(time.Second), false)
	h.advance(300 * time.Millisecond)
	mid := h.player.Speed()
	if mid <= 0 || mid >= 1 {
		t.Fatalf("expected speed between 0 and 1 mid-ramp, got %v", mid)
	}

	h.player.SetSpeed(2, Over(time.Second), false)
	if h.player.Speed() != mid {
		t.Errorf("expected replacement to start from %v, got %v", mid, h.player.Speed())
	}

	h.advance(1100 * time.Millisecond)
	if h.player.Speed() != 2 {
		t.Errorf("expected final speed 2, got %v", h.player.Speed())
	}
}

func TestSetSpeedClampsNegative(t *testing.T) {
	h := newHarness(t)
	h.player.SetSpeed(-3, Glide{}, false)
	if h.player.Speed() != 0 {
		t.Errorf("expected speed clamped to 0, got %v", h.player.Speed())
	}
}

func TestSpeedRampStopOnEnd(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)

	h.player.SetSpeed(0, Over(200*time.Millisecond), true)
	h.advance(100 * time.Millisecond)
	if !h.player.IsPlaying() {
		t.Fatal("expected playback to continue mid-ramp")
	}

	h.advance(200 * time.Millisecond)
	if h.player.IsPlaying() {
		t.Error("expected playback stopped once the ramp completed")
	}
	h.expectState(t, false)
}

func TestInstantSpeedIgnoresStopOnEnd(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)

	h.player.SetSpeed(0.5, Glide{}, true)
	h.advance(50 * time.Millisecond)
	if !h.player.IsPlaying() || h.player.Speed() != 0.5 {
		t.Errorf("expected playback to continue at 0.5, playing=%v speed=%v", h.player.IsPlaying(), h.player.Speed())
	}
	h.expectNoState(t)
}

func TestEndOfTrackStopsOnce(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 1000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)

	// 1000 frames are exhausted after 10 blocks
	h.out().Pull(12)

	if h.player.IsPlaying() {
		t.Fatal("expected playback stopped at end of track")
	}
	h.expectState(t, false)

	if got := h.player.PositionMs(); got != 1000 {
		t.Errorf("expected position at duration, got %v", got)
	}
	h.clock.Advance(time.Second)
	if got := h.player.PositionMs(); got != 1000 {
		t.Errorf("expected position to stay at duration, got %v", got)
	}

	block := h.out().Pull(3)
	for _, v := range block {
		if v != 0 {
			t.Fatal("expected silence after end of track")
		}
	}
	h.expectNoState(t)

	if h.player.CurrentAudioLevel() != 0 {
		t.Errorf("expected level 0 after stopping, got %v", h.player.CurrentAudioLevel())
	}
}

func TestBitcrushDisableIsBitExact(t *testing.T) {
	h := newHarness(t)
	buf := sineBuffer(t, 4000, 1000)
	if _, err := h.player.Load(buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	h.player.EnableBitcrush(4, 8, 1, Glide{})
	crushed := h.out().Pull(1)
	differs := false
	for i := 0; i < testBlock; i++ {
		if crushed[2*i] != buf.Data[0][i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Fatal("expected bitcrush to alter the signal")
	}

	h.player.DisableBitcrush(Glide{})
	clean := h.out().Pull(1)
	for i := 0; i < testBlock; i++ {
		frame := testBlock + i
		if clean[2*i] != buf.Data[0][frame] || clean[2*i+1] != buf.Data[1][frame] {
			t.Fatalf("frame %d not bit-exact after disabling bitcrush", frame)
		}
	}

	params := h.player.Params().Effects.Bitcrush
	if params.Enabled || params.Bits != 24 || params.Downsample != 1 || params.Mix != 0 {
		t.Errorf("expected neutral bitcrush settings, got %+v", params)
	}
}

func TestBitcrushRampDisable(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(sineBuffer(t, 4000, 1000)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	h.player.EnableBitcrush(6, 4, 1, Over(100*time.Millisecond))
	h.advance(150 * time.Millisecond)
	got := h.player.Params().Effects.Bitcrush
	if !got.Enabled || got.Bits != 6 || got.Downsample != 4 || got.Mix != 1 {
		t.Fatalf("expected bitcrush at target, got %+v", got)
	}

	h.player.DisableBitcrush(Over(100 * time.Millisecond))
	h.advance(150 * time.Millisecond)
	got = h.player.Params().Effects.Bitcrush
	if got.Enabled || got.Mix != 0 {
		t.Errorf("expected bitcrush switched off, got %+v", got)
	}
}

func TestMidpassRampDisable(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(sineBuffer(t, 4000, 1000)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	h.player.EnableMidpass(200, 0.0001, 2, 1, Glide{})
	got := h.player.Params().Effects.Midpass
	if !got.Enabled || got.Mix != 1 || got.Q < 0.001 {
		t.Fatalf("expected clamped enabled midpass, got %+v", got)
	}

	h.player.DisableMidpass(Glide{Duration: 100 * time.Millisecond, Steps: 10})
	h.advance(50 * time.Millisecond)
	if !h.player.Params().Effects.Midpass.Enabled {
		t.Fatal("expected midpass to stay enabled while fading")
	}

	h.advance(100 * time.Millisecond)
	got = h.player.Params().Effects.Midpass
	if got.Enabled || got.Mix != 0 {
		t.Errorf("expected midpass switched off, got %+v", got)
	}
}

func TestChannelDelay(t *testing.T) {
	h := newHarness(t)
	buf := sineBuffer(t, 4000, 1000)
	if _, err := h.player.Load(buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	h.player.SetChannelDelayMs(-5, 10)
	if got := h.player.Params().DelayMs; got != [2]float64{0, 10} {
		t.Fatalf("expected delays [0 10], got %v", got)
	}

	// 10ms at 1kHz delays the right channel by 10 frames
	h.player.Play(0)
	block := h.out().Pull(1)
	for i := 0; i < testBlock; i++ {
		want := float32(0)
		if i >= 10 {
			want = buf.Data[1][i-10]
		}
		if block[2*i+1] != want {
			t.Fatalf("frame %d: expected delayed %v, got %v", i, want, block[2*i+1])
		}
		if block[2*i] != buf.Data[0][i] {
			t.Fatalf("frame %d: left channel should not be delayed", i)
		}
	}

	h.player.SmoothChannelDelay(DelayGlide{RightToMs: Float(0), LeftToMs: Float(4)})
	h.advance(DefaultDelayGlide + 50*time.Millisecond)
	if got := h.player.Params().DelayMs; got != [2]float64{4, 0} {
		t.Errorf("expected delays [4 0], got %v", got)
	}
}

func TestSmoothChannelDelayDefaultsToCurrent(t *testing.T) {
	h := newHarness(t)
	h.player.SetChannelDelayMs(5, 7)

	h.player.SmoothChannelDelay(DelayGlide{LeftFromMs: Float(20)})
	if got := h.player.Params().DelayMs; got != [2]float64{20, 7} {
		t.Errorf("expected glide to start at [20 7], got %v", got)
	}

	h.advance(DefaultDelayGlide + 50*time.Millisecond)
	if got := h.player.Params().DelayMs; got != [2]float64{5, 7} {
		t.Errorf("expected delays back at [5 7], got %v", got)
	}
}

func TestLoadMonoBecomesStereo(t *testing.T) {
	h := newHarness(t)
	mono, err := audio.NewSampleBuffer([][]float32{{0.1, 0.2, 0.3, 0.4}}, 1000)
	if err != nil {
		t.Fatalf("failed to create buffer: %v", err)
	}

	var notified Loaded
	h.player.config.OnLoaded = func(l Loaded) { notified = l }

	loaded, err := h.player.Load(mono)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Buffer.Channels() != 2 {
		t.Errorf("expected 2 channels, got %d", loaded.Buffer.Channels())
	}
	if loaded.ID == "" || notified.ID != loaded.ID {
		t.Errorf("expected OnLoaded with track %q, got %q", loaded.ID, notified.ID)
	}
	if loaded.SampleRate != 1000 || loaded.Duration.Round(time.Millisecond) != 4*time.Millisecond {
		t.Errorf("unexpected load details: %+v", loaded)
	}
	if h.out().Config().Channels != 2 {
		t.Errorf("expected stereo stream, got %d channels", h.out().Config().Channels)
	}
}

func TestLoadRejectsInvalidBuffers(t *testing.T) {
	h := newHarness(t)

	if _, err := h.player.Load(nil); !errors.Is(err, audio.ErrEmptyStream) {
		t.Errorf("expected ErrEmptyStream for nil buffer, got %v", err)
	}

	empty := &audio.SampleBuffer{Data: [][]float32{{}, {}}, SampleRate: 1000}
	if _, err := h.player.Load(empty); !errors.Is(err, audio.ErrEmptyStream) {
		t.Errorf("expected ErrEmptyStream, got %v", err)
	}

	wide := &audio.SampleBuffer{Data: [][]float32{{1}, {1}, {1}}, SampleRate: 1000}
	if _, err := h.player.Load(wide); !errors.Is(err, audio.ErrUnsupportedLayout) {
		t.Errorf("expected ErrUnsupportedLayout, got %v", err)
	}
}

func TestFailedLoadKeepsPreviousTrack(t *testing.T) {
	h := newHarness(t)
	first, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	h.openErr = output.ErrStream
	if _, err := h.player.Load(constantBuffer(t, 5000, 1000, 0.1)); !errors.Is(err, output.ErrStream) {
		t.Fatalf("expected ErrStream, got %v", err)
	}

	status := h.player.Status()
	if !status.Playing || status.TrackID != first.ID {
		t.Errorf("expected first track still playing, got %+v", status)
	}
	if !h.out().IsOpen() {
		t.Error("expected previous output to stay open")
	}
}

func TestLoadReplacesTrack(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)
	h.player.SetVolume(0, Over(time.Second))

	second, err := h.player.Load(constantBuffer(t, 5000, 1000, 0.1))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.expectState(t, false)

	if h.outputs[0].IsOpen() {
		t.Error("expected previous output closed")
	}
	status := h.player.Status()
	if status.Playing || status.TrackID != second.ID || status.Volume != 1 {
		t.Errorf("expected fresh stopped state, got %+v", status)
	}
	if h.player.auto.Len() != 0 {
		t.Error("expected automation cancelled on load")
	}
}

func TestTapeStartsStoppedPlayer(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := h.player.Tape(TapeStart(500, time.Second)); err != nil {
		t.Fatalf("Tape failed: %v", err)
	}
	h.expectState(t, true)

	if h.player.Speed() != 0 {
		t.Errorf("expected start speed applied immediately, got %v", h.player.Speed())
	}
	if got := h.player.PositionMs(); got != 500 {
		t.Errorf("expected position 500, got %v", got)
	}

	h.advance(1100 * time.Millisecond)
	if h.player.Speed() != 1 {
		t.Errorf("expected end speed 1, got %v", h.player.Speed())
	}
}

func TestTapeCleanupOnFinish(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)

	if err := h.player.Tape(TapeEject(200 * time.Millisecond)); err != nil {
		t.Fatalf("Tape failed: %v", err)
	}

	// Tick until the session is gone, recording the speed just before
	lastSpeed := -1.0
	for i := 0; i < 100 && h.player.Status().Loaded; i++ {
		lastSpeed = h.player.Speed()
		h.advance(5 * time.Millisecond)
	}

	if h.player.Status().Loaded {
		t.Fatal("expected cleanup after the tape finished")
	}
	if lastSpeed <= 0 {
		t.Errorf("expected cleanup only after the final ramp step, last speed seen %v", lastSpeed)
	}
	if h.out().IsOpen() {
		t.Error("expected output closed by cleanup")
	}
	h.expectState(t, false)
}

func TestTapeCleanupSkippedWhenSuperseded(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	h.player.Tape(TapeEject(200 * time.Millisecond))
	h.advance(100 * time.Millisecond)
	h.player.SetSpeed(1, Over(200*time.Millisecond), false)
	h.advance(400 * time.Millisecond)

	if !h.player.Status().Loaded {
		t.Fatal("expected superseded tape not to clean up")
	}
	if h.player.Speed() != 1 {
		t.Errorf("expected speed 1, got %v", h.player.Speed())
	}
}

func TestTapeStopThenStart(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)
	h.player.SetVolume(0.8, Glide{})

	if err := h.player.Tape(TapeStop(DefaultTapeDuration)); err != nil {
		t.Fatalf("Tape stop failed: %v", err)
	}
	h.advance(2 * time.Second)

	status := h.player.Status()
	if !status.Loaded {
		t.Fatal("expected track to stay loaded after a tape stop")
	}
	if status.Speed != 0 || status.Volume != 0.8 {
		t.Errorf("expected speed 0 at volume 0.8, got speed %v volume %v", status.Speed, status.Volume)
	}
	if h.player.auto.Len() != 0 {
		t.Error("expected the tape stop to finish")
	}

	stoppedAt := h.player.PositionMs()
	if err := h.player.Tape(TapeStart(stoppedAt, DefaultTapeDuration)); err != nil {
		t.Fatalf("Tape start after tape stop failed: %v", err)
	}
	h.advance(2 * time.Second)

	status = h.player.Status()
	if !status.Playing || status.Speed != 1 || status.Volume != 0.8 {
		t.Errorf("expected playback at speed 1 volume 0.8, got %+v", status)
	}
	if status.PositionMs <= stoppedAt {
		t.Errorf("expected position to advance past %v, got %v", stoppedAt, status.PositionMs)
	}
	h.expectNoState(t)
}

func TestTapeInstant(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	req := TapeRequest{StartFade: Float(1), EndFade: Float(0.5), EndSpeed: Float(1.5), Instant: true}
	if err := h.player.Tape(req); err != nil {
		t.Fatalf("Tape failed: %v", err)
	}
	if h.player.Volume() != 0.5 || h.player.Speed() != 1.5 {
		t.Errorf("expected end values applied, got volume %v speed %v", h.player.Volume(), h.player.Speed())
	}
}

func TestTapeRequiresTrack(t *testing.T) {
	h := newHarness(t)
	if err := h.player.Tape(TapeStart(0, time.Second)); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestToggleAndSeek(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := h.player.Toggle(1000); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if !h.player.IsPlaying() {
		t.Fatal("expected toggle to start playback")
	}

	if err := h.player.Seek(4000); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if got := h.player.PositionMs(); got != 4000 {
		t.Errorf("expected position 4000, got %v", got)
	}

	if err := h.player.Seek(20000); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if got := h.player.PositionMs(); got != 10000 {
		t.Errorf("expected seek clamped to 10000, got %v", got)
	}

	h.player.Toggle(0)
	if h.player.IsPlaying() {
		t.Error("expected toggle to stop playback")
	}
}

func TestRenderFaultIsContained(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)

	// A block larger than the session scratch triggers a fault
	s := h.player.session.Load()
	out := make([]float32, 4*testBlock*2)
	for i := range out {
		out[i] = 1
	}
	h.player.render(s, out)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d: expected zeroed block after fault, got %v", i, v)
		}
	}
	if h.player.Stats().Faults != 1 {
		t.Errorf("expected 1 fault, got %d", h.player.Stats().Faults)
	}

	// Normal rendering continues
	if got := h.out().Pull(1)[0]; got != 0.5 {
		t.Errorf("expected rendering to recover, got %v", got)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.player.Cleanup()

	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.expectState(t, true)

	h.player.Cleanup()
	h.player.Cleanup()
	h.expectState(t, false)
	h.expectNoState(t)

	if h.out().IsOpen() {
		t.Error("expected output closed")
	}
	if err := h.player.Play(0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded after cleanup, got %v", err)
	}
}

func TestLevelFollowsRender(t *testing.T) {
	h := newHarness(t)
	if _, err := h.player.Load(constantBuffer(t, 10000, 1000, 0.5)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h.player.Play(0)
	h.out().Pull(1)

	if got := h.player.CurrentAudioLevel(); got != 1 {
		t.Errorf("expected level 1 for a constant track, got %v", got)
	}

	h.player.Stop()
	h.out().Pull(1)
	if got := h.player.CurrentAudioLevel(); got != 0 {
		t.Errorf("expected level 0 while stopped, got %v", got)
	}
}
