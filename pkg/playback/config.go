// ABOUTME: Player configuration, clock and request types
// ABOUTME: Defaults are applied in NewPlayer the same way for every field
package playback

import (
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/cassette-audio/cassette-go/pkg/audio/effects"
	"github.com/cassette-audio/cassette-go/pkg/audio/output"
	"github.com/cassette-audio/cassette-go/pkg/automation"
)

const (
	// DefaultTickInterval is the automation cadence
	DefaultTickInterval = 5 * time.Millisecond

	// DefaultTapeDuration and DefaultTapeSteps shape a tape transition
	DefaultTapeDuration = 1500 * time.Millisecond
	DefaultTapeSteps    = 100

	// DefaultDelayGlide is the channel delay glide length
	DefaultDelayGlide = 500 * time.Millisecond
)

// Clock supplies wall time for position reporting and automation
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds player configuration
type Config struct {
	// Backend names the output used when NewOutput is nil (default: oto)
	Backend string

	// BlockSize is the number of frames rendered per callback (default: 256)
	BlockSize int

	// Latency is the device latency hint (default: low)
	Latency output.Latency

	// TickInterval is how often Run advances automation (default: 5ms)
	TickInterval time.Duration

	// Clock overrides wall time (default: system clock)
	Clock Clock

	// NewOutput creates the output for each loaded track
	NewOutput func() (output.Output, error)

	// OnStateChange is called when playback starts or stops
	OnStateChange func(playing bool)

	// OnLoaded is called after a track is loaded
	OnLoaded func(Loaded)

	// OnError is called when errors occur on the render path
	OnError func(error)
}

// Loaded describes a successfully loaded track
type Loaded struct {
	ID         string
	Buffer     *audio.SampleBuffer
	SampleRate int
	Duration   time.Duration
}

// Glide shapes an automation request. The zero value applies the target immediately.
// TapeRequest and DelayGlide differ: their zero Duration means the default
// length, so they carry an explicit Instant flag instead.
type Glide struct {
	Duration time.Duration
	Steps    int               // default: 50
	Easing   automation.Easing // default: smoothstep
}

// Over returns a glide of the given length with default steps
func Over(d time.Duration) Glide {
	return Glide{Duration: d}
}

func (g Glide) instant() bool {
	return g.Duration <= 0
}

func (g Glide) ramp(start, target []float64, now time.Time) *automation.Ramp {
	return automation.NewRamp(start, target, g.Duration, g.Steps, g.Easing, now)
}

// TapeRequest is a combined volume and speed transition.
// Nil start values keep the current value; nil end values keep the start value.
type TapeRequest struct {
	StartFade  *float64
	EndFade    *float64
	StartSpeed *float64
	EndSpeed   *float64

	// StartMs is where playback begins if the player is stopped (default: 0)
	StartMs *float64

	// Duration of the glide (default: 1.5s); Instant applies end values at once
	Duration time.Duration
	Instant  bool
	Steps    int // default: 100

	// CleanupOnFinish tears the stream down once the final speed is reached
	CleanupOnFinish bool
}

// TapeStop slows playback to a halt. The track stays loaded and the volume
// is untouched, so a later TapeStart resumes from where the tape stopped.
func TapeStop(d time.Duration) TapeRequest {
	return TapeRequest{
		EndSpeed: Float(0),
		Duration: d,
	}
}

// TapeEject slows playback to a halt and then releases the stream
func TapeEject(d time.Duration) TapeRequest {
	req := TapeStop(d)
	req.CleanupOnFinish = true
	return req
}

// TapeStart spins playback up from a standstill. StartMs only applies when
// the player is stopped; a tape halted by TapeStop resumes in place.
func TapeStart(startMs float64, d time.Duration) TapeRequest {
	return TapeRequest{
		StartSpeed: Float(0),
		EndSpeed:   Float(1),
		StartMs:    Float(startMs),
		Duration:   d,
	}
}

// DelayGlide moves the per-channel delays. Nil values take the current delay,
// so a lone LeftFromMs glides from that value back to where the left channel is now.
type DelayGlide struct {
	LeftFromMs  *float64
	LeftToMs    *float64
	RightFromMs *float64
	RightToMs   *float64

	// Duration of the glide (default: 0.5s); Instant applies targets at once
	Duration time.Duration
	Instant  bool
	Steps    int // default: 50
}

// Float returns a pointer to v, for optional request fields
func Float(v float64) *float64 {
	return &v
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// Status is a point-in-time view of the player for UIs
type Status struct {
	TrackID    string
	Loaded     bool
	Playing    bool
	PositionMs float64
	DurationMs float64
	Level      float32
	Speed      float64
	Volume     float64
	Midpass    effects.MidpassParams
	Bitcrush   effects.BitcrushParams
	DelayMs    [2]float64
}

// Stats contains render statistics
type Stats struct {
	Blocks         uint64
	Faults         uint64
	PositionFrames float64
}
