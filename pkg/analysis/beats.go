// ABOUTME: Beat and tempo detection for loaded tracks
// ABOUTME: Spectral-flux onsets picked against an adaptive median threshold
package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	DefaultHopSize    = 256
	DefaultWindowSize = 1024
	DefaultSilenceDB  = -40.0
	DefaultMinGap     = 100 * time.Millisecond

	// Beat intervals outside this range do not count towards the tempo
	minInterval = 0.08
	maxInterval = 10.0

	// Adaptive threshold: median of the surrounding frames times a multiplier
	thresholdRadius     = 8
	thresholdMultiplier = 1.5
	thresholdFloor      = 0.05 // fraction of the strongest onset
)

// Options tunes beat detection. Zero values use the defaults.
type Options struct {
	HopSize    int
	WindowSize int
	SilenceDB  float64
	MinGap     time.Duration
}

func (o Options) withDefaults() Options {
	if o.HopSize <= 0 {
		o.HopSize = DefaultHopSize
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.SilenceDB == 0 {
		o.SilenceDB = DefaultSilenceDB
	}
	if o.MinGap <= 0 {
		o.MinGap = DefaultMinGap
	}
	return o
}

// Result holds detected beats and the tempo estimate
type Result struct {
	BPM      float64   // 0 when no tempo could be estimated
	Beats    []float64 // beat times in seconds
	Duration float64   // analyzed length in seconds
}

// DetectBeats finds beat onsets in buf and estimates its tempo
func DetectBeats(buf *audio.SampleBuffer, opts Options) Result {
	opts = opts.withDefaults()
	if buf == nil || buf.Frames() == 0 || buf.SampleRate <= 0 {
		return Result{}
	}

	mono := mixdown(buf)
	flux := spectralFlux(mono, opts)
	onsets := pickOnsets(flux, opts, buf.SampleRate)

	beats := make([]float64, len(onsets))
	for i, frame := range onsets {
		t := float64(frame*opts.HopSize) / float64(buf.SampleRate)
		beats[i] = math.Round(t*1e6) / 1e6
	}

	duration := float64(buf.Frames()) / float64(buf.SampleRate)
	return Result{
		BPM:      EstimateBPM(beats, duration),
		Beats:    beats,
		Duration: duration,
	}
}

// EstimateBPM derives a tempo from beat times: the median of the per-interval
// tempos, or the beat rate over the whole duration when there is a single beat.
// The result is rounded to two decimals.
func EstimateBPM(beats []float64, duration float64) float64 {
	if len(beats) < 2 {
		if duration > 0 && len(beats) > 0 {
			return round2(60 * float64(len(beats)) / duration)
		}
		return 0
	}

	var bpms []float64
	for i := 1; i < len(beats); i++ {
		interval := beats[i] - beats[i-1]
		if interval > minInterval && interval < maxInterval {
			bpms = append(bpms, 60/interval)
		}
	}
	if len(bpms) == 0 {
		return 0
	}

	bpm := median(bpms)
	if math.IsInf(bpm, 0) || math.IsNaN(bpm) || bpm <= 0 {
		return 0
	}
	return round2(bpm)
}

func mixdown(buf *audio.SampleBuffer) []float64 {
	mono := make([]float64, buf.Frames())
	scale := 1 / float64(buf.Channels())
	for _, ch := range buf.Data {
		for i, s := range ch {
			mono[i] += float64(s) * scale
		}
	}
	return mono
}

// spectralFlux returns the positive magnitude change per hop. Frames quieter
// than the silence gate contribute no flux.
func spectralFlux(mono []float64, opts Options) []float64 {
	win := opts.WindowSize
	bins := win/2 + 1
	prev := make([]float64, bins)
	mags := make([]float64, bins)
	frame := make([]float64, win)

	var flux []float64
	for start := 0; start < len(mono); start += opts.HopSize {
		// Zero-pad the final frames
		clear(frame)
		copy(frame, mono[start:min(start+win, len(mono))])

		silent := rmsDB(frame) < opts.SilenceDB
		window.Apply(frame, window.Hann)
		coeffs := fft.FFTReal(frame)

		sum := 0.0
		for k := 0; k < bins; k++ {
			re, im := real(coeffs[k]), imag(coeffs[k])
			mags[k] = math.Sqrt(re*re + im*im)
			if d := mags[k] - prev[k]; d > 0 {
				sum += d
			}
		}
		if silent {
			sum = 0
		}

		flux = append(flux, sum)
		prev, mags = mags, prev
	}
	return flux
}

// pickOnsets returns frame indexes of local flux peaks above the threshold
func pickOnsets(flux []float64, opts Options, sampleRate int) []int {
	peak := 0.0
	for _, f := range flux {
		peak = math.Max(peak, f)
	}
	if peak == 0 {
		return nil
	}

	minGapFrames := int(math.Ceil(opts.MinGap.Seconds() * float64(sampleRate) / float64(opts.HopSize)))
	floor := peak * thresholdFloor

	var onsets []int
	last := -minGapFrames
	for i, f := range flux {
		if f <= floor {
			continue
		}
		if i > 0 && f <= flux[i-1] {
			continue
		}
		if i+1 < len(flux) && f < flux[i+1] {
			continue
		}

		lo := max(0, i-thresholdRadius)
		hi := min(len(flux), i+thresholdRadius+1)
		if f <= thresholdMultiplier*median(flux[lo:hi]) {
			continue
		}

		if i-last < minGapFrames {
			continue
		}
		onsets = append(onsets, i)
		last = i
	}
	return onsets
}

func rmsDB(frame []float64) float64 {
	sum := 0.0
	for _, s := range frame {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
