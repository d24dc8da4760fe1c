// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pull-model float32 playback; oto reads rendered blocks through an io.Reader
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every Oto output shares it
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
	otoOpen     int
)

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	player *oto.Player
	cfg    StreamConfig
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Open initializes the shared context and starts a player pulling from render
func (o *Oto) Open(cfg StreamConfig, render RenderFunc) error {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("%w: oto output already open", ErrStream)
	}

	ctx, err := acquireOtoContext(cfg)
	if err != nil {
		return err
	}

	reader := &otoReader{
		feeder: newBlockFeeder(cfg, render),
	}

	player := ctx.NewPlayer(reader)
	player.SetBufferSize(bufferFrames(cfg) * cfg.Channels * 4)
	player.Play()

	o.player = player
	o.cfg = cfg

	log.Printf("Audio output initialized: %dHz, %d channels, block %d, %s latency (oto/f32)",
		cfg.SampleRate, cfg.Channels, cfg.BlockSize, cfg.Latency)

	return nil
}

// Close stops the player; the shared context is suspended once no player remains
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return nil
	}

	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	releaseOtoContext()

	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}

func acquireOtoContext(cfg StreamConfig) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		// The context cannot be reinitialized with another format
		if otoRate != cfg.SampleRate || otoChannels != cfg.Channels {
			return nil, fmt.Errorf("%w: oto context is fixed at %dHz/%dch, cannot open %dHz/%dch",
				ErrStream, otoRate, otoChannels, cfg.SampleRate, cfg.Channels)
		}
		if otoOpen == 0 {
			if err := otoCtx.Resume(); err != nil {
				return nil, fmt.Errorf("%w: failed to resume oto context: %v", ErrStream, err)
			}
		}
		otoOpen++
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(bufferFrames(cfg)) * time.Second / time.Duration(cfg.SampleRate),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %v", ErrStream, err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = cfg.SampleRate
	otoChannels = cfg.Channels
	otoOpen = 1
	return ctx, nil
}

func releaseOtoContext() {
	otoMu.Lock()
	defer otoMu.Unlock()

	otoOpen--
	if otoOpen <= 0 && otoCtx != nil {
		otoOpen = 0
		if err := otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto context suspend error: %v", err)
		}
	}
}

// bufferFrames is the device-side buffering for a latency hint
func bufferFrames(cfg StreamConfig) int {
	if cfg.Latency == LatencyHigh {
		return cfg.BlockSize * 8
	}
	return cfg.BlockSize * 2
}

// otoReader encodes rendered blocks as little-endian float32 bytes
type otoReader struct {
	feeder  *blockFeeder
	scratch []float32
}

// Read fills p with whole samples; oto calls it from its audio goroutine
func (r *otoReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, nil
	}
	if cap(r.scratch) < n {
		r.scratch = make([]float32, n)
	}
	samples := r.scratch[:n]
	r.feeder.Fill(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
