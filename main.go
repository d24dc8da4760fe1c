// ABOUTME: Entry point for the Cassette player
// ABOUTME: Parses CLI flags, loads a track and runs the deck UI and remote control
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cassette-audio/cassette-go/internal/discovery"
	"github.com/cassette-audio/cassette-go/internal/remote"
	"github.com/cassette-audio/cassette-go/internal/ui"
	"github.com/cassette-audio/cassette-go/internal/version"
	"github.com/cassette-audio/cassette-go/pkg/analysis"
	"github.com/cassette-audio/cassette-go/pkg/audio/decode"
	"github.com/cassette-audio/cassette-go/pkg/audio/output"
	"github.com/cassette-audio/cassette-go/pkg/playback"
	"golang.org/x/sync/errgroup"
)

var (
	file       = flag.String("file", "", "Audio file to play (wav, mp3, flac, opus)")
	backend    = flag.String("backend", "oto", "Output backend: oto, malgo, portaudio or headless")
	blockSize  = flag.Int("block", output.DefaultBlockSize, "Frames rendered per output callback")
	latency    = flag.String("latency", "low", "Output latency hint: low or high")
	rate       = flag.Int("rate", 48000, "Resample the track to this rate (0 keeps the file rate)")
	paused     = flag.Bool("paused", false, "Load the track without starting playback")
	analyze    = flag.Bool("analyze", false, "Detect the tempo before playing")
	logFile    = flag.String("log-file", "cassette-player.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	remotePort = flag.Int("remote-port", remote.DefaultPort, "Remote control port (0 disables)")
	noMDNS     = flag.Bool("no-mdns", false, "Do not advertise the remote control over mDNS")
	name       = flag.String("name", "", "Player friendly name (default: hostname-cassette)")
)

func main() {
	flag.Parse()

	path := *file
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-cassette", hostname)
	}

	log.Printf("Starting %s %s: %s", version.Product, version.Version, playerName)

	if err := run(path, playerName, useTUI); err != nil {
		log.Printf("Fatal: %v", err)
		if useTUI {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	log.Printf("Shutdown complete")
}

func run(path, playerName string, useTUI bool) error {
	lat, err := output.ParseLatency(*latency)
	if err != nil {
		return err
	}

	buf, err := decode.File(path, decode.Options{TargetRate: *rate})
	if err != nil {
		return err
	}

	track := ui.TrackInfo{
		Title:   filepath.Base(path),
		Backend: *backend,
	}

	if *analyze {
		start := time.Now()
		result := analysis.DetectBeats(buf, analysis.Options{})
		track.BPM = result.BPM
		log.Printf("Tempo: %.2f BPM (%d beats, analysed in %v)", result.BPM, len(result.Beats), time.Since(start).Round(time.Millisecond))
	}

	// Headless streams have no device clock, so they are paced here
	headless := make(chan *output.Headless, 1)
	newOutput := func() (output.Output, error) {
		if *backend != "headless" {
			return output.New(*backend)
		}
		h := output.NewHeadless()
		select {
		case headless <- h:
		default:
		}
		return h, nil
	}

	player := playback.NewPlayer(playback.Config{
		Backend:   *backend,
		BlockSize: *blockSize,
		Latency:   lat,
		NewOutput: newOutput,
		OnStateChange: func(playing bool) {
			log.Printf("Playing: %v", playing)
		},
		OnLoaded: func(l playback.Loaded) {
			log.Printf("Loaded %s: %d Hz, %d channels, %v", l.ID, l.SampleRate, l.Buffer.Channels(), l.Duration.Round(time.Millisecond))
		},
		OnError: func(err error) {
			log.Printf("Player error: %v", err)
		},
	})
	defer player.Close()

	if _, err := player.Load(buf); err != nil {
		return err
	}
	if !*paused {
		if err := player.Play(0); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return player.Run(gctx)
	})

	g.Go(func() error {
		select {
		case h := <-headless:
			if err := h.RunRealtime(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-gctx.Done():
		}
		return nil
	})

	if *remotePort > 0 {
		srv := remote.New(remote.Config{
			Port:       *remotePort,
			Name:       playerName,
			EnableMDNS: !*noMDNS,
		}, player)
		track.Remote = fmt.Sprintf("port %d%s", *remotePort, discovery.DefaultPath)

		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if useTUI {
		g.Go(func() error {
			defer stop()
			return ui.New(gctx, player, track).Run()
		})
	} else {
		g.Go(func() error {
			logStatus(gctx, player)
			return nil
		})
	}

	return g.Wait()
}

// logStatus prints the deck state every few seconds
func logStatus(ctx context.Context, player *playback.Player) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := player.Status()
			stats := player.Stats()
			log.Printf("Status: playing=%v position=%.0f/%.0fms speed=%.2f volume=%.2f level=%.3f | blocks=%d faults=%d",
				status.Playing, status.PositionMs, status.DurationMs, status.Speed, status.Volume, status.Level,
				stats.Blocks, stats.Faults)
		}
	}
}
