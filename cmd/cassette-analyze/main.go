// ABOUTME: Offline tempo analysis tool
// ABOUTME: Decodes audio files and prints their detected beats and BPM
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/analysis"
	"github.com/cassette-audio/cassette-go/pkg/audio/decode"
)

var (
	hop       = flag.Int("hop", analysis.DefaultHopSize, "Analysis hop size in samples")
	window    = flag.Int("window", analysis.DefaultWindowSize, "FFT window size in samples")
	silenceDB = flag.Float64("silence-db", analysis.DefaultSilenceDB, "Frames quieter than this are ignored")
	beats     = flag.Bool("beats", false, "Print every detected beat time")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := analysis.Options{
		HopSize:    *hop,
		WindowSize: *window,
		SilenceDB:  *silenceDB,
	}

	failed := false
	for _, path := range flag.Args() {
		if err := analyze(path, opts); err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func analyze(path string, opts analysis.Options) error {
	buf, err := decode.File(path, decode.Options{})
	if err != nil {
		return err
	}

	start := time.Now()
	result := analysis.DetectBeats(buf, opts)
	elapsed := time.Since(start)

	fmt.Printf("%s: %.2f BPM, %d beats over %.1fs (analysed in %v)\n",
		path, result.BPM, len(result.Beats), result.Duration, elapsed.Round(time.Millisecond))

	if *beats && len(result.Beats) > 0 {
		times := make([]string, len(result.Beats))
		for i, b := range result.Beats {
			times[i] = fmt.Sprintf("%.3f", b)
		}
		fmt.Printf("  beats: %s\n", strings.Join(times, " "))
	}
	return nil
}
