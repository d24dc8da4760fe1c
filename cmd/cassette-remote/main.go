// ABOUTME: Command-line remote for Cassette players
// ABOUTME: Finds a player over mDNS or by URL and sends it one command
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassette-audio/cassette-go/internal/discovery"
	"github.com/cassette-audio/cassette-go/internal/remote"
	"github.com/google/uuid"
)

var (
	playerURL = flag.String("url", "", "Player websocket URL (skip mDNS), e.g. ws://host:8928/cassette")
	name      = flag.String("name", "cassette-remote", "Remote name reported to the player")
	timeout   = flag.Duration("discover-timeout", 5*time.Second, "How long to browse for players")
	glideMs   = flag.Float64("glide", 0, "Glide duration in milliseconds for speed, volume, effect and delay commands")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> [args]\n\n%s\nflags:\n", os.Args[0], usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, err := parseCommand(flag.Args(), *glideMs)
	if err != nil {
		log.Fatalf("%v", err)
	}

	url := *playerURL
	if url == "" {
		url, err = discover(*timeout)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	client := remote.NewClient(remote.ClientConfig{
		URL:      url,
		ClientID: uuid.New().String(),
		Name:     *name,
	})
	if err := client.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if cmd.watch {
		watch(client)
		return
	}

	// Skip the status sent on connect so the reply reflects the command
	select {
	case <-client.Statuses:
	case <-time.After(time.Second):
	}

	if err := client.Send(cmd.msgType, cmd.payload); err != nil {
		log.Fatalf("Failed to send %s: %v", cmd.msgType, err)
	}

	// The player answers every command with a status or an error
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-client.Errors:
			log.Fatalf("Player rejected %s: %s", cmd.msgType, e.Message)
		case status := <-client.Statuses:
			printStatus(status)
			return
		case <-client.Done():
			log.Fatalf("Connection closed")
		case <-deadline:
			log.Fatalf("No reply from player")
		}
	}
}

// discover returns the URL of the first player found
func discover(timeout time.Duration) (string, error) {
	log.Printf("Browsing for players...")
	mgr := discovery.NewManager(discovery.Config{})
	defer mgr.Stop()

	if err := mgr.Browse(); err != nil {
		return "", fmt.Errorf("browse failed: %w", err)
	}

	select {
	case svc := <-mgr.Services():
		log.Printf("Using %s at %s", svc.Name, svc.URL())
		return svc.URL(), nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no player found after %v", timeout)
	}
}

// watch prints telemetry until interrupted
func watch(client *remote.Client) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	last := time.Time{}
	for {
		select {
		case status := <-client.Statuses:
			if time.Since(last) < 500*time.Millisecond {
				continue
			}
			last = time.Now()
			printStatus(status)
		case e := <-client.Errors:
			log.Printf("Player error: %s", e.Message)
		case <-client.Done():
			return
		case <-sigChan:
			return
		}
	}
}

func printStatus(s remote.Status) {
	state := "stopped"
	if s.Playing {
		state = "playing"
	}
	if !s.Loaded {
		state = "empty"
	}
	fmt.Printf("%s %.0f/%.0fms speed=%.2f volume=%.2f level=%.3f midpass=%v bitcrush=%v delay=%.1f/%.1fms\n",
		state, s.PositionMs, s.DurationMs, s.Speed, s.Volume, s.Level,
		s.MidpassEnabled, s.BitcrushEnabled, s.DelayMs[0], s.DelayMs[1])
}
