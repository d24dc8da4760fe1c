// ABOUTME: Parses remote command-line verbs into control messages
// ABOUTME: One verb per invocation, e.g. "speed 0.5" or "bitcrush on 6"
package main

import (
	"fmt"
	"strconv"

	"github.com/cassette-audio/cassette-go/internal/remote"
)

const usage = `commands:
  play [ms]              start playback, optionally from ms
  stop                   stop playback
  toggle [ms]            toggle playback
  seek <ms>              move the play position
  speed <rate>           change playback rate (0 halts)
  volume <gain>          change output gain in [0,1]
  tape-stop [ms]         slow to a halt over ms, keeping the track loaded
  tape-start [ms]        spin up from a halt over ms
  midpass on|off         toggle the band-pass
  bitcrush on|off [bits] toggle the bitcrusher
  delay <left> <right>   set per-channel delays in ms
  watch                  print telemetry until interrupted`

// command is one parsed invocation
type command struct {
	msgType string
	payload interface{}
	watch   bool
}

// parseCommand converts CLI arguments into a control message
func parseCommand(args []string, glideMs float64) (command, error) {
	if len(args) == 0 {
		return command{}, fmt.Errorf("missing command")
	}

	glide := remote.Glide{DurationMs: glideMs}
	verb, rest := args[0], args[1:]

	switch verb {
	case "play", "toggle":
		startMs, err := optionalFloat(rest, 0)
		if err != nil {
			return command{}, err
		}
		msgType := remote.TypePlay
		if verb == "toggle" {
			msgType = remote.TypeToggle
		}
		return command{msgType: msgType, payload: remote.PlayCommand{StartMs: startMs}}, nil

	case "stop":
		return command{msgType: remote.TypeStop}, nil

	case "seek":
		ms, err := requiredFloat(verb, rest)
		if err != nil {
			return command{}, err
		}
		return command{msgType: remote.TypeSeek, payload: remote.SeekCommand{PositionMs: ms}}, nil

	case "speed":
		rate, err := requiredFloat(verb, rest)
		if err != nil {
			return command{}, err
		}
		return command{msgType: remote.TypeSpeed, payload: remote.SpeedCommand{Target: rate, Glide: glide}}, nil

	case "volume":
		gain, err := requiredFloat(verb, rest)
		if err != nil {
			return command{}, err
		}
		return command{msgType: remote.TypeVolume, payload: remote.VolumeCommand{Target: gain, Glide: glide}}, nil

	case "tape-stop", "tape-start":
		durationMs, err := optionalFloat(rest, 0)
		if err != nil {
			return command{}, err
		}
		zero, one := 0.0, 1.0
		tape := remote.TapeCommand{DurationMs: durationMs}
		if verb == "tape-stop" {
			tape.EndSpeed = &zero
		} else {
			tape.StartSpeed = &zero
			tape.EndSpeed = &one
		}
		return command{msgType: remote.TypeTape, payload: tape}, nil

	case "midpass":
		on, err := onOff(verb, rest)
		if err != nil {
			return command{}, err
		}
		return command{msgType: remote.TypeMidpass, payload: remote.MidpassCommand{Enabled: on, Glide: glide}}, nil

	case "bitcrush":
		on, err := onOff(verb, rest)
		if err != nil {
			return command{}, err
		}
		bits := 0
		if len(rest) > 1 {
			bits, err = strconv.Atoi(rest[1])
			if err != nil {
				return command{}, fmt.Errorf("bitcrush: invalid bit depth %q", rest[1])
			}
		}
		return command{msgType: remote.TypeBitcrush, payload: remote.BitcrushCommand{Enabled: on, Bits: bits, Glide: glide}}, nil

	case "delay":
		if len(rest) != 2 {
			return command{}, fmt.Errorf("delay: expected <left> <right>")
		}
		left, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return command{}, fmt.Errorf("delay: invalid left delay %q", rest[0])
		}
		right, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return command{}, fmt.Errorf("delay: invalid right delay %q", rest[1])
		}
		return command{msgType: remote.TypeDelay, payload: remote.DelayCommand{LeftMs: &left, RightMs: &right, Glide: glide}}, nil

	case "watch":
		return command{watch: true}, nil

	default:
		return command{}, fmt.Errorf("unknown command %q", verb)
	}
}

func requiredFloat(verb string, args []string) (float64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s: missing value", verb)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", verb, args[0])
	}
	return v, nil
}

func optionalFloat(args []string, fallback float64) (float64, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", args[0])
	}
	return v, nil
}

func onOff(verb string, args []string) (bool, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("%s: expected on or off", verb)
	}
	switch args[0] {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s: expected on or off, got %q", verb, args[0])
	}
}
