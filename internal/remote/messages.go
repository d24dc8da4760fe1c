// ABOUTME: Remote control message type definitions
// ABOUTME: JSON envelopes and payloads exchanged over the control websocket
package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/playback"
)

// ProtocolVersion is reported in server/hello
const ProtocolVersion = 1

// Message types
const (
	TypeClientHello = "client/hello"
	TypeServerHello = "server/hello"
	TypeError       = "server/error"
	TypeStatus      = "player/status"

	TypePlay     = "player/play"
	TypeStop     = "player/stop"
	TypeToggle   = "player/toggle"
	TypeSeek     = "player/seek"
	TypeSpeed    = "player/speed"
	TypeVolume   = "player/volume"
	TypeTape     = "player/tape"
	TypeMidpass  = "player/midpass"
	TypeBitcrush = "player/bitcrush"
	TypeDelay    = "player/delay"
)

// Message is the top-level wrapper for all messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientHello is sent by clients to open a session
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string `json:"server_id"`
	Name     string `json:"name"`
	Product  string `json:"product"`
	Version  int    `json:"version"`
}

// ErrorMessage reports a rejected request
type ErrorMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status is the periodic player telemetry
type Status struct {
	TrackID         string     `json:"track_id,omitempty"`
	Loaded          bool       `json:"loaded"`
	Playing         bool       `json:"playing"`
	PositionMs      float64    `json:"position_ms"`
	DurationMs      float64    `json:"duration_ms"`
	Level           float32    `json:"level"`
	Speed           float64    `json:"speed"`
	Volume          float64    `json:"volume"`
	MidpassEnabled  bool       `json:"midpass_enabled"`
	BitcrushEnabled bool       `json:"bitcrush_enabled"`
	DelayMs         [2]float64 `json:"delay_ms"`
}

// StatusFrom converts a player snapshot to telemetry
func StatusFrom(s playback.Status) Status {
	return Status{
		TrackID:         s.TrackID,
		Loaded:          s.Loaded,
		Playing:         s.Playing,
		PositionMs:      s.PositionMs,
		DurationMs:      s.DurationMs,
		Level:           s.Level,
		Speed:           s.Speed,
		Volume:          s.Volume,
		MidpassEnabled:  s.Midpass.Enabled,
		BitcrushEnabled: s.Bitcrush.Enabled && s.Bitcrush.Mix > 0,
		DelayMs:         s.DelayMs,
	}
}

// Glide fields shared by automated commands
type Glide struct {
	DurationMs float64 `json:"duration_ms,omitempty"`
	Steps      int     `json:"steps,omitempty"`
}

func (g Glide) glide() playback.Glide {
	return playback.Glide{
		Duration: msToDuration(g.DurationMs),
		Steps:    g.Steps,
	}
}

// PlayCommand starts playback
type PlayCommand struct {
	StartMs float64 `json:"start_ms"`
}

// SeekCommand moves the play position
type SeekCommand struct {
	PositionMs float64 `json:"position_ms"`
}

// SpeedCommand changes the playback rate
type SpeedCommand struct {
	Target    float64 `json:"target"`
	StopOnEnd bool    `json:"stop_on_end,omitempty"`
	Glide
}

// VolumeCommand changes the output gain
type VolumeCommand struct {
	Target float64 `json:"target"`
	Glide
}

// TapeCommand runs a combined fade and speed transition
type TapeCommand struct {
	StartFade       *float64 `json:"start_fade,omitempty"`
	EndFade         *float64 `json:"end_fade,omitempty"`
	StartSpeed      *float64 `json:"start_speed,omitempty"`
	EndSpeed        *float64 `json:"end_speed,omitempty"`
	StartMs         *float64 `json:"start_ms,omitempty"`
	DurationMs      float64  `json:"duration_ms,omitempty"`
	Steps           int      `json:"steps,omitempty"`
	CleanupOnFinish bool     `json:"cleanup_on_finish,omitempty"`
}

func (c TapeCommand) request() playback.TapeRequest {
	return playback.TapeRequest{
		StartFade:       c.StartFade,
		EndFade:         c.EndFade,
		StartSpeed:      c.StartSpeed,
		EndSpeed:        c.EndSpeed,
		StartMs:         c.StartMs,
		Duration:        msToDuration(c.DurationMs),
		Steps:           c.Steps,
		CleanupOnFinish: c.CleanupOnFinish,
	}
}

// MidpassCommand switches or glides the band-pass
type MidpassCommand struct {
	Enabled  bool    `json:"enabled"`
	CenterHz float64 `json:"center_hz,omitempty"`
	Q        float64 `json:"q,omitempty"`
	Mix      float64 `json:"mix,omitempty"`
	Gain     float64 `json:"gain,omitempty"`
	Glide
}

// BitcrushCommand switches or glides the bitcrusher
type BitcrushCommand struct {
	Enabled    bool    `json:"enabled"`
	Bits       int     `json:"bits,omitempty"`
	Downsample int     `json:"downsample,omitempty"`
	Mix        float64 `json:"mix,omitempty"`
	Glide
}

// DelayCommand sets or glides the per-channel delays
type DelayCommand struct {
	LeftMs  *float64 `json:"left_ms,omitempty"`
	RightMs *float64 `json:"right_ms,omitempty"`
	Glide
}

// decodePayload converts a generic payload into a typed command
func decodePayload(payload interface{}, v interface{}) error {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
