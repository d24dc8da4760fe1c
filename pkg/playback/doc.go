// ABOUTME: Playback controller package
// ABOUTME: Loads a buffer and renders it with speed, volume, effects and tape automation
// Package playback renders a loaded track through an output device.
//
// A Player owns one track at a time. Control calls publish immutable
// parameter snapshots that the render callback reads once per block, so the
// audio thread never takes a lock:
//   - Transport: Play, Stop, Toggle, Seek and end-of-track detection
//   - Automation: SetSpeed, SetVolume and the effect controls glide over time
//   - Tape: combined fade and speed transitions with optional cleanup
//   - Reporting: PositionMs, CurrentAudioLevel, Status and Stats
//
// Automation advances when Tick is called, which Run does on a ticker.
//
// Example:
//
//	player := playback.NewPlayer(playback.Config{Backend: "oto"})
//	defer player.Close()
//	go player.Run(ctx)
//
//	_, err := player.LoadFile("/path/to/track.flac")
//	err = player.Tape(playback.TapeStart(0, 1500*time.Millisecond))
//	player.EnableMidpass(800, 0.7, 1, 1, playback.Over(time.Second))
package playback
