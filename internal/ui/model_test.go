// ABOUTME: Tests for TUI model and key handling
// ABOUTME: Drives Update directly against a recording controller
package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/playback"
	tea "github.com/charmbracelet/bubbletea"
)

type deckCall struct {
	name  string
	value float64
	glide playback.Glide
	tape  playback.TapeRequest
}

type fakeDeck struct {
	status    playback.Status
	calls     []deckCall
	toggleErr error
}

func (f *fakeDeck) Toggle(startMs float64) error {
	f.calls = append(f.calls, deckCall{name: "toggle", value: startMs})
	return f.toggleErr
}

func (f *fakeDeck) Seek(ms float64) error {
	f.calls = append(f.calls, deckCall{name: "seek", value: ms})
	return nil
}

func (f *fakeDeck) SetSpeed(target float64, g playback.Glide, stopOnEnd bool) {
	f.calls = append(f.calls, deckCall{name: "speed", value: target, glide: g})
}

func (f *fakeDeck) SetVolume(target float64, g playback.Glide) {
	f.calls = append(f.calls, deckCall{name: "volume", value: target, glide: g})
}

func (f *fakeDeck) Tape(req playback.TapeRequest) error {
	f.calls = append(f.calls, deckCall{name: "tape", tape: req})
	return nil
}

func (f *fakeDeck) EnableMidpass(centerHz, q, mix, gain float64, g playback.Glide) {
	f.calls = append(f.calls, deckCall{name: "midpass on", value: centerHz, glide: g})
}

func (f *fakeDeck) DisableMidpass(g playback.Glide) {
	f.calls = append(f.calls, deckCall{name: "midpass off", glide: g})
}

func (f *fakeDeck) EnableBitcrush(bits, downsample int, mix float64, g playback.Glide) {
	f.calls = append(f.calls, deckCall{name: "bitcrush on", value: float64(bits), glide: g})
}

func (f *fakeDeck) DisableBitcrush(g playback.Glide) {
	f.calls = append(f.calls, deckCall{name: "bitcrush off", glide: g})
}

func (f *fakeDeck) Status() playback.Status {
	return f.status
}

func (f *fakeDeck) last(t *testing.T) deckCall {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("expected a controller call")
	}
	return f.calls[len(f.calls)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(key)
	return next.(Model)
}

func playingDeck() *fakeDeck {
	return &fakeDeck{status: playback.Status{
		Loaded:     true,
		Playing:    true,
		PositionMs: 10000,
		DurationMs: 12000,
		Speed:      1,
		Volume:     0.5,
	}}
}

func TestNewModelPollsStatus(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{Title: "Side A"})

	if !model.status.Playing || model.status.PositionMs != 10000 {
		t.Errorf("expected status from controller, got %+v", model.status)
	}
}

func TestTickRefreshesStatus(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	deck.status.PositionMs = 11000
	next, cmd := model.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("expected tick to schedule another tick")
	}
	if next.(Model).status.PositionMs != 11000 {
		t.Errorf("expected refreshed position, got %v", next.(Model).status.PositionMs)
	}
}

func TestToggleKey(t *testing.T) {
	deck := playingDeck()
	model := press(t, NewModel(deck, TrackInfo{}), tea.KeyMsg{Type: tea.KeySpace})

	call := deck.last(t)
	if call.name != "toggle" || call.value != 10000 {
		t.Errorf("expected toggle at 10000, got %+v", call)
	}
	if model.lastErr != "" {
		t.Errorf("unexpected error: %s", model.lastErr)
	}
}

func TestToggleErrorShown(t *testing.T) {
	deck := &fakeDeck{toggleErr: playback.ErrNotLoaded}
	model := press(t, NewModel(deck, TrackInfo{}), tea.KeyMsg{Type: tea.KeySpace})

	if model.lastErr != playback.ErrNotLoaded.Error() {
		t.Errorf("expected error to be shown, got %q", model.lastErr)
	}
	if !strings.Contains(model.View(), playback.ErrNotLoaded.Error()) {
		t.Error("expected error in view")
	}

	deck.toggleErr = nil
	model = press(t, model, tea.KeyMsg{Type: tea.KeySpace})
	if model.lastErr != "" {
		t.Errorf("expected error to clear, got %q", model.lastErr)
	}
}

func TestSeekKeysClamp(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	press(t, model, tea.KeyMsg{Type: tea.KeyRight})
	if call := deck.last(t); call.name != "seek" || call.value != 12000 {
		t.Errorf("expected seek clamped to 12000, got %+v", call)
	}

	deck.status.PositionMs = 2000
	model.refresh()
	press(t, model, tea.KeyMsg{Type: tea.KeyLeft})
	if call := deck.last(t); call.name != "seek" || call.value != 0 {
		t.Errorf("expected seek clamped to 0, got %+v", call)
	}
}

func TestVolumeKeys(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	press(t, model, tea.KeyMsg{Type: tea.KeyUp})
	call := deck.last(t)
	if call.name != "volume" || call.value != 0.6 {
		t.Errorf("expected volume 0.6, got %+v", call)
	}
	if call.glide.Duration != keyGlide {
		t.Errorf("expected a %v glide, got %v", keyGlide, call.glide.Duration)
	}

	deck.status.Volume = 0.05
	model.refresh()
	press(t, model, tea.KeyMsg{Type: tea.KeyDown})
	if call := deck.last(t); call.value != 0 {
		t.Errorf("expected volume clamped to 0, got %v", call.value)
	}
}

func TestSpeedKeys(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	press(t, model, runes("["))
	if call := deck.last(t); call.name != "speed" || call.value != 0.9 {
		t.Errorf("expected speed 0.9, got %+v", call)
	}

	press(t, model, runes("]"))
	if call := deck.last(t); call.name != "speed" || call.value != 1.1 {
		t.Errorf("expected speed 1.1, got %+v", call)
	}
}

func TestTapeKeys(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	press(t, model, runes("t"))
	call := deck.last(t)
	if call.name != "tape" || call.tape.EndSpeed == nil || *call.tape.EndSpeed != 0 {
		t.Errorf("expected a tape stop, got %+v", call)
	}
	if call.tape.CleanupOnFinish || call.tape.EndFade != nil {
		t.Errorf("expected tape stop to keep the track and volume, got %+v", call.tape)
	}

	press(t, model, runes("s"))
	call = deck.last(t)
	if call.name != "tape" || call.tape.StartMs == nil || *call.tape.StartMs != 10000 {
		t.Errorf("expected a tape start at the current position, got %+v", call)
	}
}

func TestEffectToggles(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{})

	press(t, model, runes("f"))
	if call := deck.last(t); call.name != "midpass on" {
		t.Errorf("expected midpass on, got %+v", call)
	}

	deck.status.Midpass.Enabled = true
	model.refresh()
	press(t, model, runes("f"))
	if call := deck.last(t); call.name != "midpass off" {
		t.Errorf("expected midpass off, got %+v", call)
	}

	press(t, model, runes("b"))
	if call := deck.last(t); call.name != "bitcrush on" || call.value != 8 {
		t.Errorf("expected 8-bit crush, got %+v", call)
	}

	deck.status.Bitcrush.Enabled = true
	model.refresh()
	press(t, model, runes("b"))
	if call := deck.last(t); call.name != "bitcrush off" {
		t.Errorf("expected bitcrush off, got %+v", call)
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	deck := playingDeck()
	press(t, NewModel(deck, TrackInfo{}), runes("z"))
	if len(deck.calls) != 0 {
		t.Errorf("expected no calls, got %+v", deck.calls)
	}
}

func TestQuit(t *testing.T) {
	next, cmd := NewModel(playingDeck(), TrackInfo{}).Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !next.(Model).quitting {
		t.Error("expected model to be quitting")
	}
}

func TestNilControllerIgnoresKeys(t *testing.T) {
	model := press(t, NewModel(nil, TrackInfo{}), tea.KeyMsg{Type: tea.KeySpace})
	if model.lastErr != "" {
		t.Errorf("unexpected error: %s", model.lastErr)
	}
}

func TestViewShowsDeck(t *testing.T) {
	deck := playingDeck()
	model := NewModel(deck, TrackInfo{Title: "Side A", BPM: 120, Remote: "ws://10.0.0.2:8928/cassette"})

	view := model.View()
	for _, want := range []string{"Side A", "120.0 BPM", "Playing", "0:10", "0:12", "ws://10.0.0.2:8928/cassette"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	model, _ = updateModel(model, StatusMsg(playback.Status{}))
	if !strings.Contains(model.View(), "(no tape)") {
		t.Error("expected empty deck to show no tape")
	}
}

func updateModel(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		value, total float64
		filled       int
	}{
		{0, 1, 0},
		{0.5, 1, 5},
		{1, 1, 10},
		{2, 1, 10},
		{-1, 1, 0},
		{5, 0, 0},
	}

	for _, tt := range tests {
		bar := renderBar(tt.value, tt.total, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("renderBar(%v, %v) filled %d, expected %d", tt.value, tt.total, got, tt.filled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("renderBar(%v, %v) width %d", tt.value, tt.total, got)
		}
	}
}

func TestFormatMs(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0:00"},
		{999, "0:00"},
		{61000, "1:01"},
		{3600000, "60:00"},
	}

	for _, tt := range tests {
		if got := formatMs(tt.ms); got != tt.want {
			t.Errorf("formatMs(%v) = %q, expected %q", tt.ms, got, tt.want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
