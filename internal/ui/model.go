// ABOUTME: Bubbletea model for the cassette deck TUI
// ABOUTME: Defines deck state, key bindings and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/cassette-audio/cassette-go/pkg/playback"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 50 * time.Millisecond
	seekStepMs      = 5000
	volumeStep      = 0.1
	speedStep       = 0.1
	keyGlide        = 200 * time.Millisecond
	effectGlide     = 300 * time.Millisecond
	barWidth        = 30
)

// Controller is the player surface the deck drives
type Controller interface {
	Toggle(startMs float64) error
	Seek(ms float64) error
	SetSpeed(target float64, g playback.Glide, stopOnEnd bool)
	SetVolume(target float64, g playback.Glide)
	Tape(req playback.TapeRequest) error
	EnableMidpass(centerHz, q, mix, gain float64, g playback.Glide)
	DisableMidpass(g playback.Glide)
	EnableBitcrush(bits, downsample int, mix float64, g playback.Glide)
	DisableBitcrush(g playback.Glide)
	Status() playback.Status
}

// TrackInfo describes the loaded track
type TrackInfo struct {
	Title   string
	Backend string
	BPM     float64
	Remote  string // control address, empty when disabled
}

// Model represents the TUI state
type Model struct {
	ctrl   Controller
	track  TrackInfo
	status playback.Status

	lastErr string

	quitting bool
	width    int
	height   int
}

type tickMsg time.Time

// StatusMsg replaces the displayed player status
type StatusMsg playback.Status

// Init starts the refresh loop
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tickEvery()
	case StatusMsg:
		m.status = playback.Status(msg)
	}

	return m, nil
}

// refresh polls the controller
func (m *Model) refresh() {
	if m.ctrl != nil {
		m.status = m.ctrl.Status()
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "q" || msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.ctrl == nil {
		return m, nil
	}

	var err error
	s := m.status

	switch msg.String() {
	case " ":
		err = m.ctrl.Toggle(s.PositionMs)
	case "left":
		err = m.ctrl.Seek(max(0, s.PositionMs-seekStepMs))
	case "right":
		err = m.ctrl.Seek(min(s.DurationMs, s.PositionMs+seekStepMs))
	case "up":
		m.ctrl.SetVolume(min(1, s.Volume+volumeStep), playback.Over(keyGlide))
	case "down":
		m.ctrl.SetVolume(max(0, s.Volume-volumeStep), playback.Over(keyGlide))
	case "]":
		m.ctrl.SetSpeed(s.Speed+speedStep, playback.Over(keyGlide), false)
	case "[":
		m.ctrl.SetSpeed(max(0, s.Speed-speedStep), playback.Over(keyGlide), false)
	case "t":
		err = m.ctrl.Tape(playback.TapeStop(playback.DefaultTapeDuration))
	case "s":
		err = m.ctrl.Tape(playback.TapeStart(s.PositionMs, playback.DefaultTapeDuration))
	case "f":
		if s.Midpass.Enabled {
			m.ctrl.DisableMidpass(playback.Over(effectGlide))
		} else {
			m.ctrl.EnableMidpass(1000, 1, 1, 1, playback.Over(effectGlide))
		}
	case "b":
		if s.Bitcrush.Enabled {
			m.ctrl.DisableBitcrush(playback.Over(effectGlide))
		} else {
			m.ctrl.EnableBitcrush(8, 4, 1, playback.Over(effectGlide))
		}
	default:
		return m, nil
	}

	if err != nil {
		m.lastErr = err.Error()
	} else {
		m.lastErr = ""
	}
	m.refresh()

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Ejecting...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	onStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	errStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	s := m.status
	var b strings.Builder

	b.WriteString(titleStyle.Render("Cassette Player"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	title := m.track.Title
	if !s.Loaded {
		title = "(no tape)"
	}
	row("Track:", truncate(title, 48))
	if m.track.BPM > 0 {
		row("Tempo:", fmt.Sprintf("%.1f BPM", m.track.BPM))
	}
	if m.track.Backend != "" {
		row("Output:", m.track.Backend)
	}
	if m.track.Remote != "" {
		row("Remote:", m.track.Remote)
	}
	b.WriteString("\n")

	state := "■ Stopped"
	if s.Playing {
		state = "▶ Playing"
	}
	row("State:", state)
	row("Time:", fmt.Sprintf("%s [%s] %s",
		formatMs(s.PositionMs), renderBar(s.PositionMs, s.DurationMs, barWidth), formatMs(s.DurationMs)))
	row("Level:", fmt.Sprintf("[%s] %.2f", renderBar(float64(s.Level), 1, barWidth), s.Level))
	row("Volume:", fmt.Sprintf("[%s] %d%%", renderBar(s.Volume, 1, barWidth), int(s.Volume*100+0.5)))
	row("Speed:", fmt.Sprintf("%.2fx", s.Speed))
	b.WriteString("\n")

	effect := func(label string, enabled bool, detail string) {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-9s", label)))
		if enabled {
			b.WriteString(onStyle.Render("ON "))
			b.WriteString(valueStyle.Render(detail))
		} else {
			b.WriteString(valueStyle.Render("off"))
		}
		b.WriteString("\n")
	}
	effect("Midpass:", s.Midpass.Enabled,
		fmt.Sprintf("%.0fHz Q%.2f mix %.2f", s.Midpass.CenterHz, s.Midpass.Q, s.Midpass.Mix))
	effect("Crush:", s.Bitcrush.Enabled,
		fmt.Sprintf("%d bits /%d mix %.2f", s.Bitcrush.Bits, s.Bitcrush.Downsample, s.Bitcrush.Mix))
	if s.DelayMs != [2]float64{} {
		row("Delay:", fmt.Sprintf("L %.1fms  R %.1fms", s.DelayMs[0], s.DelayMs[1]))
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render(
		"space:Play/Stop  ←/→:Seek  ↑/↓:Volume  [/]:Speed  t/s:Tape stop/start  f:Midpass  b:Crush  q:Quit"))

	return b.String()
}

// Utility functions
func renderBar(value, total float64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(value / total * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatMs(ms float64) string {
	total := int(ms / 1000)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
