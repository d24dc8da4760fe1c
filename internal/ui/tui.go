// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the deck UI
package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the deck interface
type TUI struct {
	program *tea.Program
}

// NewModel creates a new TUI model
func NewModel(ctrl Controller, track TrackInfo) Model {
	m := Model{
		ctrl:  ctrl,
		track: track,
	}
	m.refresh()
	return m
}

// New creates a TUI bound to ctx; cancelling ctx exits the program
func New(ctx context.Context, ctrl Controller, track TrackInfo) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(ctrl, track), tea.WithAltScreen(), tea.WithContext(ctx)),
	}
}

// Run blocks until the user quits or the context is cancelled
func (t *TUI) Run() error {
	_, err := t.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
