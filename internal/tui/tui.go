// Package tui implements the terminal inspection front-end using Bubble Tea.
package tui

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/oszuidwest/cranecheck/internal/session"
)

// ErrNoTTY is returned by Run when stdout is not a terminal.
var ErrNoTTY = errors.New("terminal front-end requires a TTY; use 'cranecheck serve' instead")

// Key constants used by the model.
const (
	keyCtrlC    = "ctrl+c"
	keyEnter    = "enter"
	keyTab      = "tab"
	keyShiftTab = "shift+tab"
	keyUp       = "up"
	keyDown     = "down"
	keyLeft     = "left"
	keyRight    = "right"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run drives ctrl in a full-screen terminal program until the user quits.
func Run(ctrl *session.Controller) error {
	if !IsTTY() {
		return ErrNoTTY
	}
	p := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
