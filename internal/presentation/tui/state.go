package tui

import (
	"github.com/aretw0/kvsession/pkg/domain"
	"github.com/muesli/termenv"
)

var stateColors = map[domain.State]string{
	domain.StateDisconnected: "#9ca3af",
	domain.StateConnecting:   "#facc15",
	domain.StateReady:        "#4ade80",
	domain.StateReconnecting: "#fb923c",
	domain.StateClosed:       "#f87171",
}

// FormatState returns the state name coloured for the current terminal.
func FormatState(state domain.State) string {
	return FormatStateWith(termenv.ColorProfile(), state)
}

// FormatStateWith colours the state name for profile p. termenv.Ascii leaves it plain.
func FormatStateWith(p termenv.Profile, state domain.State) string {
	s := p.String(state.String())
	if color, ok := stateColors[state]; ok {
		s = s.Foreground(p.Color(color))
	}
	if state == domain.StateReady || state == domain.StateClosed {
		s = s.Bold()
	}
	return s.String()
}
