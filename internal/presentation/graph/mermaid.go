package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/kvsession/pkg/domain"
)

// Overlay contains session data to highlight on the diagram.
type Overlay struct {
	Visited []domain.State
	Current domain.State
}

var labels = map[[2]domain.State]string{
	{domain.StateDisconnected, domain.StateConnecting}: "Connect",
	{domain.StateConnecting, domain.StateReady}:        "dial ok",
	{domain.StateReady, domain.StateReconnecting}:      "transport drop",
	{domain.StateReconnecting, domain.StateReady}:      "dial ok",
}

// GenerateMermaid produces a Mermaid flowchart of the session lifecycle.
// Edges come from domain.State.CanTransition. Shapes:
// - Initial: ((Circle))
// - Terminal: (((Double circle)))
// - Default: [Rectangle]
// Transitions into Closed other than Close itself are dotted.
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	states := domain.AllStates()
	for _, state := range states {
		opener, closer := "[", "]"
		switch {
		case state == domain.StateDisconnected:
			opener, closer = "((", "))"
		case state.Terminal():
			opener, closer = "(((", ")))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", state, opener, state, closer))
	}

	for _, from := range states {
		for _, to := range states {
			if !from.CanTransition(to) {
				continue
			}
			label, ok := labels[[2]domain.State{from, to}]
			arrow := fmt.Sprintf("-- \"%s\" -->", label)
			if !ok {
				label = "Close"
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				if from == domain.StateConnecting || from == domain.StateReconnecting {
					arrow = "-. \"Close / give up\" .->"
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, to))
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.State]bool)
		for _, state := range overlay.Visited {
			if !seen[state] && state != "" {
				seen[state] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", state))
			}
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", overlay.Current))
		}
	}

	return sb.String()
}
