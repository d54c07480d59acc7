package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the kvsession banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _                              _", "#818cf8"},
		{"| | ____   _____  ___  ___ ___(_) ___  _ __", "#a78bfa"},
		{"| |/ /\\ \\ / / __|/ _ \\/ __/ __| |/ _ \\| '_ \\", "#c084fc"},
		{"|   <  \\ V /\\__ \\  __/\\__ \\__ \\ | (_) | | | |", "#e879f9"},
		{"|_|\\_\\  \\_/ |___/\\___||___/___/_|\\___/|_| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
