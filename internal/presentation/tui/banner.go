package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the daqs banner to w, coloured when the terminal allows.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ___   _   ___  ___ ", "#34d399"},
		{"  |   \\ /_\\ / _ \\/ __|", "#2dd4bf"},
		{"  | |) / _ \\ (_) \\__ \\", "#22d3ee"},
		{"  |___/_/ \\_\\__\\_\\___/", "#38bdf8"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  dialogue & quest planner").Faint())
	fmt.Fprintln(w)
}
