package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the evalrepl banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Teal/Sky)
	lines := []termenv.Style{
		termenv.String("                 _                  _ ").Foreground(p.Color("#2dd4bf")),
		termenv.String("   _____   ____ _| |_ __ ___ _ __ | |").Foreground(p.Color("#22d3ee")),
		termenv.String("  / _ \\ \\ / / _` | | '__/ _ \\ '_ \\| |").Foreground(p.Color("#38bdf8")),
		termenv.String(" |  __/\\ V / (_| | | | |  __/ |_) | |").Foreground(p.Color("#60a5fa")),
		termenv.String("  \\___| \\_/ \\__,_|_|_|  \\___| .__/|_|").Foreground(p.Color("#818cf8")),
		termenv.String("                            |_|       ").Foreground(p.Color("#a78bfa")),
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
