package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ivy banner to w, colored for w's terminal profile.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{"  _             ", "#34d399"},
		{" (_)_   ___   _ ", "#10b981"},
		{" | \\ \\ / / | | |", "#059669"},
		{" | |\\ V /| |_| |", "#047857"},
		{" |_| \\_/  \\__, |", "#065f46"},
		{"          |___/ ", "#064e3b"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
