package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown frames using glamour.
// When pretty is false, or the renderer cannot be built, markdown is returned as is.
func NewRenderer(pretty bool) func(string) (string, error) {
	plain := func(markdown string) (string, error) { return markdown, nil }
	if !pretty {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return plain
	}
	return r.Render
}
