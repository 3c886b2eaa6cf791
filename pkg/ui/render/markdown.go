package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

const DefaultWidth = 80

// Markdown renders a backend response for the terminal. Responses are
// Markdown more often than not; anything glamour rejects is word-wrapped as
// plain text instead.
func Markdown(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return Wrap(text, width)
	}

	out, err := renderer.Render(text)
	if err != nil {
		return Wrap(text, width)
	}
	return strings.Trim(out, "\n")
}

// Wrap word-wraps plain text to width.
func Wrap(text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return wordwrap.String(text, width)
}
