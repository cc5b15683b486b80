// Package surface renders benefit-cost results for people and machines:
// terminal, Markdown and JSON.
package surface

import (
	"fmt"
	"io"

	"github.com/bcaengine/bcaengine/pkg/bca"
)

// Renderer produces formatted output from a run result.
type Renderer interface {
	// Render writes the formatted result to the writer.
	Render(w io.Writer, result *bca.Result) error
}

// Output format names.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ForFormat returns the renderer for a format name.
func ForFormat(name string) (Renderer, error) {
	switch name {
	case FormatText, "":
		return &TerminalRenderer{}, nil
	case FormatMarkdown:
		return &MarkdownRenderer{}, nil
	case FormatJSON:
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want %s, %s or %s)", name, FormatText, FormatMarkdown, FormatJSON)
}
