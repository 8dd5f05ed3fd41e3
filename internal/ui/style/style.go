// Package style provides the colors and glyphs shared by the logger and the
// renderers so every line parcel prints has the same look.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Glyphs.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Dot     = "●"
	Circle  = "○"
)

// StatusGlyph returns the glyph used to mark a finished operation.
func StatusGlyph(ok bool) string {
	if ok {
		return Check
	}
	return Cross
}
