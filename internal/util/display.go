package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal color sequences
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
	ColorBold  = "\033[1m"
)

// GetDisplayWidth calculates the display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadRight pads text with spaces to the given display width.
func PadRight(text string, width int) string {
	return runewidth.FillRight(text, width)
}

// PadLeft right-aligns text within the given display width.
func PadLeft(text string, width int) string {
	return runewidth.FillLeft(text, width)
}

// TruncateToWidth cuts text to width columns, marking the cut with an ellipsis.
func TruncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}

// FormatHeaderTitle formats section titles (Cyan + Bold)
func FormatHeaderTitle(title string, color bool) string {
	if !color {
		return title
	}
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorCyan, title, ColorReset)
}

// FormatSectionSeparator creates a separator line of the given width
func FormatSectionSeparator(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat("─", width)
}
