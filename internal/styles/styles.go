// Package styles holds the lipgloss theme shared by the app views.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Palette.
var (
	ColorAccent     = lipgloss.Color("39")  // blue
	ColorAssistant  = lipgloss.Color("141") // violet
	ColorUser       = lipgloss.Color("42")  // green
	ColorMuted      = lipgloss.Color("243")
	ColorError      = lipgloss.Color("203")
	ColorWarning    = lipgloss.Color("214")
	ColorBorder     = lipgloss.Color("238")
	ColorDeprecated = lipgloss.Color("245")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent)

	SidebarHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(ColorBorder)

	// SourceFresh and SourceStale render sidebar source lines; stale
	// sources dim until their next refresh lands.
	SourceFresh = lipgloss.NewStyle()
	SourceStale = lipgloss.NewStyle().
			Foreground(ColorDeprecated).
			Italic(true)

	SourceID = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	TokenCount = lipgloss.NewStyle().
			Foreground(ColorMuted)

	UserLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorUser)

	AssistantLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAssistant)

	ToolCallLine = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorLine = lipgloss.NewStyle().
			Foreground(ColorError)

	StatusBar = lipgloss.NewStyle().
			Foreground(ColorMuted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(ColorBorder)

	GitBranch = lipgloss.NewStyle().
			Foreground(ColorUser)

	Streaming = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Blink(true)
)

// Truncate shortens s to fit width terminal cells, appending an
// ellipsis when anything was cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

// FirstLine returns the first line of s.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
