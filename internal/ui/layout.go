package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// fill pads rendered out to the full width with style's background.
func (l Layout) fill(style lipgloss.Style, parts ...string) string {
	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	gap := max(l.Width-used, 0)

	filler := style.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(style.GetBackground()).
			Render(""),
	)
	if len(parts) == 1 {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler, parts[1])
}

// RenderHeader renders the top bar with the title on the left and the
// signed-in user or loading state on the right.
func (l Layout) RenderHeader(title, right string) string {
	return l.fill(theme.HeaderStyle,
		theme.HeaderStyle.Render(title),
		theme.HeaderStyle.Align(lipgloss.Right).Render(right),
	)
}

// RenderStatusBar renders the bottom bar. A pending notification replaces
// the key hints.
func (l Layout) RenderStatusBar(hints string, note *notify.Notification) string {
	if note != nil {
		return l.fill(theme.StatusBarStyle, theme.NotificationStyle(note.Kind).Render(note.Message))
	}
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints))
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
