package tui

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Green is the sheet, blue marks focus.
var (
	colorPrimary   = lipgloss.Color("#34A853")
	colorSecondary = lipgloss.Color("#4285F4")
	colorAccent    = lipgloss.Color("#FBBC04")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#22C55E")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorFg        = lipgloss.Color("#E5E7EB")
	colorSubtle    = lipgloss.Color("#374151")
	colorHighlight = lipgloss.Color("#60A5FA")
)

var (
	baseText = lipgloss.NewStyle().Foreground(colorFg)
	dimText  = lipgloss.NewStyle().Foreground(colorMuted)
	bold     = lipgloss.NewStyle().Bold(true)

	activeTabStyle = bold.
			Foreground(colorPrimary).
			Underline(true).
			Padding(0, 2)
	inactiveTabStyle = dimText.Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)
	// activePanelStyle frames whatever currently owns the keyboard or the clock.
	activePanelStyle = panelStyle.BorderForeground(colorPrimary)

	timerStyle        = bold.Foreground(colorMuted).Align(lipgloss.Center)
	timerRunningStyle = bold.Foreground(colorSuccess).Align(lipgloss.Center)

	titleStyle     = bold.Foreground(colorFg)
	subtitleStyle  = dimText
	successStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle     = dimText
	highlightStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	headerStyle    = lipgloss.NewStyle().Padding(0, 1)
	footerStyle    = dimText.Padding(0, 1)
	statusBarStyle = dimText

	selectedItemStyle = bold.Foreground(colorSecondary)
	normalItemStyle   = baseText
)

// statusStyle renders the footer status line.
func statusStyle(isError bool) lipgloss.Style {
	if isError {
		return errorStyle
	}
	return statusBarStyle
}

// projectPalette colors projects by a stable hash of their name.
var projectPalette = []lipgloss.Color{
	colorPrimary,
	colorSecondary,
	colorAccent,
	colorHighlight,
	colorWarning,
	lipgloss.Color("#A78BFA"),
	lipgloss.Color("#2DD4BF"),
	lipgloss.Color("#F472B6"),
}

func projectColor(project string) lipgloss.Color {
	if project == "" {
		return colorMuted
	}
	h := fnv.New32a()
	h.Write([]byte(project))
	return projectPalette[h.Sum32()%uint32(len(projectPalette))]
}

func projectDot(project string) string {
	return lipgloss.NewStyle().Foreground(projectColor(project)).Render("●")
}

func projectLabel(project string) string {
	if project == "" {
		return "(no project)"
	}
	return project
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
