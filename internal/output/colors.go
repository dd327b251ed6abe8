package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NoColor reports whether styled output is disabled, honoring the NO_COLOR
// convention (https://no-color.org/).
func NoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

// Terminal palette. The markdown and JSON renderers never use these; only
// the interactive surface does.
var (
	colorGood   = lipgloss.Color("#2ECC71")
	colorBad    = lipgloss.Color("#E74C3C")
	colorNotice = lipgloss.Color("#F39C12")
)

// Styles for the one-line run summaries.
var (
	StyleGood   = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	StyleBad    = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	StyleNotice = lipgloss.NewStyle().Foreground(colorNotice)
)

// plainStyles strips level coloring for NO_COLOR terminals.
func plainStyles() *log.Styles {
	styles := log.DefaultStyles()
	for level, style := range styles.Levels {
		styles.Levels[level] = style.UnsetForeground().UnsetBold()
	}
	return styles
}
