package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/ferry/internal/config"
)

// Catppuccin Mocha palette, mutable so config can override.
var (
	ColorAccent = lipgloss.Color("#89b4fa")
	ColorDone   = lipgloss.Color("#a6e3a1")
	ColorError  = lipgloss.Color("#f38ba8")
	ColorMuted  = lipgloss.Color("#5a6278")
)

// Pre-built styles, rebuilt by rebuildStyles after color changes.
var (
	styleIconDone    lipgloss.Style
	styleIconFailed  lipgloss.Style
	styleIconSkipped lipgloss.Style
	styleFileDir     lipgloss.Style
	styleFileSize    lipgloss.Style
	styleFileSpeed   lipgloss.Style
	styleError       lipgloss.Style
	styleStatus      lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	styleIconDone = lipgloss.NewStyle().Foreground(ColorDone)
	styleIconFailed = lipgloss.NewStyle().Foreground(ColorError)
	styleIconSkipped = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileDir = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileSize = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileSpeed = lipgloss.NewStyle().Foreground(ColorAccent)
	styleError = lipgloss.NewStyle().Foreground(ColorError)
	styleStatus = lipgloss.NewStyle().Foreground(ColorAccent)
}

// ApplyTheme overrides colors from a config ThemeConfig and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	if tc.Accent != nil {
		ColorAccent = lipgloss.Color(*tc.Accent)
	}
	if tc.Error != nil {
		ColorError = lipgloss.Color(*tc.Error)
	}
	if tc.Muted != nil {
		ColorMuted = lipgloss.Color(*tc.Muted)
	}
	rebuildStyles()
}
