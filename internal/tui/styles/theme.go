package styles

import (
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	StatusOpenStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	StatusFailedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusConnectingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Overlay0).
			Padding(1, 2).
			Margin(1, 0)

	// Line levels
	LevelHighStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	LevelLowStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)
)

type StatusType int

const (
	StatusConnecting StatusType = iota
	StatusOpen
	StatusFailed
	StatusClosed
)

func GetStatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusOpen:
		return StatusOpenStyle
	case StatusConnecting:
		return StatusConnectingStyle
	default:
		return StatusFailedStyle
	}
}
