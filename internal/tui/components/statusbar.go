package components

import (
	"fmt"

	serial "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/allbin/go-serialstream/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionInfo summarises the port configuration
type ConnectionInfo struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      serial.Parity
	FlowControl serial.FlowControl
	Lines       serial.SignalMask
}

func (c ConnectionInfo) String() string {
	parity := "N"
	switch c.Parity {
	case serial.ParityOdd:
		parity = "O"
	case serial.ParityEven:
		parity = "E"
	case serial.ParityMark:
		parity = "M"
	case serial.ParitySpace:
		parity = "S"
	}
	return fmt.Sprintf("%d %d%s%d flow:%s lines:%s",
		c.BaudRate, c.DataBits, parity, c.StopBits, c.FlowControl, c.Lines)
}

type StatusBar struct {
	title    string
	portPath string
	info     ConnectionInfo
	status   styles.StatusType
	err      error
	stats    serial.Stats
	width    int
}

func NewStatusBar(title, portPath string, info ConnectionInfo) *StatusBar {
	return &StatusBar{
		title:    title,
		portPath: portPath,
		info:     info,
		status:   styles.StatusConnecting,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetOpen() {
	sb.status = styles.StatusOpen
	sb.err = nil
}

func (sb *StatusBar) SetFailed(err error) {
	sb.status = styles.StatusFailed
	sb.err = err
}

func (sb *StatusBar) SetClosed() {
	sb.status = styles.StatusClosed
}

func (sb *StatusBar) SetStats(stats serial.Stats) {
	sb.stats = stats
}

func (sb *StatusBar) statusText() string {
	switch sb.status {
	case styles.StatusConnecting:
		return "● OPENING"
	case styles.StatusOpen:
		return "● OPEN"
	case styles.StatusClosed:
		return "○ CLOSED"
	default:
		if sb.err == nil {
			return "✗ FAILED"
		}
		return "✗ " + sb.err.Error()
	}
}

func (sb *StatusBar) View(follow bool) string {
	title := styles.TitleStyle.Render(sb.title)
	status := styles.GetStatusStyle(sb.status).Render(sb.statusText())
	port := lipgloss.NewStyle().Foreground(colors.Peach).Render(sb.portPath)
	info := styles.MutedStyle.Render(sb.info.String())

	mode := "SCROLL"
	if follow {
		mode = "FOLLOW"
	}
	stats := styles.MutedStyle.Render(fmt.Sprintf("rx:%d drop:%d events:%d %s",
		sb.stats.BytesRead, sb.stats.BytesDropped, sb.stats.Notifications, mode))

	left := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", status, " ", port, " ", info)
	gap := sb.width - lipgloss.Width(left) - lipgloss.Width(stats)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, left, lipgloss.NewStyle().Width(gap).Render(""), stats)
}
