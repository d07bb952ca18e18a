package components

import (
	"fmt"
	"strings"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Entry is one line of the watch log: received data, a line change or an error
type Entry struct {
	Timestamp time.Time
	Data      []byte
	Lines     *serial.LineState
	Changed   serial.SignalMask
	Err       error
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) Mode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

func (df *DataFormatter) Format(e Entry) string {
	var indicator, body string

	switch {
	case e.Err != nil:
		indicator = lipgloss.NewStyle().Foreground(colors.Red).Bold(true).Render("✗ ERR")
		body = e.Err.Error()
	case e.Lines != nil:
		indicator = lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true).Render("◆ LINES")
		body = ChangeSummary(*e.Lines, e.Changed)
	default:
		indicator = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true).Render("↙ RX")
		body = df.formatData(e.Data)
	}

	if !df.mode.ShowTimestamps {
		return fmt.Sprintf("%s: %s", indicator, body)
	}
	ts := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05.000")))
	return fmt.Sprintf("%s %s: %s", ts, indicator, body)
}

func (df *DataFormatter) formatData(data []byte) string {
	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+PrintableASCII(data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(data)))
	}
	return strings.Join(parts, "  ")
}

// PrintableASCII replaces non-printable bytes with dots
func PrintableASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// ChangeSummary lists the changed lines with an arrow for their new level,
// e.g. "CTS↑ DSR↓".
func ChangeSummary(state serial.LineState, changed serial.SignalMask) string {
	if changed == serial.NoSignals {
		return state.String()
	}
	var parts []string
	for _, row := range lineRows {
		if changed&row.mask == 0 {
			continue
		}
		arrow := "↓"
		if state.Has(row.mask) {
			arrow = "↑"
		}
		parts = append(parts, row.short+arrow)
	}
	return strings.Join(parts, " ")
}
