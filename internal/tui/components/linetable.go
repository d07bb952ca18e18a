package components

import (
	"fmt"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/allbin/go-serialstream/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyLine      = "line"
	columnKeyName      = "name"
	columnKeyLevel     = "level"
	columnKeyMonitored = "monitored"
	columnKeyChanges   = "changes"
	columnKeyLast      = "last"
)

var lineRows = []struct {
	mask  serial.SignalMask
	short string
	long  string
}{
	{serial.SignalDCD, "CD", "Carrier Detect"},
	{serial.SignalCTS, "CTS", "Clear To Send"},
	{serial.SignalDSR, "DSR", "Data Set Ready"},
	{serial.SignalDTR, "DTR", "Data Terminal Ready"},
	{serial.SignalRTS, "RTS", "Request To Send"},
	{serial.SignalRI, "RI", "Ring Indicator"},
}

// LineTable shows the control lines with their level and change history
type LineTable struct {
	monitored serial.SignalMask
	state     serial.LineState
	changes   map[serial.SignalMask]int
	last      map[serial.SignalMask]time.Time
}

func NewLineTable(monitored serial.SignalMask) *LineTable {
	return &LineTable{
		monitored: monitored,
		changes:   make(map[serial.SignalMask]int),
		last:      make(map[serial.SignalMask]time.Time),
	}
}

func (t *LineTable) State() serial.LineState {
	return t.state
}

// SetInitial sets the state without counting it as a change
func (t *LineTable) SetInitial(state serial.LineState) {
	t.state = state
}

// Update records a new state and returns the lines that changed
func (t *LineTable) Update(state serial.LineState, at time.Time) serial.SignalMask {
	changed := t.state.Changed(state)
	for _, row := range lineRows {
		if changed&row.mask != 0 {
			t.changes[row.mask]++
			t.last[row.mask] = at
		}
	}
	t.state = state
	return changed
}

// Changes returns how often the line changed since the table was created
func (t *LineTable) Changes(line serial.SignalMask) int {
	return t.changes[line]
}

func (t *LineTable) rows() []table.Row {
	rows := make([]table.Row, 0, len(lineRows))
	for _, row := range lineRows {
		level := table.NewStyledCell("LOW", styles.LevelLowStyle)
		if t.state.Has(row.mask) {
			level = table.NewStyledCell("HIGH", styles.LevelHighStyle)
		}

		monitored := ""
		if t.monitored&row.mask != 0 {
			monitored = "●"
		}

		last := "-"
		if ts, ok := t.last[row.mask]; ok {
			last = ts.Format("15:04:05.000")
		}

		rows = append(rows, table.NewRow(table.RowData{
			columnKeyLine:      row.short,
			columnKeyName:      row.long,
			columnKeyLevel:     level,
			columnKeyMonitored: monitored,
			columnKeyChanges:   fmt.Sprintf("%d", t.changes[row.mask]),
			columnKeyLast:      last,
		}))
	}
	return rows
}

func (t *LineTable) View() string {
	columns := []table.Column{
		table.NewColumn(columnKeyLine, "Line", 5),
		table.NewColumn(columnKeyName, "Name", 20),
		table.NewColumn(columnKeyLevel, "Level", 6),
		table.NewColumn(columnKeyMonitored, "Mon", 4),
		table.NewColumn(columnKeyChanges, "Changes", 8),
		table.NewColumn(columnKeyLast, "Last change", 13),
	}

	return table.New(columns).
		WithRows(t.rows()).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)).
		View()
}
