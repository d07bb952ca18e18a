package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEntries bounds the log kept for re-rendering
const maxEntries = 2000

// Terminal is a scrolling log of entries
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	entries   []Entry
	lines     []string
	follow    bool
}

func NewTerminal(width, height int, mode DisplayMode) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(mode),
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Formatter() *DataFormatter {
	return t.formatter
}

func (t *Terminal) Len() int {
	return len(t.entries)
}

func (t *Terminal) Add(e Entry) {
	t.entries = append(t.entries, e)
	t.lines = append(t.lines, t.formatter.Format(e))
	if len(t.entries) > maxEntries {
		drop := len(t.entries) - maxEntries
		t.entries = t.entries[drop:]
		t.lines = t.lines[drop:]
	}
	t.render()
}

// Refresh re-formats every entry, e.g. after a display mode change
func (t *Terminal) Refresh() {
	t.lines = t.lines[:0]
	for _, e := range t.entries {
		t.lines = append(t.lines, t.formatter.Format(e))
	}
	t.render()
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ScrollUp() {
	t.follow = false
	t.viewport.SetYOffset(t.viewport.YOffset - t.viewport.Height/2)
}

func (t *Terminal) ScrollDown() {
	t.viewport.SetYOffset(t.viewport.YOffset + t.viewport.Height/2)
	if t.viewport.AtBottom() {
		t.follow = true
	}
}

func (t *Terminal) Follow() {
	t.follow = true
	t.viewport.GotoBottom()
}

func (t *Terminal) Following() bool {
	return t.follow
}

func (t *Terminal) render() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	// Key messages are handled by the caller so they don't clash with viewport bindings
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
