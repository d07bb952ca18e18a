/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/components"
	"github.com/allbin/go-serialstream/internal/tui/keys"
	"github.com/allbin/go-serialstream/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <port>",
	Short: "Watch data and control lines in a live TUI",
	Long: `Watch incoming data and control line changes on a serial port.

The top of the screen shows every control line with its level, how often it
changed and when it last changed. Below it a log interleaves received data
with line changes in the order they were seen.

DTR and RTS can be toggled with 'd' and 'r'. Press '?' for all keys.

Example usage:
  serialstream watch /dev/ttyUSB0
  serialstream watch /dev/ttyUSB0 --baud 9600 --lines cts,dsr,cd
  serialstream watch /dev/ttyUSB0 --hex --no-timestamps`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lineNames, _ := cmd.Flags().GetStringSlice("lines")
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		hexMode, _ := cmd.Flags().GetBool("hex")

		lines, err := parseLines(lineNames)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		mode := components.DisplayMode{
			ShowHex:        hexMode,
			ShowASCII:      true,
			ShowTimestamps: !noTimestamps,
		}
		if err := runWatchTUI(args[0], lines, mode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceP("lines", "l", nil, "Control lines to report (comma-separated: cd,cts,dsr,dtr,rts,ri; default all)")
	watchCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from the log")
	watchCmd.Flags().BoolP("hex", "x", false, "Show received data as hex as well")
}

type portOpenedMsg struct {
	port  serial.Port
	state serial.LineState
}

type portFailedMsg struct {
	err error
}

type dataMsg struct {
	at   time.Time
	data []byte
}

type lineStateMsg struct {
	at    time.Time
	state serial.LineState
}

type statsTickMsg time.Time

// watchModel is the Bubble Tea model for the watch command
type watchModel struct {
	ctx    context.Context
	cancel context.CancelFunc

	port      serial.Port
	lines     serial.SignalMask
	lineTable *components.LineTable
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.WatchKeys

	width  int
	height int
}

func runWatchTUI(portPath string, lines serial.SignalMask, mode components.DisplayMode) error {
	opts, err := portOptions(lines)
	if err != nil {
		return err
	}
	opts = append(opts, serial.WithInterruptCausesError(true))

	parity, _ := parseParity(viper.GetString("parity"))
	flow, _ := parseFlowControl(viper.GetString("flow-control"))
	info := components.ConnectionInfo{
		BaudRate:    viper.GetInt("baud"),
		DataBits:    viper.GetInt("data-bits"),
		StopBits:    viper.GetInt("stop-bits"),
		Parity:      parity,
		FlowControl: flow,
		Lines:       lines,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := &watchModel{
		ctx:       ctx,
		cancel:    cancel,
		lines:     lines,
		lineTable: components.NewLineTable(lines),
		terminal:  components.NewTerminal(80, 20, mode),
		statusBar: components.NewStatusBar("Serial Watch", portPath, info),
		help:      help.New(),
		keys:      keys.NewWatchKeys(),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		port, err := serial.Open(portPath, opts...)
		if err != nil {
			logger.Error("open failed", "port", portPath, "error", err)
			p.Send(portFailedMsg{err: err})
			return
		}

		p.Send(portOpenedMsg{port: port, state: port.LastLineState()})
		if ctx.Err() != nil {
			// Quit before the port was handed over
			port.Close()
			return
		}

		port.SetChangeListener(func(state serial.LineState) {
			p.Send(lineStateMsg{at: time.Now(), state: state})
		})

		buffer := make([]byte, 1024)
		for {
			n, err := port.ReadContext(ctx, buffer)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buffer[:n])
				p.Send(dataMsg{at: time.Now(), data: data})
			}
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, serial.ErrPortClosed) {
					return
				}
				p.Send(portFailedMsg{err: err})
				return
			}
		}
	}()

	_, err = p.Run()

	m.cleanup()
	return err
}

func statsTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statsTickMsg(t)
	})
}

func (m *watchModel) cleanup() {
	m.cancel()
	if m.port != nil {
		m.port.Close()
	}
}

func (m *watchModel) Init() tea.Cmd {
	return statsTick()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.SetWidth(msg.Width)
		m.resize()
		return m, m.terminal.Update(msg)

	case portOpenedMsg:
		m.port = msg.port
		m.lineTable.SetInitial(msg.state)
		m.statusBar.SetOpen()
		m.terminal.Add(components.Entry{
			Timestamp: time.Now(),
			Lines:     &msg.state,
		})

	case portFailedMsg:
		m.statusBar.SetFailed(msg.err)
		m.terminal.Add(components.Entry{Timestamp: time.Now(), Err: msg.err})

	case dataMsg:
		m.terminal.Add(components.Entry{Timestamp: msg.at, Data: msg.data})

	case lineStateMsg:
		changed := m.lineTable.Update(msg.state, msg.at) & m.lines
		if changed != serial.NoSignals {
			state := msg.state
			m.terminal.Add(components.Entry{
				Timestamp: msg.at,
				Lines:     &state,
				Changed:   changed,
			})
		}

	case statsTickMsg:
		if m.port != nil {
			m.statusBar.SetStats(m.port.Stats())
			if m.port.IsClosed() {
				m.statusBar.SetClosed()
			}
		}
		return m, statsTick()

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *watchModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// The port is closed after Run returns; the change listener may be
		// blocked in p.Send until then.
		m.cancel()
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.Formatter().ToggleHex()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleASCII):
		m.terminal.Formatter().ToggleASCII()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleTimestamps):
		m.terminal.Formatter().ToggleTimestamps()
		m.terminal.Refresh()

	case key.Matches(msg, m.keys.ToggleDTR):
		m.toggleLine(serial.SignalDTR)

	case key.Matches(msg, m.keys.ToggleRTS):
		m.toggleLine(serial.SignalRTS)

	case key.Matches(msg, m.keys.ScrollUp):
		m.terminal.ScrollUp()

	case key.Matches(msg, m.keys.ScrollDown):
		m.terminal.ScrollDown()

	case key.Matches(msg, m.keys.Follow):
		m.terminal.Follow()
	}
	return nil
}

// toggleLine flips an output line; the reader reports the new level
func (m *watchModel) toggleLine(line serial.SignalMask) {
	if m.port == nil {
		return
	}
	cur, err := m.port.LineState()
	if err == nil {
		if line == serial.SignalDTR {
			err = m.port.SetDTR(!cur.DataTerminalReady)
		} else {
			err = m.port.SetRTS(!cur.RequestToSend)
		}
	}
	if err != nil {
		m.terminal.Add(components.Entry{Timestamp: time.Now(), Err: err})
	}
}

func (m *watchModel) helpView() string {
	if !m.help.ShowAll {
		return m.help.View(m.keys)
	}
	return styles.HelpStyle.Render(m.help.View(m.keys))
}

func (m *watchModel) resize() {
	if m.height == 0 {
		return
	}
	// Line table, status bar, help and the log border
	used := lipgloss.Height(m.lineTable.View()) + 1 + lipgloss.Height(m.helpView()) + 1
	height := m.height - used
	if height < 3 {
		height = 3
	}
	m.terminal.SetSize(m.width, height)
}

func (m *watchModel) View() string {
	if m.height == 0 {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.statusBar.View(m.terminal.Following()),
		m.lineTable.View(),
		styles.ContentBorderStyle.Render(m.terminal.View()),
		m.helpView(),
	)
}
