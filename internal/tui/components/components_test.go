package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	serial "github.com/allbin/go-serialstream"
	"github.com/stretchr/testify/assert"
)

func TestPrintableASCII(t *testing.T) {
	assert.Equal(t, "AT..OK", PrintableASCII([]byte("AT\r\nOK")))
	assert.Equal(t, "", PrintableASCII(nil))
	assert.Equal(t, ".~ ", PrintableASCII([]byte{0x7f, '~', ' '}))
}

func TestChangeSummary(t *testing.T) {
	state := serial.LineState{ClearToSend: true, DataSetReady: false}
	assert.Equal(t, "CTS↑ DSR↓", ChangeSummary(state, serial.SignalCTS|serial.SignalDSR))
	assert.Equal(t, state.String(), ChangeSummary(state, serial.NoSignals))
}

func TestLineTableUpdate(t *testing.T) {
	lt := NewLineTable(serial.SignalCTS | serial.SignalDSR)
	lt.SetInitial(serial.LineState{DataTerminalReady: true})

	now := time.Now()
	changed := lt.Update(serial.LineState{DataTerminalReady: true, ClearToSend: true}, now)
	assert.Equal(t, serial.SignalCTS, changed)
	assert.Equal(t, 1, lt.Changes(serial.SignalCTS))
	assert.Equal(t, 0, lt.Changes(serial.SignalDTR))

	changed = lt.Update(serial.LineState{ClearToSend: true}, now.Add(time.Second))
	assert.Equal(t, serial.SignalDTR, changed)
	assert.Equal(t, 1, lt.Changes(serial.SignalDTR))

	assert.Equal(t, serial.NoSignals, lt.Update(lt.State(), now))
	assert.Contains(t, lt.View(), "Clear To Send")
}

func TestDataFormatterModes(t *testing.T) {
	df := NewDataFormatter(DisplayMode{})
	e := Entry{Timestamp: time.Now(), Data: []byte("Hi")}

	assert.Contains(t, df.Format(e), "BYTES: 2")

	df.ToggleHex()
	assert.Contains(t, df.Format(e), "48 69")

	df.ToggleASCII()
	out := df.Format(e)
	assert.Contains(t, out, "48 69")
	assert.Contains(t, out, "ASCII: Hi")

	df.ToggleTimestamps()
	assert.Contains(t, df.Format(e), e.Timestamp.Format("15:04:05.000"))

	assert.Contains(t, df.Format(Entry{Err: errors.New("boom")}), "boom")
}

func TestTerminalCapsEntries(t *testing.T) {
	term := NewTerminal(40, 5, DisplayMode{ShowASCII: true})
	for i := 0; i < maxEntries+10; i++ {
		term.Add(Entry{Data: []byte{'a'}})
	}
	assert.Equal(t, maxEntries, term.Len())
	assert.True(t, term.Following())

	term.ScrollUp()
	assert.False(t, term.Following())
	term.Follow()
	assert.True(t, term.Following())

	term.Clear()
	assert.Equal(t, 0, term.Len())
}

func TestStatusBarView(t *testing.T) {
	sb := NewStatusBar("Watch", "/dev/ttyUSB0", ConnectionInfo{
		BaudRate: 9600, DataBits: 8, StopBits: 1, Lines: serial.SignalCTS,
	})
	sb.SetWidth(120)

	assert.Contains(t, sb.View(true), "OPENING")
	sb.SetOpen()
	sb.SetStats(serial.Stats{BytesRead: 42})
	view := sb.View(true)
	assert.Contains(t, view, "OPEN")
	assert.Contains(t, view, "rx:42")
	assert.Contains(t, view, "9600 8N1")

	sb.SetFailed(errors.New("unplugged"))
	assert.True(t, strings.Contains(sb.View(false), "unplugged"))
}
