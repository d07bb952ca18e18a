package serial

import "strings"

// LineState is a snapshot of the six RS-232 control lines.
type LineState struct {
	CarrierDetect     bool // CD/DCD
	ClearToSend       bool // CTS
	DataSetReady      bool // DSR
	DataTerminalReady bool // DTR
	RequestToSend     bool // RTS
	RingIndicator     bool // RI
}

// SignalMask identifies a subset of control lines
type SignalMask uint8

const (
	SignalDTR SignalMask = 1 << iota
	SignalRTS
	SignalDCD
	SignalCTS
	SignalDSR
	SignalRI

	NoSignals  SignalMask = 0
	AllSignals            = SignalDTR | SignalRTS | SignalDCD | SignalCTS | SignalDSR | SignalRI
)

var signalNames = []struct {
	mask SignalMask
	name string
}{
	{SignalDCD, "CD"},
	{SignalCTS, "CTS"},
	{SignalDSR, "DSR"},
	{SignalDTR, "DTR"},
	{SignalRTS, "RTS"},
	{SignalRI, "RI"},
}

// String returns the line names in the mask, e.g. "CTS|DSR".
func (m SignalMask) String() string {
	if m == NoSignals {
		return "none"
	}
	var names []string
	for _, s := range signalNames {
		if m&s.mask != 0 {
			names = append(names, s.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseSignal maps a line name (case-insensitive) to its mask bit.
func ParseSignal(name string) (SignalMask, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CD", "DCD":
		return SignalDCD, true
	case "CTS":
		return SignalCTS, true
	case "DSR":
		return SignalDSR, true
	case "DTR":
		return SignalDTR, true
	case "RTS":
		return SignalRTS, true
	case "RI":
		return SignalRI, true
	case "ALL":
		return AllSignals, true
	case "NONE":
		return NoSignals, true
	}
	return 0, false
}

// Has reports whether the line selected by s is asserted.
func (l LineState) Has(s SignalMask) bool {
	return l.Asserted()&s == s && s != NoSignals
}

// Asserted returns the mask of lines that are currently high.
func (l LineState) Asserted() SignalMask {
	var m SignalMask
	if l.CarrierDetect {
		m |= SignalDCD
	}
	if l.ClearToSend {
		m |= SignalCTS
	}
	if l.DataSetReady {
		m |= SignalDSR
	}
	if l.DataTerminalReady {
		m |= SignalDTR
	}
	if l.RequestToSend {
		m |= SignalRTS
	}
	if l.RingIndicator {
		m |= SignalRI
	}
	return m
}

// Changed compares two line states to determine which lines differ
func (l LineState) Changed(other LineState) SignalMask {
	return l.Asserted() ^ other.Asserted()
}

func (l LineState) String() string {
	var b strings.Builder
	for i, s := range signalNames {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.name)
		b.WriteByte('=')
		if l.Asserted()&s.mask != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Sample is one word produced by a driver's blocking read. Bit 15 marks a
// valid data byte held in bits 0-7. Bits 9-14 carry the line status and are
// present on every sample.
type Sample uint16

const (
	sampleValid Sample = 1 << 15

	sampleCD  Sample = 1 << 9
	sampleCTS Sample = 1 << 10
	sampleDSR Sample = 1 << 11
	sampleDTR Sample = 1 << 12
	sampleRTS Sample = 1 << 13
	sampleRI  Sample = 1 << 14
)

// DataSample builds a sample carrying b and the given line state.
func DataSample(b byte, state LineState) Sample {
	return sampleValid | Sample(b) | state.sampleBits()
}

// StatusSample builds a status-only sample.
func StatusSample(state LineState) Sample {
	return state.sampleBits()
}

// Decode splits a sample into its data byte, if any, and line state.
func (s Sample) Decode() (valid bool, b byte, state LineState) {
	state = LineState{
		CarrierDetect:     s&sampleCD != 0,
		ClearToSend:       s&sampleCTS != 0,
		DataSetReady:      s&sampleDSR != 0,
		DataTerminalReady: s&sampleDTR != 0,
		RequestToSend:     s&sampleRTS != 0,
		RingIndicator:     s&sampleRI != 0,
	}
	if s&sampleValid == 0 {
		return false, 0, state
	}
	return true, byte(s), state
}

func (l LineState) sampleBits() Sample {
	var s Sample
	if l.CarrierDetect {
		s |= sampleCD
	}
	if l.ClearToSend {
		s |= sampleCTS
	}
	if l.DataSetReady {
		s |= sampleDSR
	}
	if l.DataTerminalReady {
		s |= sampleDTR
	}
	if l.RequestToSend {
		s |= sampleRTS
	}
	if l.RingIndicator {
		s |= sampleRI
	}
	return s
}

// Line bits as returned by Driver.LineBits. This layout is not the one
// used inside samples.
const (
	lineCD uint8 = 1 << iota
	lineCTS
	lineDSR
	lineDTR
	lineRTS
	lineRI
)

// decodeLineBits converts the non-blocking query layout into a LineState.
func decodeLineBits(bits uint8) LineState {
	return LineState{
		CarrierDetect:     bits&lineCD != 0,
		ClearToSend:       bits&lineCTS != 0,
		DataSetReady:      bits&lineDSR != 0,
		DataTerminalReady: bits&lineDTR != 0,
		RequestToSend:     bits&lineRTS != 0,
		RingIndicator:     bits&lineRI != 0,
	}
}

func (l LineState) lineBits() uint8 {
	var bits uint8
	if l.CarrierDetect {
		bits |= lineCD
	}
	if l.ClearToSend {
		bits |= lineCTS
	}
	if l.DataSetReady {
		bits |= lineDSR
	}
	if l.DataTerminalReady {
		bits |= lineDTR
	}
	if l.RequestToSend {
		bits |= lineRTS
	}
	if l.RingIndicator {
		bits |= lineRI
	}
	return bits
}
