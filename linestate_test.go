package serial

import "testing"

func TestSampleDecode(t *testing.T) {
	tests := []struct {
		name      string
		sample    Sample
		wantValid bool
		wantByte  byte
		wantState LineState
	}{
		{
			name:      "Status only CD",
			sample:    1 << 9,
			wantValid: false,
			wantState: LineState{CarrierDetect: true},
		},
		{
			name:      "Valid byte no lines",
			sample:    0x8041,
			wantValid: true,
			wantByte:  'A',
		},
		{
			name:      "Valid byte with CTS and RTS",
			sample:    0x8000 | 1<<10 | 1<<13 | 0xff,
			wantValid: true,
			wantByte:  0xff,
			wantState: LineState{ClearToSend: true, RequestToSend: true},
		},
		{
			name:      "Data bits ignored without valid flag",
			sample:    0x0041 | 1<<11,
			wantValid: false,
			wantState: LineState{DataSetReady: true},
		},
		{
			name:   "All lines",
			sample: 0x7e00,
			wantState: LineState{
				CarrierDetect: true, ClearToSend: true, DataSetReady: true,
				DataTerminalReady: true, RequestToSend: true, RingIndicator: true,
			},
		},
		{
			name:      "Bit 8 is unused",
			sample:    1 << 8,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, b, state := tt.sample.Decode()
			if valid != tt.wantValid {
				t.Errorf("Decode(%#04x) valid = %v, want %v", uint16(tt.sample), valid, tt.wantValid)
			}
			if b != tt.wantByte {
				t.Errorf("Decode(%#04x) byte = %#02x, want %#02x", uint16(tt.sample), b, tt.wantByte)
			}
			if state != tt.wantState {
				t.Errorf("Decode(%#04x) state = %v, want %v", uint16(tt.sample), state, tt.wantState)
			}
		})
	}
}

func TestDecodeLineBits(t *testing.T) {
	tests := []struct {
		name string
		bits uint8
		want LineState
	}{
		{"None", 0, LineState{}},
		{"CD", 1 << 0, LineState{CarrierDetect: true}},
		{"CTS", 1 << 1, LineState{ClearToSend: true}},
		{"DSR", 1 << 2, LineState{DataSetReady: true}},
		{"DTR", 1 << 3, LineState{DataTerminalReady: true}},
		{"RTS", 1 << 4, LineState{RequestToSend: true}},
		{"RI", 1 << 5, LineState{RingIndicator: true}},
		{"Upper bits ignored", 0xc0, LineState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeLineBits(tt.bits); got != tt.want {
				t.Errorf("decodeLineBits(%#02x) = %v, want %v", tt.bits, got, tt.want)
			}
		})
	}
}

// The query layout and the sample layout must not be confused
func TestLayoutsDiffer(t *testing.T) {
	state := LineState{CarrierDetect: true, RingIndicator: true}

	if got := decodeLineBits(state.lineBits()); got != state {
		t.Errorf("decodeLineBits(lineBits()) = %v, want %v", got, state)
	}
	if _, _, got := StatusSample(state).Decode(); got != state {
		t.Errorf("StatusSample(%v).Decode() = %v", state, got)
	}
	if uint16(state.lineBits()) == uint16(state.sampleBits()) {
		t.Errorf("line bits and sample bits should differ for %v", state)
	}
}

func TestDataSample(t *testing.T) {
	state := LineState{DataTerminalReady: true}
	valid, b, got := DataSample(0x00, state).Decode()
	if !valid || b != 0x00 || got != state {
		t.Errorf("DataSample(0x00).Decode() = %v, %#02x, %v", valid, b, got)
	}
}

func TestLineStateChanged(t *testing.T) {
	tests := []struct {
		name     string
		old, cur LineState
		expected SignalMask
	}{
		{"No change", LineState{ClearToSend: true}, LineState{ClearToSend: true}, 0},
		{"CTS changed", LineState{}, LineState{ClearToSend: true}, SignalCTS},
		{"DSR changed", LineState{}, LineState{DataSetReady: true}, SignalDSR},
		{"RI changed", LineState{}, LineState{RingIndicator: true}, SignalRI},
		{"DCD changed", LineState{}, LineState{CarrierDetect: true}, SignalDCD},
		{"DTR changed", LineState{}, LineState{DataTerminalReady: true}, SignalDTR},
		{"Signal went low", LineState{RequestToSend: true}, LineState{}, SignalRTS},
		{
			"Multiple signals changed",
			LineState{ClearToSend: true},
			LineState{DataSetReady: true},
			SignalCTS | SignalDSR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.old.Changed(tt.cur); got != tt.expected {
				t.Errorf("Changed(%v, %v) = %v, want %v", tt.old, tt.cur, got, tt.expected)
			}
		})
	}
}

func TestSignalMaskString(t *testing.T) {
	tests := []struct {
		mask SignalMask
		want string
	}{
		{NoSignals, "none"},
		{SignalCTS, "CTS"},
		{SignalCTS | SignalDSR, "CTS|DSR"},
		{AllSignals, "CD|CTS|DSR|DTR|RTS|RI"},
	}

	for _, tt := range tests {
		if got := tt.mask.String(); got != tt.want {
			t.Errorf("SignalMask(%d).String() = %q, want %q", tt.mask, got, tt.want)
		}
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want SignalMask
		ok   bool
	}{
		{"cts", SignalCTS, true},
		{"DCD", SignalDCD, true},
		{"cd", SignalDCD, true},
		{" ri ", SignalRI, true},
		{"all", AllSignals, true},
		{"none", NoSignals, true},
		{"xyz", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseSignal(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSignal(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLineStateString(t *testing.T) {
	state := LineState{ClearToSend: true, RingIndicator: true}
	want := "CD=0 CTS=1 DSR=0 DTR=0 RTS=0 RI=1"
	if got := state.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if !state.Has(SignalCTS) || state.Has(SignalDSR) || state.Has(NoSignals) {
		t.Errorf("Has() mismatch for %v", state)
	}
}
