package serial

import (
	"errors"
	"fmt"
	"sync"
	"time"

	bugst "go.bug.st/serial"
	"go.uber.org/atomic"
)

// portableReadTimeout bounds each read so idle ports still sample the
// modem lines.
const portableReadTimeout = 10 * time.Millisecond

// portableDriver runs on go.bug.st/serial. The library cannot read back
// DTR and RTS, so their levels are tracked from what was last set.
// Flow control and KeepSettings are not supported by this driver.
type portableDriver struct {
	name   string
	port   bugst.Port
	closed atomic.Bool

	mu  sync.Mutex // guards dtr, rts
	dtr bool
	rts bool
}

var _ Driver = (*portableDriver)(nil)

func openPortable(name string, config Config) (Driver, error) {
	mode := &bugst.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   convertParity(config.Parity),
		StopBits: convertStopBits(config.StopBits),
		InitialStatusBits: &bugst.ModemOutputBits{
			DTR: true,
			RTS: true,
		},
	}

	p, err := bugst.Open(name, mode)
	if err != nil {
		return nil, mapPortError(name, err)
	}
	if err := p.SetReadTimeout(portableReadTimeout); err != nil {
		p.Close()
		return nil, &IOError{Op: "open", Port: name, Err: err}
	}

	return &portableDriver{name: name, port: p, dtr: true, rts: true}, nil
}

func convertStopBits(bits int) bugst.StopBits {
	switch bits {
	case 2:
		return bugst.TwoStopBits
	default:
		return bugst.OneStopBit
	}
}

func convertParity(parity Parity) bugst.Parity {
	switch parity {
	case ParityOdd:
		return bugst.OddParity
	case ParityEven:
		return bugst.EvenParity
	case ParityMark:
		return bugst.MarkParity
	case ParitySpace:
		return bugst.SpaceParity
	default:
		return bugst.NoParity
	}
}

func mapPortError(name string, err error) error {
	var portErr *bugst.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case bugst.PortNotFound:
			return fmt.Errorf("failed to open %s: %w", name, ErrNoSuchPort)
		case bugst.InvalidSerialPort:
			return fmt.Errorf("failed to open %s: %w", name, ErrNotASerialPort)
		case bugst.PermissionDenied:
			return fmt.Errorf("failed to open %s: %w", name, ErrPermissionDenied)
		case bugst.PortBusy:
			return fmt.Errorf("failed to open %s: %w", name, ErrDeviceInUse)
		case bugst.InvalidSpeed:
			return fmt.Errorf("failed to open %s: %w", name, ErrInvalidBaudRate)
		case bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits:
			return fmt.Errorf("failed to open %s: %w", name, ErrInvalidConfig)
		}
	}
	return &IOError{Op: "open", Port: name, Err: err}
}

func (d *portableDriver) lineState() (LineState, error) {
	bits, err := d.port.GetModemStatusBits()
	if err != nil {
		return LineState{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return LineState{
		CarrierDetect:     bits.DCD,
		ClearToSend:       bits.CTS,
		DataSetReady:      bits.DSR,
		DataTerminalReady: d.dtr,
		RequestToSend:     d.rts,
		RingIndicator:     bits.RI,
	}, nil
}

func (d *portableDriver) readErr(err error) error {
	if d.closed.Load() {
		return ErrPortClosed
	}
	return err
}

// ReadSample waits for a data byte or a change of the modem lines
func (d *portableDriver) ReadSample() (Sample, error) {
	start, err := d.lineState()
	if err != nil {
		return 0, d.readErr(err)
	}

	for {
		if d.closed.Load() {
			return 0, ErrPortClosed
		}

		var b [1]byte
		n, err := d.port.Read(b[:])
		if err != nil {
			return 0, d.readErr(err)
		}

		state, err := d.lineState()
		if err != nil {
			return 0, d.readErr(err)
		}
		if n == 1 {
			return DataSample(b[0], state), nil
		}
		if state != start {
			return StatusSample(state), nil
		}
	}
}

func (d *portableDriver) Read(p []byte) (int, error) {
	for {
		if d.closed.Load() {
			return 0, ErrPortClosed
		}
		n, err := d.port.Read(p)
		if err != nil {
			return n, d.readErr(err)
		}
		if n > 0 || len(p) == 0 {
			return n, nil
		}
	}
}

func (d *portableDriver) Write(p []byte) (int, error) {
	if d.closed.Load() {
		return 0, ErrPortClosed
	}
	return d.port.Write(p)
}

func (d *portableDriver) LineBits() (uint8, error) {
	if d.closed.Load() {
		return 0, ErrPortClosed
	}
	state, err := d.lineState()
	if err != nil {
		return 0, err
	}
	return state.lineBits(), nil
}

func (d *portableDriver) SetLineState(state LineState) error {
	if d.closed.Load() {
		return ErrPortClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.port.SetDTR(state.DataTerminalReady); err != nil {
		return fmt.Errorf("failed to set DTR: %w", err)
	}
	d.dtr = state.DataTerminalReady
	if err := d.port.SetRTS(state.RequestToSend); err != nil {
		return fmt.Errorf("failed to set RTS: %w", err)
	}
	d.rts = state.RequestToSend
	return nil
}

func (d *portableDriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.port.Close()
}
