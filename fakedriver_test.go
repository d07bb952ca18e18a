package serial

import (
	"bytes"
	"sync"
)

// fakeDriver is a scripted Driver. Samples and errors are fed through
// channels and ReadSample blocks until one arrives or Close is called.
type fakeDriver struct {
	samples chan Sample
	errs    chan error
	data    chan []byte
	closeCh chan struct{}
	once    sync.Once

	mu       sync.Mutex
	written  bytes.Buffer
	lines    LineState
	setCalls []LineState
	writeErr error
	queryErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		samples: make(chan Sample),
		errs:    make(chan error, 1),
		data:    make(chan []byte, 16),
		closeCh: make(chan struct{}),
	}
}

// opener returns an Opener that hands out d
func (d *fakeDriver) opener() Opener {
	return func(string, Config) (Driver, error) { return d, nil }
}

func (d *fakeDriver) ReadSample() (Sample, error) {
	select {
	case s := <-d.samples:
		return s, nil
	case err := <-d.errs:
		return 0, err
	case <-d.closeCh:
		return 0, ErrPortClosed
	}
}

func (d *fakeDriver) Read(p []byte) (int, error) {
	select {
	case b := <-d.data:
		return copy(p, b), nil
	case err := <-d.errs:
		return 0, err
	case <-d.closeCh:
		return 0, ErrPortClosed
	}
}

func (d *fakeDriver) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	return d.written.Write(p)
}

func (d *fakeDriver) LineBits() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queryErr != nil {
		return 0, d.queryErr
	}
	return d.lines.lineBits(), nil
}

func (d *fakeDriver) SetLineState(state LineState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines.DataTerminalReady = state.DataTerminalReady
	d.lines.RequestToSend = state.RequestToSend
	d.setCalls = append(d.setCalls, state)
	return nil
}

func (d *fakeDriver) Close() error {
	d.once.Do(func() { close(d.closeCh) })
	return nil
}

func (d *fakeDriver) setLines(state LineState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = state
}

func (d *fakeDriver) writtenBytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.written.Bytes()...)
}
