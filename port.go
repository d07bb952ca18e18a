package serial

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// Port represents a serial port connection interface
type Port interface {
	io.ReadWriteCloser
	io.ByteReader
	io.ByteWriter

	// ReadContext is Read with an interruptible wait. Whether a cancelled
	// ctx ends the wait depends on SetInterruptCausesError.
	ReadContext(ctx context.Context, buf []byte) (int, error)
	// Available returns the number of bytes that can be read without
	// blocking. It is advisory only.
	Available() int

	// Control line access
	LineState() (LineState, error)
	LastLineState() LineState
	SetLineState(state LineState) error
	SetDTR(state bool) error
	SetRTS(state bool) error

	SetChangeListener(fn ChangeListener)
	SetInterruptCausesError(enabled bool)

	Name() string
	IsClosed() bool
	Stats() Stats
}

// Stats holds counters for an open port
type Stats struct {
	BytesRead     uint64 // data bytes received from the driver
	BytesDropped  uint64 // bytes overwritten before they were read
	Samples       uint64
	StatusSamples uint64 // samples without a data byte
	Notifications uint64 // listener callbacks made
}

type portStats struct {
	bytesRead     atomic.Uint64
	bytesDropped  atomic.Uint64
	samples       atomic.Uint64
	statusSamples atomic.Uint64
	notifications atomic.Uint64
}

// port is the concrete implementation of the Port interface
type port struct {
	name   string
	config Config
	driver Driver
	log    *slog.Logger

	closed       atomic.Bool
	interruptErr atomic.Bool
	state        atomic.Pointer[LineState]
	stats        portStats

	buf    *ringBuffer // nil when line monitoring is disabled
	reader *readerLoop

	mu        sync.Mutex // guards listener
	listener  *listener
	deliverMu sync.Mutex // serialises change callbacks across listeners
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// Open opens a serial port with the given device path and options
func Open(name string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	return OpenConfig(name, config)
}

// OpenConfig opens a serial port using a complete configuration
func OpenConfig(name string, config Config) (Port, error) {
	if config.BufferSize == 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.BufferSize < 2 || config.ControlLines&^AllSignals != 0 {
		return nil, ErrInvalidConfig
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("port", name)

	open := config.Driver
	if open == nil {
		open = openNative
	}
	drv, err := open(name, config)
	if err != nil {
		logger.Debug("open failed", "error", err)
		return nil, err
	}

	initial, err := applyInitialLines(drv, config)
	if err != nil {
		drv.Close()
		return nil, &IOError{Op: "open", Port: name, Err: err}
	}

	p := &port{
		name:   name,
		config: config,
		driver: drv,
		log:    logger,
	}
	p.state.Store(&initial)
	p.interruptErr.Store(config.InterruptCausesError)

	if config.ControlLines != NoSignals {
		p.buf = newRingBuffer(name, config.BufferSize)
		p.reader = &readerLoop{
			name:    name,
			src:     drv,
			buf:     p.buf,
			onState: p.postLineState,
			closing: &p.closed,
			stats:   &p.stats,
			log:     logger,
			done:    make(chan struct{}),
		}
		p.reader.start()
	}

	logger.Info("port opened",
		"baud", config.BaudRate,
		"lines", config.ControlLines.String(),
		"buffered", p.buf != nil,
		"state", initial.String())
	return p, nil
}

// applyInitialLines queries the lines once and applies any configured
// DTR/RTS levels.
func applyInitialLines(drv Driver, config Config) (LineState, error) {
	bits, err := drv.LineBits()
	if err != nil {
		return LineState{}, err
	}
	state := decodeLineBits(bits)
	if config.InitialDTR == nil && config.InitialRTS == nil {
		return state, nil
	}

	if config.InitialDTR != nil {
		state.DataTerminalReady = *config.InitialDTR
	}
	if config.InitialRTS != nil {
		state.RequestToSend = *config.InitialRTS
	}
	if err := drv.SetLineState(state); err != nil {
		return LineState{}, err
	}
	return state, nil
}

// postLineState records the latest line state and wakes the listener if a
// monitored line changed.
func (p *port) postLineState(state LineState) {
	prev := p.state.Load()
	if *prev == state {
		return
	}
	p.state.Store(&state)

	if !shouldNotify(*prev, state, p.config.ControlLines) {
		return
	}
	p.mu.Lock()
	l := p.listener
	p.mu.Unlock()
	if l != nil {
		l.post()
	}
}

// Read reads data from the serial port
func (p *port) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

// ReadContext reads buffered data, blocking until at least one byte is
// available. Without line monitoring it reads the driver directly and ctx
// is not consulted.
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}

	if p.buf != nil {
		return p.buf.read(ctx, buf, p.interruptErr.Load)
	}

	if len(buf) == 0 {
		return 0, nil
	}
	n, err := p.driver.Read(buf)
	p.stats.bytesRead.Add(uint64(n))
	if err != nil {
		if p.closed.Load() {
			return n, ErrPortClosed
		}
		return n, &IOError{Op: "read", Port: p.name, Err: err}
	}
	return n, nil
}

// ReadByte reads a single byte
func (p *port) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := p.Read(b[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return b[0], nil
		}
	}
}

func (p *port) Available() int {
	if p.closed.Load() || p.buf == nil {
		return 0
	}
	return p.buf.available()
}

// Write writes data to the serial port
func (p *port) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}

	n, err := p.driver.Write(data)
	if err != nil {
		if p.closed.Load() {
			return n, ErrPortClosed
		}
		return n, &IOError{Op: "write", Port: p.name, Err: err}
	}
	return n, nil
}

// WriteByte writes a single byte
func (p *port) WriteByte(b byte) error {
	_, err := p.Write([]byte{b})
	return err
}

// LineState queries the driver for the current line state
func (p *port) LineState() (LineState, error) {
	if p.closed.Load() {
		return LineState{}, ErrPortClosed
	}

	bits, err := p.driver.LineBits()
	if err != nil {
		return LineState{}, &IOError{Op: "query", Port: p.name, Err: err}
	}
	return decodeLineBits(bits), nil
}

// LastLineState returns the line state most recently seen by the reader
func (p *port) LastLineState() LineState {
	return *p.state.Load()
}

// SetLineState drives DTR and RTS. The other fields are inputs and ignored.
func (p *port) SetLineState(state LineState) error {
	if p.closed.Load() {
		return ErrPortClosed
	}

	if err := p.driver.SetLineState(state); err != nil {
		return &IOError{Op: "set lines", Port: p.name, Err: err}
	}
	p.log.Debug("lines set", "dtr", state.DataTerminalReady, "rts", state.RequestToSend)
	return nil
}

// SetDTR sets the DTR signal state
func (p *port) SetDTR(state bool) error {
	cur, err := p.LineState()
	if err != nil {
		return err
	}
	cur.DataTerminalReady = state
	return p.SetLineState(cur)
}

// SetRTS sets the RTS signal state
func (p *port) SetRTS(state bool) error {
	cur, err := p.LineState()
	if err != nil {
		return err
	}
	cur.RequestToSend = state
	return p.SetLineState(cur)
}

// SetChangeListener registers fn for line change notifications, replacing
// any previous listener. A nil fn removes the listener. It is a no-op when
// the port was opened with NoSignals. If the previous callback is still
// running, the new one is not called before it returns. It may be called
// from inside a ChangeListener.
func (p *port) SetChangeListener(fn ChangeListener) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		p.listener.stop()
		p.listener = nil
	}
	if fn == nil || p.closed.Load() || p.config.ControlLines == NoSignals {
		return
	}

	l := newListener(fn, p.LastLineState, func() { p.stats.notifications.Inc() }, &p.deliverMu)
	l.start()
	p.listener = l
}

// SetInterruptCausesError also applies to reads that are already waiting.
func (p *port) SetInterruptCausesError(enabled bool) {
	p.interruptErr.Store(enabled)
	if p.buf != nil {
		p.buf.wake()
	}
}

func (p *port) Name() string {
	return p.name
}

func (p *port) IsClosed() bool {
	return p.closed.Load()
}

func (p *port) Stats() Stats {
	return Stats{
		BytesRead:     p.stats.bytesRead.Load(),
		BytesDropped:  p.stats.bytesDropped.Load(),
		Samples:       p.stats.samples.Load(),
		StatusSamples: p.stats.statusSamples.Load(),
		Notifications: p.stats.notifications.Load(),
	}
}

// Close closes the serial port. Blocked readers are released with
// ErrPortClosed. Closing an already closed port is a no-op.
//
// Close waits for a running change callback to return, so no callback runs
// after Close returns. It must not be called from inside a ChangeListener.
func (p *port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	l := p.listener
	p.listener = nil
	p.mu.Unlock()
	if l != nil {
		l.stop()
		l.wait()
	}

	if p.buf != nil {
		p.buf.close()
	}
	err := p.driver.Close()
	if p.reader != nil {
		<-p.reader.done
	}

	st := p.Stats()
	p.log.Info("port closed", "bytes_read", st.BytesRead, "bytes_dropped", st.BytesDropped)
	if err != nil {
		return &IOError{Op: "close", Port: p.name, Err: err}
	}
	return nil
}
