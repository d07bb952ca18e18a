package serial

import "log/slog"

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone     FlowControl = iota
	FlowControlHardware             // RTS/CTS
	FlowControlSoftware             // XON/XOFF
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlHardware:
		return "rtscts"
	case FlowControlSoftware:
		return "xonxoff"
	default:
		return "unknown"
	}
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return "unknown"
	}
}

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl

	// ControlLines selects which lines raise change notifications. With
	// NoSignals the port runs unbuffered and no reader goroutine is started.
	ControlLines SignalMask
	BufferSize   int  // receive ring buffer capacity
	KeepSettings bool // open without touching the line settings

	InitialRTS *bool
	InitialDTR *bool

	// InterruptCausesError makes a cancelled ReadContext fail instead of
	// continuing to wait.
	InterruptCausesError bool

	Driver Opener // nil selects the native driver
	Logger *slog.Logger
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:     9600,
		DataBits:     8,
		StopBits:     1,
		Parity:       ParityNone,
		FlowControl:  FlowControlNone,
		ControlLines: AllSignals,
		BufferSize:   DefaultBufferSize,
	}
}

var standardBaudRates = map[int]struct{}{
	50: {}, 75: {}, 110: {}, 134: {}, 150: {}, 200: {}, 300: {}, 600: {},
	1200: {}, 1800: {}, 2400: {}, 4800: {}, 9600: {}, 19200: {}, 38400: {},
	57600: {}, 115200: {}, 230400: {}, 460800: {}, 500000: {}, 576000: {},
	921600: {}, 1000000: {}, 1152000: {}, 1500000: {}, 2000000: {},
	2500000: {}, 3000000: {}, 3500000: {}, 4000000: {},
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, ok := standardBaudRates[rate]; !ok {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc < FlowControlNone || fc > FlowControlSoftware {
			return ErrInvalidConfig
		}
		c.FlowControl = fc
		return nil
	}
}

// WithControlLines selects the lines whose changes are reported to the
// change listener
func WithControlLines(mask SignalMask) Option {
	return func(c *Config) error {
		if mask&^AllSignals != 0 {
			return ErrInvalidConfig
		}
		c.ControlLines = mask
		return nil
	}
}

// WithBufferSize sets the receive buffer capacity
func WithBufferSize(size int) Option {
	return func(c *Config) error {
		if size < 2 {
			return ErrInvalidConfig
		}
		c.BufferSize = size
		return nil
	}
}

// WithKeepSettings opens the port without reconfiguring it
func WithKeepSettings() Option {
	return func(c *Config) error {
		c.KeepSettings = true
		return nil
	}
}

// WithInitialRTS sets RTS right after the port is opened
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets DTR right after the port is opened
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithInterruptCausesError sets the initial interrupt behaviour of ReadContext
func WithInterruptCausesError(enabled bool) Option {
	return func(c *Config) error {
		c.InterruptCausesError = enabled
		return nil
	}
}

// WithDriver replaces the platform driver
func WithDriver(open Opener) Option {
	return func(c *Config) error {
		if open == nil {
			return ErrInvalidConfig
		}
		c.Driver = open
		return nil
	}
}

// WithPortableDriver uses the go.bug.st/serial backed driver
func WithPortableDriver() Option {
	return WithDriver(openPortable)
}

// WithLogger sets the logger for port diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
