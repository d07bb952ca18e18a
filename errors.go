package serial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrNoSuchPort       = errors.New("no such serial port")
	ErrNotASerialPort   = errors.New("device is not a serial port")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// Stream errors
	ErrIO          = errors.New("serial I/O error")
	ErrInterrupted = errors.New("blocking read interrupted")
)

// IOError is returned for failures of the underlying driver. Once the
// background reader hits one it is latched and returned by every
// subsequent read.
type IOError struct {
	Op   string
	Port string
	Err  error
}

func (e *IOError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports ErrIO as a match so callers can test for any I/O failure.
func (e *IOError) Is(target error) bool { return target == ErrIO }
