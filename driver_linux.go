//go:build linux

package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// samplePollInterval is how often, in milliseconds, an idle read re-checks
// the modem lines and the closed flag.
const samplePollInterval = 10

// unixDriver talks to a tty through termios and the TIOCM ioctls
type unixDriver struct {
	name   string
	fd     int
	mu     sync.RWMutex // shared by I/O, exclusive for Close
	closed atomic.Bool
}

var _ Driver = (*unixDriver)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

func openNative(name string, config Config) (Driver, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapOpenError(name, err)
	}

	if _, err := unix.IoctlGetTermios(fd, unix.TCGETS); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
			return nil, fmt.Errorf("failed to open %s: %w", name, ErrNotASerialPort)
		}
		return nil, &IOError{Op: "open", Port: name, Err: err}
	}

	if !config.KeepSettings {
		if err := configurePort(fd, config); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	return &unixDriver{name: name, fd: fd}, nil
}

func mapOpenError(name string, err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return fmt.Errorf("failed to open %s: %w", name, ErrNoSuchPort)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("failed to open %s: %w", name, ErrPermissionDenied)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("failed to open %s: %w", name, ErrDeviceInUse)
	default:
		return &IOError{Op: "open", Port: name, Err: err}
	}
}

// configurePort puts the tty into raw mode with the configured framing
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}

	switch config.FlowControl {
	case FlowControlHardware:
		termios.Cflag |= unix.CRTSCTS
	case FlowControlSoftware:
		termios.Iflag |= unix.IXON | unix.IXOFF
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// modemStatus returns the TIOCM bits. Pseudo terminals have no modem
// lines and report all of them low.
func (d *unixDriver) modemStatus() (int, error) {
	status, err := unix.IoctlGetInt(d.fd, unix.TIOCMGET)
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
		return 0, nil
	}
	return status, err
}

func tiocmToLineState(status int) LineState {
	return LineState{
		CarrierDetect:     status&unix.TIOCM_CAR != 0,
		ClearToSend:       status&unix.TIOCM_CTS != 0,
		DataSetReady:      status&unix.TIOCM_DSR != 0,
		DataTerminalReady: status&unix.TIOCM_DTR != 0,
		RequestToSend:     status&unix.TIOCM_RTS != 0,
		RingIndicator:     status&unix.TIOCM_RI != 0,
	}
}

// poll waits up to timeout milliseconds for events. Hangups and errors
// count as ready so the following read reports them.
func (d *unixDriver) poll(events int16, timeout int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: events}}
	n, err := unix.Poll(fds, timeout)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if fds[0].Revents&unix.POLLNVAL != 0 {
		return false, unix.EBADF
	}
	return true, nil
}

// ReadSample waits for a data byte or a change of the modem lines
func (d *unixDriver) ReadSample() (Sample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed.Load() {
		return 0, ErrPortClosed
	}

	start, err := d.modemStatus()
	if err != nil {
		return 0, err
	}

	var data Sample
loop:
	for {
		ready, err := d.poll(unix.POLLIN, samplePollInterval)
		if err != nil {
			return 0, err
		}
		if d.closed.Load() {
			return 0, ErrPortClosed
		}

		if ready {
			var b [1]byte
			n, err := unix.Read(d.fd, b[:])
			switch {
			case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
				continue
			case err != nil:
				return 0, err
			case n == 0:
				return 0, io.EOF
			}
			data = sampleValid | Sample(b[0])
			break loop
		}

		status, err := d.modemStatus()
		if err != nil {
			return 0, err
		}
		if status != start {
			break
		}
	}

	status, err := d.modemStatus()
	if err != nil {
		return 0, err
	}
	return data | tiocmToLineState(status).sampleBits(), nil
}

// Read reads raw data without sampling the modem lines
func (d *unixDriver) Read(p []byte) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for {
		if d.closed.Load() {
			return 0, ErrPortClosed
		}
		ready, err := d.poll(unix.POLLIN, samplePollInterval)
		if err != nil {
			return 0, err
		}
		if !ready {
			continue
		}
		n, err := unix.Read(d.fd, p)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return 0, err
		case n == 0:
			return 0, io.EOF
		}
		return n, nil
	}
}

func (d *unixDriver) Write(p []byte) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	written := 0
	for written < len(p) {
		if d.closed.Load() {
			return written, ErrPortClosed
		}
		n, err := unix.Write(d.fd, p[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				if _, err := d.poll(unix.POLLOUT, samplePollInterval); err != nil {
					return written, err
				}
				continue
			}
			return written, err
		}
	}
	return written, nil
}

func (d *unixDriver) LineBits() (uint8, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed.Load() {
		return 0, ErrPortClosed
	}
	status, err := d.modemStatus()
	if err != nil {
		return 0, err
	}
	return tiocmToLineState(status).lineBits(), nil
}

// SetLineState applies DTR and RTS with a read-modify-write of the TIOCM bits
func (d *unixDriver) SetLineState(state LineState) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed.Load() {
		return ErrPortClosed
	}

	status, err := unix.IoctlGetInt(d.fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("failed to get modem status: %w", err)
	}
	status = setTIOCMBit(status, unix.TIOCM_DTR, state.DataTerminalReady)
	status = setTIOCMBit(status, unix.TIOCM_RTS, state.RequestToSend)
	if err := unix.IoctlSetPointerInt(d.fd, unix.TIOCMSET, status); err != nil {
		return fmt.Errorf("failed to set modem status: %w", err)
	}
	return nil
}

func setTIOCMBit(status, bit int, on bool) int {
	if on {
		return status | bit
	}
	return status &^ bit
}

// Close waits for in-flight I/O to notice the closed flag, then releases
// the descriptor.
func (d *unixDriver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return unix.Close(d.fd)
}
