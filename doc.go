// Package serial exposes a serial port as a byte stream in each direction
// plus asynchronous notifications of control line changes.
//
// A background goroutine per open port reads samples from the driver. Each
// sample carries the state of the six RS-232 control lines and, optionally,
// one received byte. Data bytes go into a bounded ring buffer that Read
// drains; line changes are forwarded to a listener when they touch one of
// the lines selected at open time.
//
// # Basic Usage
//
// Open a serial port with default configuration (9600 8N1, no flow control):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("AT\r"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// # Configuration Options
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(115200),
//	    serial.WithControlLines(serial.SignalCTS|serial.SignalDCD),
//	    serial.WithBufferSize(4096),
//	    serial.WithInitialDTR(true),
//	    serial.WithLogger(slog.Default()),
//	)
//
// # Line State
//
//	port.SetChangeListener(func(s serial.LineState) {
//	    fmt.Println("lines:", s)
//	})
//
//	state, err := port.LineState() // fresh query
//	err = port.SetDTR(false)
//
// Notifications are coalesced: if lines change again while the listener is
// still running, it is called once more with the latest state. Opening with
// NoSignals disables monitoring entirely and Read goes straight to the
// driver.
//
// # Buffering
//
// The receive buffer holds BufferSize-1 bytes. When it is full the oldest
// byte is dropped; Stats reports how many.
//
// # Errors
//
// A driver failure seen by the background reader is latched and returned
// as an *IOError by every later Read, after any bytes that were already
// buffered. Use errors.Is with ErrIO, ErrPortClosed, ErrNoSuchPort and the
// other sentinels.
//
// ReadContext waits uninterruptibly unless SetInterruptCausesError(true)
// is set, in which case cancelling the context fails the read with
// ErrInterrupted.
//
// # Drivers
//
// On Linux the native driver uses termios and the TIOCM ioctls directly.
// WithPortableDriver selects a driver built on go.bug.st/serial, which is
// also the default on other platforms.
package serial
