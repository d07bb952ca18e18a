package serial

// Driver is the platform layer beneath a Port.
//
// ReadSample blocks until a data byte arrives or the line status changes,
// and returns both in a single Sample. Read is the plain data path used
// when line monitoring is disabled. LineBits is a non-blocking query of
// the control lines in the bit 0-5 layout (CD, CTS, DSR, DTR, RTS, RI).
// SetLineState only honours DTR and RTS. Close must unblock any pending
// ReadSample or Read.
type Driver interface {
	ReadSample() (Sample, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	LineBits() (uint8, error)
	SetLineState(state LineState) error
	Close() error
}

// Opener opens a Driver for the named device.
type Opener func(name string, cfg Config) (Driver, error)
