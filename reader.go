package serial

import (
	"log/slog"

	"go.uber.org/atomic"
)

// readerLoop drains a driver into the ring buffer. It is the only
// producer and runs until the driver fails or the port is closed.
type readerLoop struct {
	name    string
	src     Driver
	buf     *ringBuffer
	onState func(LineState)
	closing *atomic.Bool
	stats   *portStats
	log     *slog.Logger
	done    chan struct{}
}

func (r *readerLoop) start() {
	go r.run()
}

func (r *readerLoop) run() {
	defer close(r.done)

	for {
		sample, err := r.src.ReadSample()
		if err != nil {
			if r.closing.Load() {
				r.log.Debug("reader stopped")
				return
			}
			ioErr := &IOError{Op: "read", Port: r.name, Err: err}
			r.log.Error("reader failed", "error", err)
			r.buf.fail(ioErr)
			return
		}

		r.stats.samples.Inc()
		valid, b, state := sample.Decode()
		if valid {
			r.stats.bytesRead.Inc()
			if r.buf.produce(b) {
				r.stats.bytesDropped.Inc()
			}
		} else {
			r.stats.statusSamples.Inc()
		}
		r.onState(state)
	}
}
