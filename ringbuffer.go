package serial

import (
	"context"
	"fmt"
	"sync"
)

// DefaultBufferSize is the capacity of the receive ring buffer.
const DefaultBufferSize = 500

type popKind int

const (
	popData popKind = iota
	popClosed
	popFailed
	popInterrupted
)

// popResult is the outcome of a single blocking pop.
type popResult struct {
	kind popKind
	b    byte
	err  error
}

// ringBuffer is a fixed-size byte FIFO between the reader goroutine and
// consumers. When full the oldest byte is overwritten, so it holds at most
// len(buf)-1 bytes.
type ringBuffer struct {
	name string

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	begin  int
	end    int
	err    error // latched terminal error
	closed bool
}

func newRingBuffer(name string, size int) *ringBuffer {
	if size < 2 {
		size = DefaultBufferSize
	}
	r := &ringBuffer{
		name: name,
		buf:  make([]byte, size),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// produce appends b and wakes waiting consumers. It reports whether the
// oldest byte was dropped to make room.
func (r *ringBuffer) produce(b byte) (dropped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.err != nil {
		return false
	}

	r.buf[r.end] = b
	r.end = (r.end + 1) % len(r.buf)
	if r.end == r.begin {
		r.begin = (r.begin + 1) % len(r.buf)
		dropped = true
	}
	r.cond.Broadcast()
	return dropped
}

// pop removes one byte, waiting until data arrives, an error is latched,
// the buffer is closed or ctx is done while interruptible reports true.
// interruptible is re-checked on every wakeup so it may change while the
// pop is waiting.
func (r *ringBuffer) pop(ctx context.Context, interruptible func() bool) popResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, r.wake)
		defer stop()
	}

	for {
		switch {
		case r.closed:
			return popResult{kind: popClosed}
		case r.begin != r.end:
			b := r.buf[r.begin]
			r.begin = (r.begin + 1) % len(r.buf)
			return popResult{kind: popData, b: b}
		case r.err != nil:
			return popResult{kind: popFailed, err: r.err}
		case ctx.Err() != nil && interruptible():
			return popResult{kind: popInterrupted, err: ctx.Err()}
		}
		r.cond.Wait()
	}
}

// wake makes every waiting pop re-evaluate its conditions.
func (r *ringBuffer) wake() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// read fills p with at most len(p) bytes. It blocks only for the first
// byte and returns early once the buffer is empty.
func (r *ringBuffer) read(ctx context.Context, p []byte, interruptible func() bool) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		res := r.pop(ctx, interruptible)
		if res.kind != popData {
			if n > 0 {
				return n, nil
			}
			return 0, r.resultErr(res)
		}
		p[n] = res.b
		n++
		if r.available() == 0 {
			break
		}
	}
	return n, nil
}

func (r *ringBuffer) resultErr(res popResult) error {
	switch res.kind {
	case popClosed:
		return ErrPortClosed
	case popInterrupted:
		return &IOError{Op: "read", Port: r.name, Err: fmt.Errorf("%w: %w", ErrInterrupted, res.err)}
	default:
		return res.err
	}
}

// available returns the number of buffered bytes.
func (r *ringBuffer) available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.end >= r.begin {
		return r.end - r.begin
	}
	return len(r.buf) - r.begin + r.end
}

// fail latches err. Bytes already buffered are still delivered, after which
// every pop returns err.
func (r *ringBuffer) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err == nil {
		r.err = err
	}
	r.cond.Broadcast()
}

// close discards buffered data and releases all waiters.
func (r *ringBuffer) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.cond.Broadcast()
}
