package serial

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func never() bool  { return false }
func always() bool { return true }

func drain(t *testing.T, r *ringBuffer) []byte {
	t.Helper()
	var out []byte
	for r.available() > 0 {
		res := r.pop(context.Background(), never)
		require.Equal(t, popData, res.kind)
		out = append(out, res.b)
	}
	return out
}

func TestRingBufferOrder(t *testing.T) {
	r := newRingBuffer("test", 8)
	for _, b := range []byte("hello") {
		assert.False(t, r.produce(b))
	}

	assert.Equal(t, 5, r.available())
	assert.Equal(t, []byte("hello"), drain(t, r))
	assert.Equal(t, 0, r.available())
}

func TestRingBufferDropOldest(t *testing.T) {
	const capacity = 10
	r := newRingBuffer("test", capacity)

	in := make([]byte, capacity+7)
	for i := range in {
		in[i] = byte(i)
	}
	dropped := 0
	for _, b := range in {
		if r.produce(b) {
			dropped++
		}
	}

	// holds the most recent capacity-1 bytes
	assert.Equal(t, capacity-1, r.available())
	assert.Equal(t, len(in)-(capacity-1), dropped)
	assert.Equal(t, in[len(in)-(capacity-1):], drain(t, r))
}

func TestRingBufferWrapAvailable(t *testing.T) {
	r := newRingBuffer("test", 4)
	for i := 0; i < 3; i++ {
		r.produce(byte(i))
	}
	drain(t, r)

	r.produce('a')
	r.produce('b')
	assert.Equal(t, 2, r.available())
	assert.Equal(t, []byte("ab"), drain(t, r))
}

func TestRingBufferBlockingPop(t *testing.T) {
	r := newRingBuffer("test", 8)
	got := make(chan popResult, 1)
	go func() {
		got <- r.pop(context.Background(), never)
	}()

	select {
	case <-got:
		t.Fatal("pop returned before data was produced")
	case <-time.After(20 * time.Millisecond):
	}

	r.produce('x')
	select {
	case res := <-got:
		assert.Equal(t, popData, res.kind)
		assert.Equal(t, byte('x'), res.b)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up")
	}
}

func TestRingBufferLatchedError(t *testing.T) {
	r := newRingBuffer("test", 8)
	boom := errors.New("boom")

	waiting := make(chan popResult, 1)
	go func() {
		waiting <- r.pop(context.Background(), never)
	}()
	time.Sleep(10 * time.Millisecond)

	r.fail(boom)

	select {
	case res := <-waiting:
		assert.Equal(t, popFailed, res.kind)
		assert.ErrorIs(t, res.err, boom)
	case <-time.After(time.Second):
		t.Fatal("blocked pop not released by fail")
	}

	// later data is not delivered and the error stays latched
	r.produce('z')
	for i := 0; i < 3; i++ {
		n, err := r.read(context.Background(), make([]byte, 4), never)
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, boom)
	}

	// a second failure does not replace the first
	r.fail(errors.New("other"))
	_, err := r.read(context.Background(), make([]byte, 1), never)
	assert.ErrorIs(t, err, boom)
}

func TestRingBufferDataBeforeError(t *testing.T) {
	r := newRingBuffer("test", 8)
	r.produce('a')
	r.produce('b')
	r.fail(errors.New("gone"))

	buf := make([]byte, 8)
	n, err := r.read(context.Background(), buf, never)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))

	_, err = r.read(context.Background(), buf, never)
	assert.EqualError(t, err, "gone")
}

func TestRingBufferCloseReleasesWaiters(t *testing.T) {
	r := newRingBuffer("test", 8)

	const waiters = 3
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := r.read(context.Background(), make([]byte, 1), never)
			results <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)

	r.close()
	for i := 0; i < waiters; i++ {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, ErrPortClosed)
		case <-time.After(time.Second):
			t.Fatal("waiter not released by close")
		}
	}

	// buffered data is discarded on close
	r.produce('q')
	_, err := r.read(context.Background(), make([]byte, 1), never)
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestRingBufferShortRead(t *testing.T) {
	r := newRingBuffer("test", 16)

	n, err := r.read(context.Background(), nil, never)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	for _, b := range []byte("abc") {
		r.produce(b)
	}
	buf := make([]byte, 10)
	n, err = r.read(context.Background(), buf, never)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))

	for _, b := range []byte("defgh") {
		r.produce(b)
	}
	n, err = r.read(context.Background(), buf[:2], never)
	require.NoError(t, err)
	assert.Equal(t, "de", string(buf[:n]))
	assert.Equal(t, 3, r.available())
}

func TestRingBufferInterrupt(t *testing.T) {
	t.Run("interruptible", func(t *testing.T) {
		r := newRingBuffer("test", 8)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := r.read(ctx, make([]byte, 1), always)
			done <- err
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrInterrupted)
			assert.ErrorIs(t, err, ErrIO)
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("read not interrupted")
		}
	})

	t.Run("not interruptible", func(t *testing.T) {
		r := newRingBuffer("test", 8)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 1)
			n, _ := r.read(ctx, buf, never)
			done <- buf[:n]
		}()

		select {
		case <-done:
			t.Fatal("read returned although cancellation is ignored")
		case <-time.After(30 * time.Millisecond):
		}

		r.produce('k')
		select {
		case got := <-done:
			assert.Equal(t, []byte("k"), got)
		case <-time.After(time.Second):
			t.Fatal("read did not resume")
		}
	})
}

func TestRingBufferInterruptEnabledWhileWaiting(t *testing.T) {
	r := newRingBuffer("test", 8)
	var enabled atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := r.read(ctx, make([]byte, 1), enabled.Load)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		t.Fatalf("read returned while interrupts were off: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	enabled.Store(true)
	r.wake()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("read ignored the enabled flag")
	}
}
