package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldNotify(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur LineState
		mask      SignalMask
		want      bool
	}{
		{"Equal states", LineState{ClearToSend: true}, LineState{ClearToSend: true}, AllSignals, false},
		{"Monitored line", LineState{}, LineState{ClearToSend: true}, SignalCTS, true},
		{"Unmonitored line", LineState{}, LineState{RingIndicator: true}, SignalCTS | SignalDSR, false},
		{"One of several", LineState{}, LineState{RingIndicator: true, DataSetReady: true}, SignalDSR, true},
		{"Falling edge", LineState{CarrierDetect: true}, LineState{}, SignalDCD, true},
		{"Nothing monitored", LineState{}, LineState{ClearToSend: true}, NoSignals, false},
		{"DTR monitored", LineState{}, LineState{DataTerminalReady: true}, SignalDTR, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldNotify(tt.prev, tt.cur, tt.mask); got != tt.want {
				t.Errorf("shouldNotify(%v, %v, %v) = %v, want %v", tt.prev, tt.cur, tt.mask, got, tt.want)
			}
		})
	}
}

func TestListenerCoalesces(t *testing.T) {
	var (
		mu     sync.Mutex
		latest LineState
		calls  []LineState
	)
	entered := make(chan struct{}, 8)
	release := make(chan struct{})

	l := newListener(func(s LineState) {
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
		entered <- struct{}{}
		<-release
	}, func() LineState {
		mu.Lock()
		defer mu.Unlock()
		return latest
	}, nil, new(sync.Mutex))
	l.start()
	defer l.stop()

	set := func(s LineState) {
		mu.Lock()
		latest = s
		mu.Unlock()
		l.post()
	}

	set(LineState{ClearToSend: true})
	<-entered

	// three changes while the callback is busy
	set(LineState{DataSetReady: true})
	set(LineState{CarrierDetect: true})
	final := LineState{RingIndicator: true}
	set(final)

	release <- struct{}{}
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("pending change not delivered")
	}
	close(release)

	// no further calls
	select {
	case <-entered:
		t.Fatal("changes were not coalesced")
	case <-time.After(30 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 2)
	assert.Equal(t, LineState{ClearToSend: true}, calls[0])
	assert.Equal(t, final, calls[1])
}

func TestListenerStop(t *testing.T) {
	calls := make(chan LineState, 4)
	l := newListener(func(s LineState) { calls <- s }, func() LineState { return LineState{} }, nil, new(sync.Mutex))
	l.start()

	l.post()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}

	l.stop()
	select {
	case <-l.doneCh:
	case <-time.After(time.Second):
		t.Fatal("listener goroutine did not exit")
	}

	l.post()
	select {
	case <-calls:
		t.Fatal("listener called after stop")
	case <-time.After(20 * time.Millisecond):
	}
}
