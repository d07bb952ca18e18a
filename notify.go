package serial

import "sync"

// ChangeListener receives the current line state after a monitored line
// changes. Calls are made from a dedicated goroutine, one at a time, also
// across a listener being replaced.
type ChangeListener func(state LineState)

// shouldNotify reports whether the transition from prev to cur touches a
// line in mask.
func shouldNotify(prev, cur LineState, mask SignalMask) bool {
	if prev == cur {
		return false
	}
	return prev.Changed(cur)&mask != 0
}

// listener delivers change notifications. Posts that arrive while a
// callback is running collapse into one pending wakeup, and each wakeup
// reports the latest state rather than the one that triggered it.
type listener struct {
	fn      ChangeListener
	deliver *sync.Mutex // shared by all listeners of a port
	latest  func() LineState
	onCall  func()
	wakeCh  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newListener(fn ChangeListener, latest func() LineState, onCall func(), deliver *sync.Mutex) *listener {
	return &listener{
		fn:      fn,
		deliver: deliver,
		latest:  latest,
		onCall:  onCall,
		wakeCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func (l *listener) start() {
	go func() {
		defer close(l.doneCh)
		for {
			select {
			case <-l.stopCh:
				return
			case <-l.wakeCh:
			}

			if !l.deliverOne() {
				return
			}
		}
	}()
}

// deliverOne makes one call unless the listener was stopped meanwhile. The
// previous listener of the port may still be inside its callback, so the
// call waits for the shared delivery lock.
func (l *listener) deliverOne() bool {
	l.deliver.Lock()
	defer l.deliver.Unlock()

	select {
	case <-l.stopCh:
		return false
	default:
	}

	if l.onCall != nil {
		l.onCall()
	}
	l.fn(l.latest())
	return true
}

// post schedules a delivery without blocking the reader.
func (l *listener) post() {
	select {
	case l.wakeCh <- struct{}{}:
	default:
		// Channel already has a signal, skip
	}
}

// stop ends delivery. A callback already running is allowed to finish,
// no new one starts.
func (l *listener) stop() {
	close(l.stopCh)
}

// wait blocks until the delivery goroutine has exited.
func (l *listener) wait() {
	<-l.doneCh
}
