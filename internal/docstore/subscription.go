package docstore

import "sync"

// Subscription delivers snapshots of one collection until closed.
//
// The channel holds at most one undelivered snapshot; a newer snapshot replaces
// an older one that has not been received yet.
type Subscription struct {
	path    string
	ch      chan Snapshot
	done    chan struct{}
	release func(*Subscription)

	mu     sync.Mutex
	err    error
	closed bool
}

func newSubscription(path string, release func(*Subscription)) *Subscription {
	return &Subscription{
		path:    path,
		ch:      make(chan Snapshot, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// Path returns the watched collection path.
func (s *Subscription) Path() string {
	return s.path
}

// Snapshots returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Done is closed when the subscription ends for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.end(nil)
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
		return
	default:
	}
	// drop the stale undelivered snapshot
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *Subscription) end(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
	close(s.done)
	s.mu.Unlock()

	if s.release != nil {
		s.release(s)
	}
}
