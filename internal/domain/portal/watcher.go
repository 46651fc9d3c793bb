package portal

import (
	"context"
	"sync"
)

// Watcher streams state copies. Only the newest undelivered state is kept.
type Watcher struct {
	ch     chan State
	once   sync.Once
	remove func(*Watcher)
}

// States returns the delivery channel. It is closed when the watcher or the
// portal is closed.
func (w *Watcher) States() <-chan State {
	return w.ch
}

// Close stops delivery.
func (w *Watcher) Close() {
	w.remove(w)
}

// deliver and end are called with the portal's mu held.
func (w *Watcher) deliver(s State) {
	select {
	case w.ch <- s:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- s
}

func (w *Watcher) end() {
	w.once.Do(func() { close(w.ch) })
}

// Watch returns a watcher primed with the current state.
func (p *Portal) Watch() *Watcher {
	w := &Watcher{ch: make(chan State, 1)}
	w.remove = func(w *Watcher) {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, w)
		w.end()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.end()
		return w
	}
	p.watchers[w] = struct{}{}
	w.deliver(p.state.Clone())
	return w
}

// Await blocks until cond holds for the current state, the context ends or the
// portal closes, and returns the last state seen.
func (p *Portal) Await(ctx context.Context, cond func(State) bool) (State, error) {
	w := p.Watch()
	defer w.Close()

	last := p.State()
	for {
		if cond(last) {
			return last, nil
		}
		select {
		case s, ok := <-w.States():
			if !ok {
				return last, ErrClosed
			}
			last = s
		case <-ctx.Done():
			return last, ctx.Err()
		}
	}
}

// Settled reports whether the portal has left the loading phase.
func Settled(s State) bool {
	return s.Phase != PhaseLoading
}
