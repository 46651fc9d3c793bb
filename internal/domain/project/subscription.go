package project

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rpggio/aerial/internal/docstore"
)

// Subscription streams decoded project snapshots for one user.
//
// Like the underlying document subscription it keeps only the newest
// undelivered snapshot.
type Subscription struct {
	src    *docstore.Subscription
	ch     chan []Project
	done   chan struct{}
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

func newSubscription(src *docstore.Subscription, logger *slog.Logger) *Subscription {
	s := &Subscription{
		src:    src,
		ch:     make(chan []Project, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run()
	return s
}

// Projects returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) Projects() <-chan []Project {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription. It wraps ErrDataLoadFailed
// when the store or a document failed, and is nil after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.src.Close()
}

func (s *Subscription) run() {
	var err error
	defer func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.ch)
		close(s.done)
	}()

	for snap := range s.src.Snapshots() {
		projects, decodeErr := decodeSnapshot(snap)
		if decodeErr != nil {
			err = fmt.Errorf("%w: %v", ErrDataLoadFailed, decodeErr)
			s.src.Close()
			return
		}
		warnAnomalies(s.logger, projects)
		s.deliver(projects)
	}
	if srcErr := s.src.Err(); srcErr != nil {
		err = fmt.Errorf("%w: %v", ErrDataLoadFailed, srcErr)
	}
}

func (s *Subscription) deliver(projects []Project) {
	select {
	case s.ch <- projects:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- projects
}

func warnAnomalies(logger *slog.Logger, projects []Project) {
	for _, p := range projects {
		for _, a := range p.Metrics.Anomalies() {
			logger.Warn("metric series not monotonic",
				"project_id", p.ID,
				"index", a.Index,
				"label", a.Label,
				"field", a.Field,
			)
		}
	}
}
