package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rpggio/aerial/internal/docstore"

// Store is the document store with realtime collection subscriptions.
type Store struct {
	repo   Repository
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	// publishMu orders snapshot loads so watchers never see an older snapshot
	// after a newer one.
	publishMu sync.Mutex

	mu       sync.Mutex
	watchers map[string]map[*Subscription]struct{}
	closed   bool
}

// New creates a store over the given repository.
func New(repo Repository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		repo:     repo,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		watchers: make(map[string]map[*Subscription]struct{}),
	}
}

// Upsert creates or replaces a document and notifies watchers of its collection.
func (s *Store) Upsert(ctx context.Context, path, id string, data json.RawMessage) (*Document, error) {
	ctx, span := s.tracer.Start(ctx, "docstore.Upsert", trace.WithAttributes(
		attribute.String("docstore.path", path),
		attribute.String("docstore.id", id),
	))
	defer span.End()

	clean, err := CleanPath(path)
	if err != nil {
		return nil, recordErr(span, err)
	}
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") || len(data) == 0 || !json.Valid(data) {
		return nil, recordErr(span, ErrInvalidDocument)
	}
	if s.isClosed() {
		return nil, recordErr(span, ErrClosed)
	}

	now := s.now()
	doc := &Document{
		Path:      clean,
		ID:        id,
		Data:      append(json.RawMessage(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, recordErr(span, fmt.Errorf("upserting document: %w", err))
	}

	s.publish(ctx, clean)
	out := doc.Clone()
	return &out, nil
}

// Get returns a single document.
func (s *Store) Get(ctx context.Context, path, id string) (*Document, error) {
	ctx, span := s.tracer.Start(ctx, "docstore.Get", trace.WithAttributes(
		attribute.String("docstore.path", path),
		attribute.String("docstore.id", id),
	))
	defer span.End()

	clean, err := CleanPath(path)
	if err != nil {
		return nil, recordErr(span, err)
	}
	doc, err := s.repo.Get(ctx, clean, id)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return doc, nil
}

// List returns a snapshot of a collection.
func (s *Store) List(ctx context.Context, path string) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "docstore.List", trace.WithAttributes(
		attribute.String("docstore.path", path),
	))
	defer span.End()

	clean, err := CleanPath(path)
	if err != nil {
		return Snapshot{}, recordErr(span, err)
	}
	snap, err := s.load(ctx, clean)
	if err != nil {
		return Snapshot{}, recordErr(span, err)
	}
	span.SetAttributes(attribute.Int("docstore.documents", len(snap.Documents)))
	return snap, nil
}

// Delete removes a document and notifies watchers of its collection.
func (s *Store) Delete(ctx context.Context, path, id string) error {
	ctx, span := s.tracer.Start(ctx, "docstore.Delete", trace.WithAttributes(
		attribute.String("docstore.path", path),
		attribute.String("docstore.id", id),
	))
	defer span.End()

	clean, err := CleanPath(path)
	if err != nil {
		return recordErr(span, err)
	}
	if err := s.repo.Delete(ctx, clean, id); err != nil {
		return recordErr(span, err)
	}
	s.publish(ctx, clean)
	return nil
}

// Watch subscribes to a collection. The initial snapshot is queued before Watch
// returns. The subscription ends when ctx is done, on Close, or when a reload fails.
func (s *Store) Watch(ctx context.Context, path string) (*Subscription, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(clean, s.release)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := s.watchers[clean]
	if !ok {
		set = make(map[*Subscription]struct{})
		s.watchers[clean] = set
	}
	set[sub] = struct{}{}
	s.mu.Unlock()

	s.publishMu.Lock()
	snap, err := s.load(ctx, clean)
	if err == nil {
		sub.deliver(snap)
	}
	s.publishMu.Unlock()
	if err != nil {
		sub.end(err)
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()

	s.logger.Debug("watch started", "path", clean)
	return sub, nil
}

// Close ends every subscription and rejects further writes.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var subs []*Subscription
	for _, set := range s.watchers {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.end(ErrClosed)
	}
}

// WatcherCount returns the number of live subscriptions on a path.
func (s *Store) WatcherCount(path string) int {
	clean, err := CleanPath(path)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[clean])
}

func (s *Store) publish(ctx context.Context, path string) {
	subs := s.subscribers(path)
	if len(subs) == 0 {
		return
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	// detached from request cancellation; the write already happened
	snap, err := s.load(context.WithoutCancel(ctx), path)
	if err != nil {
		s.logger.Error("reloading collection failed", "path", path, "error", err)
		for _, sub := range subs {
			sub.end(fmt.Errorf("reloading %s: %w", path, err))
		}
		return
	}
	for _, sub := range subs {
		sub.deliver(snap.Clone())
	}
}

func (s *Store) load(ctx context.Context, path string) (Snapshot, error) {
	docs, err := s.repo.List(ctx, path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	return Snapshot{Path: path, Documents: docs, ReadAt: s.now()}, nil
}

func (s *Store) subscribers(path string) []*Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.watchers[path]
	subs := make([]*Subscription, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	return subs
}

func (s *Store) release(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.watchers[sub.path]
	delete(set, sub)
	if len(set) == 0 {
		delete(s.watchers, sub.path)
	}
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
