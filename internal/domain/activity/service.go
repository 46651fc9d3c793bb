package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// DefaultLimit caps listings when the caller gives no limit.
const DefaultLimit = 50

// Service handles activity log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Log records an entry, stamping the current time if missing.
func (s *Service) Log(ctx context.Context, entry *Entry) error {
	if entry == nil || strings.TrimSpace(entry.UID) == "" || entry.Type == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// Record logs an entry and only reports failures to the logger. Activity is an
// audit trail; callers never fail because of it.
func (s *Service) Record(ctx context.Context, uid string, sessionID string, typ Type, summary string) {
	if s == nil {
		return
	}
	entry := &Entry{UID: uid, Type: typ, Summary: summary}
	if sessionID != "" {
		entry.SessionID = &sessionID
	}
	if err := s.Log(ctx, entry); err != nil {
		s.logger.Warn("activity not recorded", "uid", uid, "type", typ, "error", err)
	}
}

// Recent lists a user's newest entries first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if strings.TrimSpace(opts.UID) == "" {
		return nil, ErrInvalidInput
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}
