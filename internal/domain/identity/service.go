package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/repository"
)

// Service issues and resolves portal sessions.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	tokens   TokenConfig
	activity ActivityRecorder
	logger   *slog.Logger
}

// NewService creates a new identity service.
func NewService(users UserRepository, sessions SessionRepository, tokens TokenConfig, recorder ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		activity: recorder,
		logger:   logger,
	}
}

// MintCustomToken issues a custom sign-in token for uid.
func (s *Service) MintCustomToken(uid string, ttl time.Duration) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}
	if strings.Contains(uid, "/") {
		return "", fmt.Errorf("%w: uid must not contain '/'", ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return s.tokens.sign(audienceCustom, uid, uuid.NewString(), ttl)
}

// SignInAnonymous creates a fresh anonymous user and session.
func (s *Service) SignInAnonymous(ctx context.Context) (*SignIn, error) {
	uid := uuid.NewString()
	result, err := s.signIn(ctx, uid, MethodAnonymous)
	if err != nil {
		return nil, err
	}
	s.record(ctx, result, activity.TypeSignInAnonymous, "Signed in anonymously")
	return result, nil
}

// SignInWithToken verifies a custom token and signs in its subject.
func (s *Service) SignInWithToken(ctx context.Context, customToken string) (*SignIn, error) {
	claims, err := s.tokens.verify(customToken, audienceCustom)
	if err != nil {
		s.logger.Warn("custom token rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	result, err := s.signIn(ctx, claims.Subject, MethodToken)
	if err != nil {
		return nil, err
	}
	s.record(ctx, result, activity.TypeSignInToken, "Signed in with custom token")
	return result, nil
}

// Resolve maps a session token to its open session and user.
func (s *Service) Resolve(ctx context.Context, sessionToken string) (*SignIn, error) {
	claims, err := s.tokens.verify(sessionToken, audienceSession)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess.UID != claims.Subject || !sess.Open(s.tokens.now()) {
		return nil, ErrSessionNotFound
	}

	user, err := s.users.Get(ctx, sess.UID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &SignIn{User: *user, Session: *sess, Token: sessionToken}, nil
}

// SessionID returns the session id a session token was issued for. The
// session may since have been closed.
func (s *Service) SessionID(sessionToken string) (string, error) {
	claims, err := s.tokens.verify(sessionToken, audienceSession)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	if claims.ID == "" {
		return "", ErrSessionNotFound
	}
	return claims.ID, nil
}

// Resume restores a previous session for a returning viewer.
func (s *Service) Resume(ctx context.Context, sessionToken string) (*SignIn, error) {
	result, err := s.Resolve(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	s.record(ctx, result, activity.TypeSignInResumed, "Resumed session")
	return result, nil
}

// SignOut closes a session. Closing an already closed session is a no-op.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	if sess.ClosedAt != nil {
		return nil
	}
	if err := s.sessions.Close(ctx, sessionID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if s.activity != nil {
		s.activity.Record(ctx, sess.UID, sess.ID, activity.TypeSignOut, "Signed out")
	}
	return nil
}

func (s *Service) signIn(ctx context.Context, uid string, method Method) (*SignIn, error) {
	now := s.tokens.now().UTC()

	user, err := s.users.Get(ctx, uid)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &User{UID: uid, Anonymous: method == MethodAnonymous, CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("%w: get user: %v", ErrAuthenticationFailed, err)
	}
	user.LastSignInAt = now
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: save user: %v", ErrAuthenticationFailed, err)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		UID:       uid,
		Method:    method,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.sessionTTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrAuthenticationFailed, err)
	}

	token, err := s.tokens.sign(audienceSession, uid, sess.ID, s.tokens.sessionTTL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	s.logger.Info("user signed in", "uid", uid, "method", method, "session_id", sess.ID)
	return &SignIn{User: *user, Session: *sess, Token: token}, nil
}

func (s *Service) record(ctx context.Context, in *SignIn, typ activity.Type, summary string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, in.User.UID, in.Session.ID, typ, summary)
}
