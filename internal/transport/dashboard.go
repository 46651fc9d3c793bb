package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/rpggio/aerial/internal/domain/portal"
)

// viewerPortal returns the portal for the request's session cookie, opening
// one when none is live. A portal that failed to start is returned with its
// error; the caller renders and closes it.
func (s *Server) viewerPortal(w http.ResponseWriter, r *http.Request) (*portal.Portal, error) {
	token := cookieToken(r)
	if p := s.registeredPortal(token); p != nil {
		return p, nil
	}

	p, err := s.registry.Open(r.Context(), portal.Credential{
		SessionToken: token,
		CustomToken:  r.URL.Query().Get("token"),
	})
	if err != nil {
		return p, err
	}
	if in, ok := p.Session(); ok && in.Token != token {
		setSessionCookie(w, in.Token, s.sessionTTL)
	}
	return p, nil
}

// registeredPortal looks up a live portal by the session a token names. The
// session may be closed so that a signed-out portal is still found.
func (s *Server) registeredPortal(token string) *portal.Portal {
	if token == "" {
		return nil
	}
	sessionID, err := s.resolver.SessionID(token)
	if err != nil {
		return nil
	}
	p, ok := s.registry.Get(sessionID)
	if !ok {
		return nil
	}
	return p
}

// settle waits a bounded time for the portal to leave the loading phase.
func (s *Server) settle(ctx context.Context, p *portal.Portal) (portal.State, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settleTimeout)
	defer cancel()
	return p.Await(ctx, portal.Settled)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.viewerPortal(w, r)
	if err != nil {
		defer p.Close()
		s.logger.Warn("portal start failed", "error", err)
		s.pages.renderDashboard(w, p.Dashboard())
		return
	}

	state, err := s.settle(r.Context(), p)
	if err != nil {
		if errors.Is(err, portal.ErrClosed) {
			http.Error(w, "portal closed", http.StatusServiceUnavailable)
			return
		}
		s.pages.renderDashboard(w, portal.NewDashboard(state))
		return
	}

	if state.Phase == portal.PhaseReady {
		query := r.URL.Query()
		if err := s.applySelection(r.Context(), p, query.Get("project"), query.Get("tab")); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
	}

	s.pages.renderDashboard(w, p.Dashboard())
}

func (s *Server) applySelection(ctx context.Context, p *portal.Portal, projectID, tab string) error {
	if tab != "" {
		t, err := portal.ParseTab(tab)
		if err != nil {
			return err
		}
		if err := p.SelectTab(ctx, t); err != nil {
			return err
		}
	}
	if projectID != "" {
		if err := p.SelectProject(ctx, projectID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	p := s.registeredPortal(cookieToken(r))
	if p == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.applySelection(r.Context(), p, r.PostForm.Get("project_id"), r.PostForm.Get("tab")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	p := s.registeredPortal(cookieToken(r))
	if p == nil {
		clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := p.SignOut(r.Context()); err != nil {
		s.logger.Warn("sign out failed", "error", err)
		http.Error(w, "sign out failed", statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSignIn discards a signed-out portal so the next visit signs in again.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	token := cookieToken(r)
	if p := s.registeredPortal(token); p != nil {
		if p.State().Phase != portal.PhaseSignedOut {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if sessionID, err := s.resolver.SessionID(token); err == nil {
			s.registry.Close(sessionID)
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
