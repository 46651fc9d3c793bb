package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/portal"
	"github.com/rpggio/aerial/internal/domain/project"
)

type createSessionRequest struct {
	Token string `json:"token,omitempty"`
}

type createSessionResponse struct {
	UID          string    `json:"uid"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type projectResponse struct {
	Project   project.Project   `json:"project"`
	View      metrics.View      `json:"view"`
	DeltaText string            `json:"delta_text"`
	Anomalies []metrics.Anomaly `json:"anomalies,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		in  *identity.SignIn
		err error
	)
	if req.Token != "" {
		in, err = s.signIn.SignInWithToken(r.Context(), req.Token)
	} else {
		in, err = s.signIn.SignInAnonymous(r.Context())
	}
	if err != nil {
		s.logger.Warn("api sign in failed", "error", err)
		writeJSONError(w, http.StatusUnauthorized, portal.ErrorAuthenticationFailed.Message())
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		UID:          in.User.UID,
		SessionToken: in.Token,
		ExpiresAt:    in.Session.ExpiresAt,
	})
}

// apiPortal returns the live portal for the authenticated viewer, resuming
// one from the request's token when none is registered.
func (s *Server) apiPortal(r *http.Request) (*portal.Portal, error) {
	viewer, ok := ViewerFromContext(r.Context())
	if !ok {
		return nil, ErrUnauthorized
	}
	if p, ok := s.registry.Get(viewer.Session.ID); ok {
		return p, nil
	}
	p, err := s.registry.Open(r.Context(), portal.Credential{SessionToken: requestToken(r)})
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := s.apiPortal(r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	// A still-loading state is returned as is.
	if _, err := s.settle(r.Context(), p); errors.Is(err, portal.ErrClosed) {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p.Dashboard())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	projects, err := s.projects.List(r.Context(), s.appID, viewer.User.UID)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	p, err := s.projects.Get(r.Context(), s.appID, viewer.User.UID, chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	view := p.View()
	writeJSON(w, http.StatusOK, projectResponse{
		Project:   *p,
		View:      view,
		DeltaText: metrics.FormatDelta(view.ProgressDelta),
		Anomalies: p.Metrics.Anomalies(),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	viewer, _ := ViewerFromContext(r.Context())
	opts := activity.ListOptions{UID: viewer.User.UID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	entries, err := s.activity.Recent(r.Context(), opts)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
