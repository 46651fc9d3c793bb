package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rpggio/aerial/internal/domain/portal"
)

// handleEvents streams the viewer's dashboard as server-sent "state" events,
// one per portal state change. Slow readers only see the newest state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	p, err := s.apiPortal(r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	watcher := p.Watch()
	defer watcher.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-watcher.States():
			if !ok {
				return
			}
			data, err := json.Marshal(portal.NewDashboard(state))
			if err != nil {
				s.logger.Error("encode state event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: state\nid: %d\ndata: %s\n\n", state.Version, data); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
