package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpggio/aerial/internal/domain/portal"
)

// NewConfigErrorServer serves the configuration error page on every route.
func NewConfigErrorServer(cause error, logger *slog.Logger) *chi.Mux {
	p := mustLoadPages()
	failure := portal.NewFailure(portal.ErrorConfigurationMissing)

	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		if logger != nil {
			logger.Debug("configuration error page served", "path", r.URL.Path, "cause", cause)
		}
		p.renderFailure(w, failure)
	})
	return r
}
