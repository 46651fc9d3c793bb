package transport

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/portal"
	"github.com/rpggio/aerial/internal/domain/project"
)

//go:embed templates/*.html
var templateFS embed.FS

var boldSpan = regexp.MustCompile(`\*\*(.+?)\*\*`)

// boldMarkup escapes s and turns **spans** into <strong> elements.
func boldMarkup(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(boldSpan.ReplaceAllString(escaped, "<strong>$1</strong>"))
}

var pageFuncs = template.FuncMap{
	"bold":   boldMarkup,
	"number": metrics.FormatNumber,
	"upper":  strings.ToUpper,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "N/A"
		}
		return t.UTC().Format("Jan 2, 2006")
	},
	// bar clamps a percentage for inline bar widths.
	"bar": func(v float64) float64 {
		return min(max(v, 0), 100)
	},
	"link": func(p *project.Project, name string) string {
		if p == nil || p.Links[name] == "" {
			return "#"
		}
		return p.Links[name]
	},
	"isVideo": func(m project.Media) bool {
		return m.Kind == project.MediaVideo
	},
}

type pages struct {
	tmpl *template.Template
}

func mustLoadPages() *pages {
	return &pages{tmpl: template.Must(template.New("").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html"))}
}

type messagePage struct {
	Title   string
	Message string
	// Action renders a single form button when set.
	Action      string
	ActionLabel string
}

type dashboardPage struct {
	portal.Dashboard
	Survey surveyArea
}

// surveyArea is the fixed survey footprint card.
type surveyArea struct {
	Area string
	GSD  string
}

var defaultSurvey = surveyArea{Area: "4.2 Ha", GSD: "GSD: 2.4cm/px"}

func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderDashboard picks the page for the dashboard's phase.
func (p *pages) renderDashboard(w http.ResponseWriter, d portal.Dashboard) {
	switch d.Phase {
	case portal.PhaseReady:
		p.render(w, http.StatusOK, "dashboard", dashboardPage{Dashboard: d, Survey: defaultSurvey})
	case portal.PhaseSignedOut:
		p.render(w, http.StatusOK, "message", messagePage{
			Title:       "Signed out",
			Message:     "You have been signed out of the client portal.",
			Action:      "/signin",
			ActionLabel: "Sign in again",
		})
	case portal.PhaseError:
		p.renderFailure(w, d.Failure)
	default:
		p.render(w, http.StatusOK, "loading", d)
	}
}

func (p *pages) renderFailure(w http.ResponseWriter, failure *portal.Failure) {
	status := http.StatusInternalServerError
	msg := "Something went wrong."
	if failure != nil {
		msg = failure.Message
		switch failure.Kind {
		case portal.ErrorAuthenticationFailed:
			status = http.StatusUnauthorized
		case portal.ErrorConfigurationMissing, portal.ErrorDataLoadFailed:
			status = http.StatusServiceUnavailable
		}
	}
	p.render(w, status, "message", messagePage{Title: "Portal unavailable", Message: msg})
}
