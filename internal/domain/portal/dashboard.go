package portal

import (
	"strings"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/project"
)

// NavItem is one entry of the project sidebar.
type NavItem struct {
	ID          string         `json:"id"`
	ClientName  string         `json:"client_name"`
	ProjectName string         `json:"project_name"`
	Status      project.Status `json:"status"`
	Selected    bool           `json:"selected"`
}

// TabItem is one navigation tab.
type TabItem struct {
	Tab    Tab    `json:"tab"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Dashboard is the presentation view model derived from a state.
type Dashboard struct {
	Phase       Phase            `json:"phase"`
	Version     uint64           `json:"version"`
	User        *identity.User   `json:"user,omitempty"`
	UserInitial string           `json:"user_initial"`
	UserShortID string           `json:"user_short_id"`
	Nav         []NavItem        `json:"nav"`
	Tabs        []TabItem        `json:"tabs"`
	Tab         Tab              `json:"tab"`
	Project     *project.Project `json:"project,omitempty"`
	HeaderID    string           `json:"header_id,omitempty"`
	Metrics     metrics.View     `json:"metrics"`
	DeltaText   string           `json:"delta_text"`
	Failure     *Failure         `json:"failure,omitempty"`
}

// Dashboard derives the view model from the current state.
func (p *Portal) Dashboard() Dashboard {
	return NewDashboard(p.State())
}

// NewDashboard derives the view model for s.
func NewDashboard(s State) Dashboard {
	d := Dashboard{
		Phase:       s.Phase,
		Version:     s.Version,
		User:        s.User,
		UserInitial: "U",
		Tab:         s.Tab,
		Failure:     s.Failure,
		Nav:         make([]NavItem, 0, len(s.Projects)),
		Metrics:     metrics.NewView(nil),
	}
	if s.User != nil {
		d.UserShortID = s.User.ShortID()
		if s.User.UID != "" {
			d.UserInitial = strings.ToUpper(s.User.UID[:1])
		}
	}
	for _, t := range Tabs() {
		d.Tabs = append(d.Tabs, TabItem{Tab: t, Label: t.Label(), Active: t == s.Tab})
	}
	for _, proj := range s.Projects {
		d.Nav = append(d.Nav, NavItem{
			ID:          proj.ID,
			ClientName:  proj.ClientName,
			ProjectName: proj.ProjectName,
			Status:      proj.Status,
			Selected:    proj.ID == s.SelectedID,
		})
	}
	if selected, ok := s.Selected(); ok {
		d.Project = &selected
		d.HeaderID = HeaderID(selected.ID)
		d.Metrics = selected.View()
	}
	d.DeltaText = metrics.FormatDelta(d.Metrics.ProgressDelta)
	return d
}

// HeaderID is the abbreviated upper-case project id shown in the header.
func HeaderID(id string) string {
	id = strings.ToUpper(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
