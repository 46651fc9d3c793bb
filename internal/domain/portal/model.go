package portal

import (
	"fmt"

	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/project"
)

// Phase is the coarse portal lifecycle state.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseReady     Phase = "ready"
	PhaseSignedOut Phase = "signed_out"
	PhaseError     Phase = "error"
)

// Tab is a dashboard navigation tab.
type Tab string

const (
	TabOverview    Tab = "overview"
	TabDigitalTwin Tab = "digitalTwin"
	TabMedia       Tab = "media"
	TabFiles       Tab = "files"
)

var tabLabels = map[Tab]string{
	TabOverview:    "Overview",
	TabDigitalTwin: "3D Digital Twin",
	TabMedia:       "Media & FPV",
	TabFiles:       "Files & Reports",
}

// Tabs returns every tab in navigation order.
func Tabs() []Tab {
	return []Tab{TabOverview, TabDigitalTwin, TabMedia, TabFiles}
}

// Label returns the navigation label.
func (t Tab) Label() string {
	return tabLabels[t]
}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if _, ok := tabLabels[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
	}
	return t, nil
}

// ErrorKind classifies terminal portal failures.
type ErrorKind string

const (
	ErrorConfigurationMissing ErrorKind = "ConfigurationMissing"
	ErrorAuthenticationFailed ErrorKind = "AuthenticationFailed"
	ErrorDataLoadFailed       ErrorKind = "DataLoadFailed"
)

var errorMessages = map[ErrorKind]string{
	ErrorConfigurationMissing: "Portal configuration missing.",
	ErrorAuthenticationFailed: "Authentication failed.",
	ErrorDataLoadFailed:       "Failed to load projects.",
}

// Message returns the full-screen message shown for the failure kind.
func (k ErrorKind) Message() string {
	return errorMessages[k]
}

// Failure describes why a portal stopped.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFailure returns the failure for kind with its display message.
func NewFailure(kind ErrorKind) *Failure {
	return &Failure{Kind: kind, Message: kind.Message()}
}

// State is a point-in-time copy of one viewer's portal.
type State struct {
	Phase      Phase             `json:"phase"`
	User       *identity.User    `json:"user,omitempty"`
	Projects   []project.Project `json:"projects"`
	SelectedID string            `json:"selected_id,omitempty"`
	Tab        Tab               `json:"tab"`
	Failure    *Failure          `json:"failure,omitempty"`
	Version    uint64            `json:"version"`
}

// Selected returns the selected project if it is still in the visible set.
func (s State) Selected() (project.Project, bool) {
	if s.SelectedID == "" {
		return project.Project{}, false
	}
	return project.Find(s.Projects, s.SelectedID)
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Failure != nil {
		f := *s.Failure
		out.Failure = &f
	}
	out.Projects = make([]project.Project, len(s.Projects))
	for i, p := range s.Projects {
		out.Projects[i] = p.Clone()
	}
	return out
}

// Credential selects how Start signs the viewer in. A session token is tried
// first, then a custom token. With neither the viewer signs in anonymously.
type Credential struct {
	SessionToken string
	CustomToken  string
}
