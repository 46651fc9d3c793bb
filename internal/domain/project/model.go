package project

import (
	"time"

	"github.com/rpggio/aerial/internal/domain/metrics"
)

// Status is the lifecycle state shown next to a project.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusOnHold    Status = "On Hold"
)

// MediaKind distinguishes gallery entries.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// Media is one gallery entry.
type Media struct {
	Kind         MediaKind `json:"type"`
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	ThumbnailURL string    `json:"thumbnail"`
}

// File is one downloadable deliverable.
type File struct {
	Name string `json:"name"`
	Kind string `json:"type"`
	Date string `json:"date"`
	URL  string `json:"url,omitempty"`
}

// Link names used by the dashboard.
const (
	LinkThreeD = "threeD"
	LinkCloud  = "cloud"
)

// Project is a client survey project.
type Project struct {
	ID          string            `json:"id"`
	ClientName  string            `json:"clientName"`
	ProjectName string            `json:"projectName"`
	Status      Status            `json:"status"`
	LastFlight  time.Time         `json:"lastFlight,omitzero"`
	Metrics     metrics.Series    `json:"metrics"`
	Summary     string            `json:"aiSummary"`
	Media       []Media           `json:"media"`
	Links       map[string]string `json:"links"`
	Files       []File            `json:"files"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// View returns the derived metric figures for the project.
func (p Project) View() metrics.View {
	return metrics.NewView(p.Metrics)
}

// Clone returns a deep copy.
func (p Project) Clone() Project {
	out := p
	out.Metrics = append(metrics.Series{}, p.Metrics...)
	out.Media = append([]Media(nil), p.Media...)
	out.Files = append([]File(nil), p.Files...)
	if p.Links != nil {
		out.Links = make(map[string]string, len(p.Links))
		for k, v := range p.Links {
			out.Links[k] = v
		}
	}
	return out
}

// Find returns the project with the given id.
func Find(projects []Project, id string) (Project, bool) {
	for _, p := range projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}
