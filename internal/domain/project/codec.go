package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/metrics"
)

// document is the stored shape of a project.
type document struct {
	ClientName  string            `json:"clientName"`
	ProjectName string            `json:"projectName"`
	Status      Status            `json:"status"`
	LastFlight  *time.Time        `json:"lastFlight,omitempty"`
	Metrics     json.RawMessage   `json:"metrics,omitempty"`
	Summary     string            `json:"aiSummary"`
	Media       []Media           `json:"media"`
	Links       map[string]string `json:"links"`
	Files       []File            `json:"files,omitempty"`
}

// DecodeDocument converts a stored document into a Project.
func DecodeDocument(doc docstore.Document) (Project, error) {
	var raw document
	if err := json.Unmarshal(doc.Data, &raw); err != nil {
		return Project{}, fmt.Errorf("decode project %s: %w", doc.ID, err)
	}
	series, err := metrics.Decode(raw.Metrics)
	if err != nil {
		return Project{}, fmt.Errorf("decode project %s metrics: %w", doc.ID, err)
	}

	p := Project{
		ID:          doc.ID,
		ClientName:  raw.ClientName,
		ProjectName: raw.ProjectName,
		Status:      raw.Status,
		Metrics:     series,
		Summary:     raw.Summary,
		Media:       raw.Media,
		Links:       raw.Links,
		Files:       raw.Files,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if raw.LastFlight != nil {
		p.LastFlight = *raw.LastFlight
	}
	if p.Media == nil {
		p.Media = []Media{}
	}
	if p.Files == nil {
		p.Files = []File{}
	}
	if p.Links == nil {
		p.Links = map[string]string{}
	}
	return p, nil
}

// EncodeDocument converts a Project into its stored shape. Metrics are always
// written in the current versioned encoding.
func EncodeDocument(p Project) (json.RawMessage, error) {
	encoded, err := metrics.Encode(p.Metrics)
	if err != nil {
		return nil, err
	}
	raw := document{
		ClientName:  p.ClientName,
		ProjectName: p.ProjectName,
		Status:      p.Status,
		Metrics:     encoded,
		Summary:     p.Summary,
		Media:       p.Media,
		Links:       p.Links,
		Files:       p.Files,
	}
	if !p.LastFlight.IsZero() {
		t := p.LastFlight.UTC()
		raw.LastFlight = &t
	}
	if raw.Media == nil {
		raw.Media = []Media{}
	}
	if raw.Links == nil {
		raw.Links = map[string]string{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	return data, nil
}

func decodeSnapshot(snap docstore.Snapshot) ([]Project, error) {
	projects := make([]Project, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		p, err := DecodeDocument(doc)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}
