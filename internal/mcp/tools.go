package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/project"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var errNoViewer = errors.New("unauthorized: no viewer in context")

func registerTools(server *sdkmcp.Server, services Services, appID string) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the viewer's survey projects with status and latest progress.",
	}, listProjectsHandler(services.Projects, appID))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project_metrics",
		Description: "Get one project's weekly metric series and its derived dashboard figures.",
	}, getProjectMetricsHandler(services.Projects, appID))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "summarize_metrics",
		Description: "Produce the site summary and derived figures for an arbitrary weekly series.",
	}, summarizeMetricsHandler())

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List the viewer's recent sign-in and project activity, newest first.",
	}, recentActivityHandler(services.Activity))
}

// ListProjectsInput takes no arguments.
type ListProjectsInput struct{}

// ProjectSummary is the browse shape of a project.
type ProjectSummary struct {
	ID              string  `json:"id"`
	ClientName      string  `json:"client_name"`
	ProjectName     string  `json:"project_name"`
	Status          string  `json:"status"`
	Weeks           int     `json:"weeks"`
	LatestLabel     string  `json:"latest_label,omitempty"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ListProjectsResult is the list_projects output.
type ListProjectsResult struct {
	Projects []ProjectSummary `json:"projects"`
}

func listProjectsHandler(projects ProjectService, appID string) sdkmcp.ToolHandlerFor[ListProjectsInput, ListProjectsResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsInput) (*sdkmcp.CallToolResult, ListProjectsResult, error) {
		uid := getUID(ctx)
		if uid == "" {
			return nil, ListProjectsResult{}, errNoViewer
		}
		list, err := projects.List(ctx, appID, uid)
		if err != nil {
			return nil, ListProjectsResult{}, toolError(err)
		}
		out := ListProjectsResult{Projects: make([]ProjectSummary, 0, len(list))}
		for _, p := range list {
			latest := p.Metrics.Latest()
			out.Projects = append(out.Projects, ProjectSummary{
				ID:              p.ID,
				ClientName:      p.ClientName,
				ProjectName:     p.ProjectName,
				Status:          string(p.Status),
				Weeks:           len(p.Metrics),
				LatestLabel:     latest.Label,
				ProgressPercent: latest.ProgressPercent,
			})
		}
		return nil, out, nil
	}
}

// GetProjectMetricsInput selects one project.
type GetProjectMetricsInput struct {
	ProjectID string `json:"project_id" jsonschema:"id of the project, from list_projects"`
}

// ProjectMetricsResult is the get_project_metrics output.
type ProjectMetricsResult struct {
	ProjectID string            `json:"project_id"`
	Weeks     metrics.Series    `json:"weeks"`
	View      metrics.View      `json:"view"`
	DeltaText string            `json:"delta_text"`
	Anomalies []metrics.Anomaly `json:"anomalies,omitempty"`
}

func getProjectMetricsHandler(projects ProjectService, appID string) sdkmcp.ToolHandlerFor[GetProjectMetricsInput, ProjectMetricsResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input GetProjectMetricsInput) (*sdkmcp.CallToolResult, ProjectMetricsResult, error) {
		uid := getUID(ctx)
		if uid == "" {
			return nil, ProjectMetricsResult{}, errNoViewer
		}
		if input.ProjectID == "" {
			return nil, ProjectMetricsResult{}, toolError(project.ErrInvalidInput)
		}
		p, err := projects.Get(ctx, appID, uid, input.ProjectID)
		if err != nil {
			return nil, ProjectMetricsResult{}, toolError(err)
		}
		view := metrics.NewView(p.Metrics)
		return nil, ProjectMetricsResult{
			ProjectID: p.ID,
			Weeks:     p.Metrics,
			View:      view,
			DeltaText: metrics.FormatDelta(view.ProgressDelta),
			Anomalies: p.Metrics.Anomalies(),
		}, nil
	}
}

// SummarizeMetricsInput is an arbitrary weekly series, oldest first.
type SummarizeMetricsInput struct {
	Weeks []metrics.WeeklyMetric `json:"weeks" jsonschema:"weekly observations, oldest first"`
}

// SummarizeMetricsResult is the summarize_metrics output.
type SummarizeMetricsResult struct {
	View      metrics.View      `json:"view"`
	DeltaText string            `json:"delta_text"`
	Anomalies []metrics.Anomaly `json:"anomalies,omitempty"`
}

func summarizeMetricsHandler() sdkmcp.ToolHandlerFor[SummarizeMetricsInput, SummarizeMetricsResult] {
	return func(_ context.Context, _ *sdkmcp.CallToolRequest, input SummarizeMetricsInput) (*sdkmcp.CallToolResult, SummarizeMetricsResult, error) {
		series := metrics.Series(input.Weeks)
		view := metrics.NewView(series)
		return nil, SummarizeMetricsResult{
			View:      view,
			DeltaText: metrics.FormatDelta(view.ProgressDelta),
			Anomalies: series.Anomalies(),
		}, nil
	}
}

// RecentActivityInput bounds the activity listing.
type RecentActivityInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return, default 50"`
}

// ActivityEntry is one activity log line.
type ActivityEntry struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	SessionID string `json:"session_id,omitempty"`
	CreatedAt string `json:"created_at" jsonschema:"RFC 3339 timestamp"`
}

// RecentActivityResult is the recent_activity output.
type RecentActivityResult struct {
	Entries []ActivityEntry `json:"entries"`
}

func recentActivityHandler(service ActivityService) sdkmcp.ToolHandlerFor[RecentActivityInput, RecentActivityResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input RecentActivityInput) (*sdkmcp.CallToolResult, RecentActivityResult, error) {
		uid := getUID(ctx)
		if uid == "" {
			return nil, RecentActivityResult{}, errNoViewer
		}
		entries, err := service.Recent(ctx, activity.ListOptions{UID: uid, Limit: input.Limit})
		if err != nil {
			return nil, RecentActivityResult{}, toolError(err)
		}
		out := RecentActivityResult{Entries: make([]ActivityEntry, 0, len(entries))}
		for _, e := range entries {
			entry := ActivityEntry{
				ID:        e.ID,
				Type:      string(e.Type),
				Summary:   e.Summary,
				CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			}
			if e.SessionID != nil {
				entry.SessionID = *e.SessionID
			}
			out.Entries = append(out.Entries, entry)
		}
		return nil, out, nil
	}
}
