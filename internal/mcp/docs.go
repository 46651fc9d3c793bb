package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `aerial exposes one client's drone survey projects.

Every call is scoped to the signed-in viewer. Over HTTP pass the portal session token as
"Authorization: Bearer <token>" (POST /api/session returns one).

Tools:
- list_projects: every visible project with its status and latest progress.
- get_project_metrics(project_id): the weekly series plus derived figures.
- summarize_metrics(weeks): the summary text for an arbitrary series; no storage involved.
- recent_activity(limit): the viewer's sign-in and project history, newest first.

Docs:
- aerial://docs/metrics (field meanings and derived figures)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "aerial://docs/metrics",
		Name:        "docs_metrics",
		Title:       "Weekly survey metrics",
		Description: "What each weekly metric field means and how the dashboard figures are derived.",
		Content: `# Weekly survey metrics

Each project carries an ordered list of weekly observations, oldest first.

| field | unit | meaning |
|---|---|---|
| ` + "`label`" + ` | | week label, e.g. "Week 4" |
| ` + "`cumulative_volume`" + ` | m³ | total earth moved so far |
| ` + "`progress_percent`" + ` | % | overall site completion |
| ` + "`cut_volume`" + ` | m³ | earth removed that week |
| ` + "`fill_volume`" + ` | m³ | earth placed that week |

## Derived figures

- **Latest**: the last entry.
- **Progress delta**: latest progress minus the previous entry's progress. 0 with fewer than two weeks.
- **Net cut/fill**: latest cut minus latest fill.
- **Summary**: a short report built from the week count, the progress delta and the cumulative
  volume. A single week yields a fixed "awaiting second flight" message. Bold spans are wrapped
  in ` + "`**`" + `.

Volumes and progress are expected to be non-decreasing. Entries that break this are reported as
anomalies but are still shown.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
