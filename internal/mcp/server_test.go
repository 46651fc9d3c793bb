package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/project"
)

const testAppID = "test-app"

type fakeActivity struct {
	entries []activity.Entry
	got     activity.ListOptions
}

func (f *fakeActivity) Recent(_ context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	f.got = opts
	return f.entries, nil
}

type fakeResolver struct {
	tokens map[string]*identity.SignIn
}

func (f fakeResolver) Resolve(_ context.Context, token string) (*identity.SignIn, error) {
	in, ok := f.tokens[token]
	if !ok {
		return nil, identity.ErrSessionNotFound
	}
	return in, nil
}

func newProjects(t *testing.T, uid string) *project.Service {
	t.Helper()
	store := docstore.New(docstore.NewMemoryRepository(), nil)
	t.Cleanup(store.Close)
	svc := project.NewService(store, nil, nil)
	_, err := svc.Seed(context.Background(), testAppID, uid)
	require.NoError(t, err)
	return svc
}

func connect(t *testing.T, server *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool[T any](t *testing.T, session *sdkmcp.ClientSession, name string, args any) T {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool error: %s", contentText(t, res))

	var out T
	require.NoError(t, json.Unmarshal([]byte(contentText(t, res)), &out))
	return out
}

func contentText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestTools_ListAndMetrics(t *testing.T) {
	server := NewServer(Config{
		Services:   Services{Projects: newProjects(t, "u1"), Activity: &fakeActivity{}},
		AppID:      testAppID,
		DefaultUID: "u1",
	})
	session := connect(t, server)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"list_projects", "get_project_metrics", "summarize_metrics", "recent_activity"}, names)

	list := callTool[ListProjectsResult](t, session, "list_projects", map[string]any{})
	require.Len(t, list.Projects, 1)
	require.Equal(t, project.DemoProjectID, list.Projects[0].ID)
	require.Equal(t, 4, list.Projects[0].Weeks)
	require.Equal(t, "Wk 4", list.Projects[0].LatestLabel)
	require.Equal(t, 48.0, list.Projects[0].ProgressPercent)

	m := callTool[ProjectMetricsResult](t, session, "get_project_metrics", map[string]any{"project_id": project.DemoProjectID})
	require.Len(t, m.Weeks, 4)
	require.Equal(t, 13.0, m.View.ProgressDelta)
	require.Equal(t, 700.0, m.View.NetCutFill)
	require.Equal(t, "+13.0", m.DeltaText)
	require.Empty(t, m.Anomalies)
}

func TestTools_UnknownProject(t *testing.T) {
	server := NewServer(Config{
		Services:   Services{Projects: newProjects(t, "u1"), Activity: &fakeActivity{}},
		AppID:      testAppID,
		DefaultUID: "u1",
	})
	session := connect(t, server)

	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      "get_project_metrics",
		Arguments: map[string]any{"project_id": "missing"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, contentText(t, res), "PROJECT_NOT_FOUND")
}

func TestTools_OtherUsersProjectsInvisible(t *testing.T) {
	server := NewServer(Config{
		Services:   Services{Projects: newProjects(t, "u1"), Activity: &fakeActivity{}},
		AppID:      testAppID,
		DefaultUID: "u2",
	})
	session := connect(t, server)

	list := callTool[ListProjectsResult](t, session, "list_projects", map[string]any{})
	require.Empty(t, list.Projects)
}

func TestTools_SummarizeMetrics(t *testing.T) {
	server := NewServer(Config{AppID: testAppID, DefaultUID: "u1"})
	session := connect(t, server)

	out := callTool[SummarizeMetricsResult](t, session, "summarize_metrics", map[string]any{
		"weeks": []metrics.WeeklyMetric{
			{Label: "Wk 1", CumulativeVolume: 100, ProgressPercent: 10, CutVolume: 50, FillVolume: 20},
		},
	})
	require.Equal(t, metrics.InsufficientDataMessage, out.View.Summary)
	require.Equal(t, 1, out.View.Weeks)
	require.Equal(t, 0.0, out.View.ProgressDelta)

	out = callTool[SummarizeMetricsResult](t, session, "summarize_metrics", map[string]any{
		"weeks": []metrics.WeeklyMetric{
			{Label: "Wk 1", CumulativeVolume: 100, ProgressPercent: 20},
			{Label: "Wk 2", CumulativeVolume: 90, ProgressPercent: 15},
		},
	})
	require.Equal(t, "-5.0", out.DeltaText)
	require.Len(t, out.Anomalies, 2)
}

func TestTools_RecentActivity(t *testing.T) {
	acts := &fakeActivity{entries: []activity.Entry{{ID: 1, UID: "u1", Type: activity.TypeSeedWritten, Summary: "seeded"}}}
	server := NewServer(Config{
		Services:   Services{Activity: acts},
		AppID:      testAppID,
		DefaultUID: "u1",
	})
	session := connect(t, server)

	out := callTool[RecentActivityResult](t, session, "recent_activity", map[string]any{"limit": 5})
	require.Len(t, out.Entries, 1)
	require.Equal(t, string(activity.TypeSeedWritten), out.Entries[0].Type)
	require.Equal(t, activity.ListOptions{UID: "u1", Limit: 5}, acts.got)
}

func TestDocResources(t *testing.T) {
	session := connect(t, NewServer(Config{AppID: testAppID, DefaultUID: "u1"}))

	res, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "aerial://docs/metrics"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "Net cut/fill")
}

func TestAuthMiddleware(t *testing.T) {
	resolver := fakeResolver{tokens: map[string]*identity.SignIn{
		"good": {User: identity.User{UID: "u1"}, Session: identity.Session{ID: "s1"}},
	}}

	var seenUID, seenSession string
	handler := authMiddleware(resolver)(func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		seenUID = getUID(ctx)
		seenSession = getSessionID(ctx)
		return &sdkmcp.CallToolResult{}, nil
	})

	request := func(auth string) *sdkmcp.CallToolRequest {
		header := http.Header{}
		if auth != "" {
			header.Set("Authorization", auth)
		}
		return &sdkmcp.CallToolRequest{Extra: &sdkmcp.RequestExtra{Header: header}}
	}
	ctx := context.Background()

	_, err := handler(ctx, "tools/call", request("Bearer good"))
	require.NoError(t, err)
	require.Equal(t, "u1", seenUID)
	require.Equal(t, "s1", seenSession)

	_, err = handler(ctx, "tools/call", request(""))
	require.ErrorContains(t, err, "missing bearer token")

	_, err = handler(ctx, "tools/call", request("Bearer stale"))
	require.True(t, errors.Is(err, identity.ErrSessionNotFound))

	_, err = handler(ctx, "tools/call", &sdkmcp.CallToolRequest{})
	require.ErrorContains(t, err, "missing headers")

	seenUID = ""
	_, err = handler(ctx, "ping", &sdkmcp.CallToolRequest{})
	require.NoError(t, err)
	require.Empty(t, seenUID)
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))
	require.Equal(t, "PROJECT_NOT_FOUND", MapError(project.ErrProjectNotFound).Code)
	require.Equal(t, "SESSION_NOT_FOUND", MapError(identity.ErrSessionNotFound).Code)
	require.Equal(t, "INVALID_INPUT", MapError(activity.ErrInvalidInput).Code)
	require.Equal(t, "MALFORMED_METRICS", MapError(metrics.ErrMalformed).Code)
}
