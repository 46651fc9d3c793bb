package project_test

import (
	"encoding/json"
	"testing"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestEncodeDocument_WritesVersionedMetrics(t *testing.T) {
	data, err := project.EncodeDocument(project.DemoProject())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, string(raw["metrics"]), `"version":1`)
	require.Contains(t, string(raw["lastFlight"]), "2025-10-24")

	decoded, err := project.DecodeDocument(docstore.Document{ID: project.DemoProjectID, Data: data})
	require.NoError(t, err)
	require.Equal(t, project.DemoProject().Metrics, decoded.Metrics)
	require.True(t, decoded.LastFlight.Equal(project.DemoProject().LastFlight))
}

func TestDecodeDocument_MissingMetrics(t *testing.T) {
	p, err := project.DecodeDocument(docstore.Document{ID: "p1", Data: json.RawMessage(`{"clientName":"C"}`)})
	require.NoError(t, err)
	require.NotNil(t, p.Metrics)
	require.Empty(t, p.Metrics)
	require.True(t, p.LastFlight.IsZero())
}

func TestDecodeDocument_Malformed(t *testing.T) {
	_, err := project.DecodeDocument(docstore.Document{ID: "p1", Data: json.RawMessage(`[1,2]`)})
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	projects := []project.Project{{ID: "a"}, {ID: "b"}}
	p, ok := project.Find(projects, "b")
	require.True(t, ok)
	require.Equal(t, "b", p.ID)

	_, ok = project.Find(projects, "c")
	require.False(t, ok)
}
