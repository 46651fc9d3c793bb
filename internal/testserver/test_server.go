// Package testserver runs the full HTTP stack over an in-memory SQLite
// database for end-to-end tests.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/aerial/internal/docstore"
	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/portal"
	"github.com/rpggio/aerial/internal/domain/project"
	"github.com/rpggio/aerial/internal/mcp"
	"github.com/rpggio/aerial/internal/sqlite"
	"github.com/rpggio/aerial/internal/transport"
)

const (
	AppID     = "drone-business-default-id"
	ProjectID = "aerial-test"
	Issuer    = "aerial-test-issuer"
	APIKey    = "aerial-test-signing-key"
)

// Options adjusts the stack under test.
type Options struct {
	SeedDisabled bool
	// Now overrides the token and portal registry clock.
	Now func() time.Time
	// IdleTTL and MaxPortals bound the portal registry.
	IdleTTL    time.Duration
	MaxPortals int
}

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Store    *docstore.Store
	Identity *identity.Service
	Projects *project.Service
	Activity *activity.Service
	Registry *portal.Registry
}

func New(t *testing.T) *TestServer {
	return NewWithOptions(t, Options{})
}

func NewWithOptions(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	store := docstore.New(sqlite.NewDocumentRepository(db), nil)
	projectSvc := project.NewService(store, activitySvc, nil)
	identitySvc := identity.NewService(
		sqlite.NewUserRepository(db),
		sqlite.NewSessionRepository(db),
		identity.TokenConfig{Issuer: Issuer, Key: []byte(APIKey), Now: opts.Now},
		activitySvc,
		nil,
	)

	portalCfg := portal.Config{AppID: AppID, SeedEnabled: !opts.SeedDisabled}
	registry := portal.NewRegistry(func() *portal.Portal {
		return portal.New(portalCfg, identity.NewClient(identitySvc, nil), projectSvc, nil)
	}, portal.RegistryConfig{IdleTTL: opts.IdleTTL, MaxPortals: opts.MaxPortals, Now: opts.Now}, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:    mcp.Services{Projects: projectSvc, Activity: activitySvc},
		AppID:       AppID,
		Resolver:    identitySvc,
		AuthEnabled: true,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Registry:      registry,
		Resolver:      identitySvc,
		SignIn:        identitySvc,
		Projects:      projectSvc,
		Activity:      activitySvc,
		AppID:         AppID,
		ProjectID:     ProjectID,
		MCP:           mcpHandler,
		SettleTimeout: 2 * time.Second,
		KeepAlive:     50 * time.Millisecond,
	}))

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Store:    store,
		Identity: identitySvc,
		Projects: projectSvc,
		Activity: activitySvc,
		Registry: registry,
	}

	t.Cleanup(func() {
		registry.CloseAll()
		server.Close()
		store.Close()
		_ = db.Close()
	})

	return ts
}

// URL joins path onto the server's base URL.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// Browser returns a client that keeps cookies and does not follow redirects.
func (ts *TestServer) Browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// SessionToken signs in through the JSON API and returns the bearer token.
func (ts *TestServer) SessionToken(t *testing.T, customToken string) string {
	t.Helper()
	body := "{}"
	if customToken != "" {
		body = fmt.Sprintf(`{"token":%q}`, customToken)
	}
	resp, err := http.Post(ts.URL("/api/session"), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		SessionToken string `json:"session_token"`
	}
	require.NoError(t, DecodeJSON(resp, &out))
	require.NotEmpty(t, out.SessionToken)
	return out.SessionToken
}

// DecodeJSON decodes a response body into v.
func DecodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
