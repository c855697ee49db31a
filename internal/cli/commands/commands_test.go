package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/cli/config"
	"github.com/conduit-lang/sparqld/internal/web/middleware"
)

const endpointsTTL = `@prefix cfg: <http://conduit-lang.dev/sparqld/config#> .
@prefix ex: <http://example.org/> .

<sparqld:/query> a cfg:HttpHandler ;
    cfg:type "QueryEndpoint" ;
    cfg:queryProcessor ex:queries .
<sparqld:/update> a cfg:HttpHandler ;
    cfg:type "UpdateEndpoint" ;
    cfg:updateProcessor ex:updates .
ex:queries cfg:type "QueryProcessor" ; cfg:usingStore ex:store ; cfg:timeout 10000 .
ex:updates cfg:type "UpdateProcessor" ; cfg:usingStore ex:store .
ex:store cfg:type "MemoryStore" .
ex:typo cfg:type "MemStore" .
`

// writeFiles writes an endpoint graph and a sparqld.yaml pointing at it and
// returns the yaml path.
func writeFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ttl := filepath.Join(dir, "configuration.ttl")
	require.NoError(t, os.WriteFile(ttl, []byte(endpointsTTL), 0644))

	yaml := filepath.Join(dir, "sparqld.yaml")
	content := "server:\n  address: 127.0.0.1:0\nendpoints:\n  configuration: " + ttl + "\n"
	require.NoError(t, os.WriteFile(yaml, []byte(content), 0644))
	return yaml
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(writeFiles(t))
	require.NoError(t, err)
	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close(context.Background()) })
	return app
}

func TestAppServesProtocol(t *testing.T) {
	app := newTestApp(t)
	require.Len(t, app.Endpoints, 2)

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + HealthPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	form := url.Values{"update": {`INSERT DATA { <http://example.org/book> <http://purl.org/dc/terms/title> "SPARQL" . }`}}
	resp, err = http.PostForm(ts.URL+"/update", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/query",
		strings.NewReader(`SELECT ?title WHERE { ?book <http://purl.org/dc/terms/title> ?title }`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "text/csv")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, string(body), "SPARQL")

	resp, err = http.Get(ts.URL + "/update")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "sparqld_endpoints_mounted 2")
	assert.Contains(t, string(body), `sparqld_sparql_operations_total{operation="update",outcome="success"} 1`)
}

func TestAppWithoutMetrics(t *testing.T) {
	cfg, err := config.Load(writeFiles(t))
	require.NoError(t, err)
	cfg.Metrics.Enabled = false

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close(context.Background())

	assert.Nil(t, app.Metrics)
	assert.False(t, app.Router.HasRoute(http.MethodGet, "/metrics"))
	assert.True(t, app.Router.HasRoute(http.MethodPost, "/update"))
}

func TestAppMissingConfigurationGraph(t *testing.T) {
	chdirTemp(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, app.Endpoints)
	assert.True(t, app.Router.HasRoute(http.MethodGet, HealthPath))
}

func TestUnknownKinds(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, [][2]string{{"<http://example.org/typo>", "MemStore"}}, app.UnknownKinds())
}

func TestServeStopsOnCancel(t *testing.T) {
	app := newTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, app) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestRoutesCommand(t *testing.T) {
	path := writeFiles(t)

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"routes", "--config", path, "--no-color"})
	require.NoError(t, root.Execute())

	output := out.String()
	for _, want := range []string{
		"METHOD", "GET     /healthz", "/metrics", "sparql query", "sparql update",
		`<http://example.org/typo> has type "MemStore"`, "Did you mean: MemoryStore",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("routes output missing %q:\n%s", want, output)
		}
	}
}

func TestRoutesCommandEndpointsOverride(t *testing.T) {
	path := writeFiles(t)

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"routes", "--config", path, "--endpoints", filepath.Join(t.TempDir(), "none.ttl"), "--no-color"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "/healthz")
	assert.NotContains(t, out.String(), "sparql query")
}

func TestRoutesCommandConfigError(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"routes", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--no-color"})

	assert.Error(t, root.Execute())
	assert.Contains(t, out.String(), "CONFIGURATION ERROR")
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "sparqld" {
		t.Errorf("expected Use to be 'sparqld', got %s", cmd.Use)
	}

	for _, expected := range []string{"version", "serve", "routes"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--no-color"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "sparqld version: 1.0.0-test")
	assert.Contains(t, out.String(), "Git commit: abc123")
}

func chdirTemp(t *testing.T) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(oldWd) })
}
