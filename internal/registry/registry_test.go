package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/sparqld/internal/endpoint"
	"github.com/conduit-lang/sparqld/internal/engine"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/store"
	"github.com/conduit-lang/sparqld/internal/store/redisstore"
	"github.com/conduit-lang/sparqld/internal/store/sqlstore"
	"github.com/conduit-lang/sparqld/internal/web/router"
)

const prefixes = `@prefix cfg: <http://conduit-lang.dev/sparqld/config#> .
@prefix ex: <http://example.org/> .
`

func parse(t *testing.T, doc string) *rdf.Graph {
	t.Helper()
	g, err := rdf.ReadTurtle(strings.NewReader(prefixes+doc), "file:///config/")
	require.NoError(t, err)
	return g
}

func writeConfig(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "configuration.ttl")
	require.NoError(t, os.WriteFile(path, []byte(prefixes+doc), 0644))
	return path
}

func selectObjects(t *testing.T, h http.Handler) string {
	t.Helper()
	params := url.Values{"query": {"SELECT ?o WHERE { <http://example.org/s> <http://example.org/p> ?o }"}}
	req := httptest.NewRequest(http.MethodGet, "/query?"+params.Encode(), nil)
	req.Header.Set("Accept", "application/sparql-results+json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Body.String()
}

func TestRegisterAllSharesStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.nt"),
		[]byte("<http://example.org/s> <http://example.org/p> <http://example.org/o1> .\n"), 0644))

	path := writeConfig(t, dir, `
<sparqld:/query> a cfg:HttpHandler ;
    cfg:type "QueryEndpoint" ;
    cfg:queryProcessor _:qp .
<sparqld:/update> a cfg:HttpHandler ;
    cfg:type "UpdateEndpoint" ;
    cfg:updateProcessor _:up .
_:qp cfg:type "QueryProcessor" ; cfg:usingStore _:store ; cfg:timeout 5000 .
_:up cfg:type "UpdateProcessor" ; cfg:usingStore _:store .
_:store cfg:type "MemoryStore" ; cfg:fromFile <data.nt> .
`)
	g, err := LoadConfiguration(path)
	require.NoError(t, err)

	r := New(zap.NewNop())
	mux := chi.NewRouter()
	descriptors := r.RegisterAll(g, mux)
	require.Len(t, descriptors, 2)
	t.Cleanup(func() { r.Close(context.Background()) })

	paths := map[endpoint.Kind]string{}
	for _, d := range descriptors {
		paths[d.Kind] = d.Path
	}
	assert.Equal(t, "/query", paths[endpoint.KindQuery])
	assert.Equal(t, "/update", paths[endpoint.KindUpdate])

	assert.Contains(t, selectObjects(t, mux), "http://example.org/o1")

	req := httptest.NewRequest(http.MethodPost, "/update",
		strings.NewReader("INSERT DATA { <http://example.org/s> <http://example.org/p> <http://example.org/o2> . }"))
	req.Header.Set("Content-Type", "application/sparql-update")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := selectObjects(t, mux)
	assert.Contains(t, body, "http://example.org/o1")
	assert.Contains(t, body, "http://example.org/o2")
}

func TestRegisterAllSkipsBadResources(t *testing.T) {
	g := parse(t, `
<sparqld:/query> a cfg:HttpHandler ; cfg:type "QueryEndpoint" ; cfg:queryProcessor _:qp .
ex:duplicate a cfg:HttpHandler ; cfg:type "QueryEndpoint" ; cfg:path "/query" ; cfg:queryProcessor _:qp .
ex:collision a cfg:HttpHandler ; cfg:type "UpdateEndpoint" ; cfg:path "/query" ; cfg:updateProcessor _:up .
ex:unknown a cfg:HttpHandler ; cfg:type "GraphStoreEndpoint" ; cfg:path "/gsp" .
ex:untyped a cfg:HttpHandler ; cfg:path "/untyped" .
ex:noprocessor a cfg:HttpHandler ; cfg:type "QueryEndpoint" ; cfg:path "/empty" .
ex:nopath a cfg:HttpHandler ; cfg:type "QueryEndpoint" ; cfg:queryProcessor _:qp .
ex:wrongprocessor a cfg:HttpHandler ; cfg:type "UpdateEndpoint" ; cfg:path "/update" ; cfg:updateProcessor _:qp .
ex:store a cfg:HttpHandler ; cfg:type "MemoryStore" .
_:qp cfg:type "QueryProcessor" ; cfg:usingStore _:store .
_:up cfg:type "UpdateProcessor" ; cfg:usingStore _:store .
_:store cfg:type "MemoryStore" .
`)

	core, logs := observer.New(zapcore.InfoLevel)
	r := New(zap.New(core))
	mux := chi.NewRouter()
	descriptors := r.RegisterAll(g, mux)
	t.Cleanup(func() { r.Close(context.Background()) })

	require.Len(t, descriptors, 1)
	assert.Equal(t, "/query", descriptors[0].Path)
	assert.Equal(t, 8, logs.FilterMessage("skipping endpoint").Len())
	assert.Equal(t, 1, logs.FilterMessage("endpoint mounted").Len())
}

func TestRegisterAllEmptyGraph(t *testing.T) {
	r := New(nil)
	assert.Empty(t, r.RegisterAll(rdf.NewGraph(), chi.NewRouter()))
	assert.Empty(t, r.RegisterAll(nil, chi.NewRouter()))
	assert.Empty(t, r.RegisterAllContext(context.Background(), nil, router.NewRouter()))
	assert.NoError(t, r.Close(context.Background()))
}

func TestCustomKindIsMemoised(t *testing.T) {
	g := parse(t, `
<sparqld:/sparql> a cfg:HttpHandler ; cfg:type "QueryEndpoint" ; cfg:queryProcessor _:qp .
<sparqld:/sparql/update> a cfg:HttpHandler ; cfg:type "UpdateEndpoint" ; cfg:updateProcessor _:up .
_:qp cfg:type "QueryProcessor" ; cfg:usingStore _:store .
_:up cfg:type "UpdateProcessor" ; cfg:usingStore _:store .
_:store cfg:type cfg:CountingStore .
`)

	r := New(zap.NewNop())
	builds := 0
	require.NoError(t, r.Register("CountingStore", func(p *Pass, node rdf.Term) (any, error) {
		builds++
		return store.NewMemoryStore(), nil
	}))
	assert.Len(t, r.Kinds(), 8)
	assert.True(t, r.HasKind("CountingStore"))

	descriptors := r.RegisterAll(g, chi.NewRouter())
	assert.Len(t, descriptors, 2)
	assert.Equal(t, 1, builds)
}

func TestRegisterValidation(t *testing.T) {
	r := New(nil)
	assert.Error(t, r.Register("", buildMemoryStore))
	assert.Error(t, r.Register("Nil", nil))
	assert.Equal(t, []string{
		"MemoryStore", "QueryEndpoint", "QueryProcessor", "RedisStore",
		"SQLStore", "UpdateEndpoint", "UpdateProcessor",
	}, r.Kinds())
}

func TestKindOf(t *testing.T) {
	g := parse(t, `ex:a cfg:type "MemoryStore" . ex:b cfg:type cfg:SQLStore . ex:c cfg:path "/x" .`)

	kind, ok := KindOf(g, rdf.IRI{Value: "http://example.org/a"})
	assert.True(t, ok)
	assert.Equal(t, "MemoryStore", kind)

	kind, ok = KindOf(g, rdf.IRI{Value: "http://example.org/b"})
	assert.True(t, ok)
	assert.Equal(t, "SQLStore", kind)

	_, ok = KindOf(g, rdf.IRI{Value: "http://example.org/c"})
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("processor", func(t *testing.T) {
		g := parse(t, `ex:qp cfg:type "QueryProcessor" ; cfg:usingStore [ cfg:type "MemoryStore" ] .`)
		obj, err := New(nil).Resolve(ctx, g, rdf.IRI{Value: "http://example.org/qp"})
		require.NoError(t, err)
		assert.IsType(t, &engine.QueryProcessor{}, obj)
	})

	t.Run("unknown kind", func(t *testing.T) {
		g := parse(t, `ex:thing cfg:type "Nope" .`)
		_, err := New(nil).Resolve(ctx, g, rdf.IRI{Value: "http://example.org/thing"})
		assert.True(t, errors.Is(err, ErrUnknownKind))
	})

	t.Run("circular", func(t *testing.T) {
		g := parse(t, `ex:qp cfg:type "QueryProcessor" ; cfg:usingStore ex:qp .`)
		_, err := New(nil).Resolve(ctx, g, rdf.IRI{Value: "http://example.org/qp"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular reference")
	})

	t.Run("invalid timeout", func(t *testing.T) {
		g := parse(t, `ex:qp cfg:type "QueryProcessor" ; cfg:timeout "soon" ; cfg:usingStore [ cfg:type "MemoryStore" ] .`)
		_, err := New(nil).Resolve(ctx, g, rdf.IRI{Value: "http://example.org/qp"})
		assert.Error(t, err)
	})

	t.Run("missing data file", func(t *testing.T) {
		g := parse(t, `ex:store cfg:type "MemoryStore" ; cfg:fromFile "/does/not/exist.ttl" .`)
		_, err := New(nil).Resolve(ctx, g, rdf.IRI{Value: "http://example.org/store"})
		assert.Error(t, err)
	})
}

func TestMemoryStoreGraphFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "people.ttl")
	require.NoError(t, os.WriteFile(file, []byte(`<http://example.org/a> <http://example.org/b> "c" .`), 0644))

	g := parse(t, `ex:store cfg:type "MemoryStore" ;
    cfg:fromGraphFile [ cfg:graph <http://example.org/people> ; cfg:file "`+file+`" ] .`)
	obj, err := New(nil).Resolve(context.Background(), g, rdf.IRI{Value: "http://example.org/store"})
	require.NoError(t, err)

	s := obj.(*store.MemoryStore)
	graphs, err := s.Graphs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{rdf.IRI{Value: "http://example.org/people"}}, graphs)

	bad := parse(t, `ex:store cfg:type "MemoryStore" ; cfg:fromGraphFile [ cfg:file "`+file+`" ] .`)
	_, err = New(nil).Resolve(context.Background(), bad, rdf.IRI{Value: "http://example.org/store"})
	assert.Error(t, err)
}

func TestSQLStore(t *testing.T) {
	g := parse(t, `ex:store cfg:type "SQLStore" ; cfg:driver "sqlite3" ; cfg:dsn ":memory:" ; cfg:table "config_quads" .`)
	r := New(nil)
	obj, err := r.Resolve(context.Background(), g, rdf.IRI{Value: "http://example.org/store"})
	require.NoError(t, err)
	assert.IsType(t, &sqlstore.Store{}, obj)
	assert.NoError(t, r.Close(context.Background()))

	missing := parse(t, `ex:store cfg:type "SQLStore" ; cfg:driver "sqlite3" .`)
	_, err = r.Resolve(context.Background(), missing, rdf.IRI{Value: "http://example.org/store"})
	assert.Error(t, err)

	injected := parse(t, `ex:store cfg:type "SQLStore" ; cfg:driver "sqlite3" ; cfg:dsn ":memory:" ; cfg:table "quads; DROP TABLE quads" .`)
	_, err = r.Resolve(context.Background(), injected, rdf.IRI{Value: "http://example.org/store"})
	assert.ErrorContains(t, err, "invalid table name")
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	g := parse(t, `ex:store cfg:type "RedisStore" ; cfg:address "`+mr.Addr()+`" ; cfg:database 0 ; cfg:prefix "test:" .`)

	r := New(nil)
	obj, err := r.Resolve(context.Background(), g, rdf.IRI{Value: "http://example.org/store"})
	require.NoError(t, err)
	s, ok := obj.(*redisstore.Store)
	require.True(t, ok)

	quad := rdf.Quad{S: rdf.IRI{Value: "http://example.org/s"}, P: rdf.IRI{Value: "http://example.org/p"}, O: rdf.NewLiteral("o")}
	require.NoError(t, s.Add(context.Background(), quad))
	assert.NotEmpty(t, mr.Keys())
	assert.NoError(t, r.Close(context.Background()))
}

func TestCloseClosesStores(t *testing.T) {
	g := parse(t, `ex:store cfg:type "MemoryStore" .`)
	r := New(nil)
	obj, err := r.Resolve(context.Background(), g, rdf.IRI{Value: "http://example.org/store"})
	require.NoError(t, err)

	require.NoError(t, r.Close(context.Background()))
	err = obj.(*store.MemoryStore).Add(context.Background(), rdf.Quad{
		S: rdf.IRI{Value: "http://example.org/s"}, P: rdf.IRI{Value: "http://example.org/p"}, O: rdf.NewLiteral("o"),
	})
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestLoadConfiguration(t *testing.T) {
	dir := t.TempDir()

	g, err := LoadConfiguration(filepath.Join(dir, "missing.ttl"))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())

	path := writeConfig(t, dir, `<sparqld:/query> a cfg:HttpHandler .`)
	g, err = LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	broken := filepath.Join(dir, "broken.ttl")
	require.NoError(t, os.WriteFile(broken, []byte("<a> <b> ."), 0644))
	_, err = LoadConfiguration(broken)
	assert.Error(t, err)
}

func TestSampleConfiguration(t *testing.T) {
	g, err := LoadConfiguration(filepath.Join("..", "..", "configuration.ttl"))
	require.NoError(t, err)

	r := New(nil)
	mux := chi.NewRouter()
	descriptors := r.RegisterAll(g, mux)
	t.Cleanup(func() { r.Close(context.Background()) })
	require.Len(t, descriptors, 2)

	params := url.Values{"query": {"ASK { GRAPH <http://example.org/graphs/people> { ?s <http://xmlns.com/foaf/0.1/knows> ?o } }"}}
	req := httptest.NewRequest(http.MethodGet, "/query?"+params.Encode(), nil)
	req.Header.Set("Accept", "application/sparql-results+json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"boolean":true`)
}
