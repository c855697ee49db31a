package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/parser"
	"github.com/conduit-lang/sparqld/internal/store"
)

func runUpdate(t *testing.T, s store.Store, update string) error {
	t.Helper()
	cs, err := parser.ParseUpdate(prologue + update)
	require.NoError(t, err)
	p := NewUpdateProcessor(s, Options{})
	if err := p.ProcessCommandSet(context.Background(), cs); err != nil {
		return err
	}
	return p.Flush(context.Background())
}

func count(t *testing.T, s store.Store, graph rdf.Term, subj, pred, obj rdf.Term) int {
	t.Helper()
	triples, err := s.Match(context.Background(), graph, subj, pred, obj)
	require.NoError(t, err)
	return len(triples)
}

func TestInsertAndDeleteData(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, runUpdate(t, s, `INSERT DATA { ex:frank foaf:name "Frank" . GRAPH ex:g3 { ex:frank foaf:age 40 } }`))
	assert.Equal(t, 1, count(t, s, nil, iri("frank"), nil, nil))
	assert.Equal(t, 1, count(t, s, iri("g3"), iri("frank"), foafAge, age("40")))

	require.NoError(t, runUpdate(t, s, `DELETE DATA { ex:frank foaf:name "Frank" }`))
	assert.Equal(t, 0, count(t, s, nil, iri("frank"), nil, nil))
}

func TestInsertDataBlankNodesAreFresh(t *testing.T) {
	s := store.NewMemoryStore()

	require.NoError(t, runUpdate(t, s, `INSERT DATA { _:b foaf:name "One" }`))
	require.NoError(t, runUpdate(t, s, `INSERT DATA { _:b foaf:name "Two" }`))

	triples, err := s.Match(context.Background(), nil, nil, foafName, nil)
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.NotEqual(t, triples[0].S, triples[1].S)
}

func TestDeleteInsertWhere(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, runUpdate(t, s,
		`DELETE { ?p foaf:age ?a } INSERT { ?p ex:wasAge ?a } WHERE { ?p foaf:age ?a FILTER(?a < 18) }`))

	assert.Equal(t, 0, count(t, s, nil, iri("bob"), foafAge, nil))
	assert.Equal(t, 1, count(t, s, nil, iri("bob"), iri("wasAge"), age("17")))
	assert.Equal(t, 1, count(t, s, nil, iri("alice"), foafAge, nil))
}

func TestWithAndUsing(t *testing.T) {
	s := newTestStore(t)

	// WITH scopes both the pattern and the templates
	require.NoError(t, runUpdate(t, s, `WITH ex:g1 INSERT { ?p ex:tagged true } WHERE { ?p foaf:name ?n }`))
	assert.Equal(t, 1, count(t, s, iri("g1"), iri("dave"), iri("tagged"), nil))
	assert.Equal(t, 0, count(t, s, nil, nil, iri("tagged"), nil))

	// USING replaces the dataset; templates without GRAPH go to the default graph
	require.NoError(t, runUpdate(t, s, `INSERT { ?p ex:seen true } USING ex:g2 WHERE { ?p foaf:name ?n }`))
	assert.Equal(t, 1, count(t, s, nil, iri("erin"), iri("seen"), nil))
	assert.Equal(t, 0, count(t, s, nil, iri("alice"), iri("seen"), nil))
}

func TestDeleteWhere(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, runUpdate(t, s, `DELETE WHERE { ?p foaf:knows ?f . ?f foaf:name ?n }`))

	assert.Equal(t, 0, count(t, s, nil, nil, foafKnows, nil))
	assert.Equal(t, 0, count(t, s, nil, iri("bob"), foafName, nil))
	assert.Equal(t, 1, count(t, s, nil, iri("alice"), foafName, nil))
}

func TestGraphManagement(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, runUpdate(t, s, `CLEAR GRAPH ex:g1`))
	assert.Equal(t, 0, count(t, s, iri("g1"), nil, nil, nil))

	assert.Error(t, runUpdate(t, s, `DROP GRAPH ex:missing`))
	assert.NoError(t, runUpdate(t, s, `DROP SILENT GRAPH ex:missing`))

	assert.Error(t, runUpdate(t, s, `CREATE GRAPH ex:g2`))
	assert.NoError(t, runUpdate(t, s, `CREATE SILENT GRAPH ex:g2`))
	assert.NoError(t, runUpdate(t, s, `CREATE GRAPH ex:new`))

	require.NoError(t, runUpdate(t, s, `CLEAR NAMED`))
	assert.Equal(t, 0, count(t, s, iri("g2"), nil, nil, nil))
	assert.Equal(t, 6, count(t, s, nil, nil, nil, nil))

	require.NoError(t, runUpdate(t, s, `CLEAR DEFAULT`))
	assert.Equal(t, 0, count(t, s, nil, nil, nil, nil))
}

func TestDropAll(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, runUpdate(t, s, `DROP ALL`))

	graphs, err := s.Graphs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, graphs)
	assert.Equal(t, 0, count(t, s, nil, nil, nil, nil))
}

func TestCommandsApplyInOrder(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, runUpdate(t, s, `INSERT DATA { ex:a ex:p 1 } ;
DELETE { ?s ex:p ?o } INSERT { ?s ex:p 2 } WHERE { ?s ex:p ?o }`))

	triples, err := s.Match(context.Background(), nil, iri("a"), iri("p"), nil)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, age("2"), triples[0].O)
}

func TestCompletedUpdateIsNotTimedOut(t *testing.T) {
	s := lateStore{store.NewMemoryStore()}
	cs, err := parser.ParseUpdate(prologue + `INSERT DATA { ex:alice foaf:name "Alice" . }`)
	require.NoError(t, err)

	p := NewUpdateProcessor(s, Options{Timeout: 10 * time.Millisecond})
	require.NoError(t, p.ProcessCommandSet(context.Background(), cs))
	assert.Equal(t, 1, count(t, s, nil, iri("alice"), foafName, nil))
}
