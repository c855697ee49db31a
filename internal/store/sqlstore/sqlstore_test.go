package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

var (
	alice = rdf.IRI{Value: "http://example.org/alice"}
	bob   = rdf.IRI{Value: "http://example.org/bob"}
	knows = rdf.IRI{Value: "http://xmlns.com/foaf/0.1/knows"}
	name  = rdf.IRI{Value: "http://xmlns.com/foaf/0.1/name"}
	g1    = rdf.IRI{Value: "http://example.org/g1"}
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	require.NoError(t, s.Add(ctx,
		rdf.Quad{S: alice, P: knows, O: bob},
		rdf.Quad{S: alice, P: name, O: rdf.NewLangLiteral("Alice", "en")},
		rdf.Quad{S: alice, P: knows, O: bob},
		rdf.Quad{S: bob, P: name, O: rdf.NewLiteral("Bob"), G: g1},
	))

	triples, err := s.Match(ctx, nil, alice, nil, nil)
	require.NoError(t, err)
	assert.Len(t, triples, 2, "duplicates are ignored")

	triples, err = s.Match(ctx, nil, nil, name, nil)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, rdf.NewLangLiteral("Alice", "en"), triples[0].O)

	triples, err = s.Match(ctx, g1, bob, nil, rdf.NewLiteral("Bob"))
	require.NoError(t, err)
	assert.Len(t, triples, 1)

	graphs, err := s.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Term{g1}, graphs)

	require.NoError(t, s.Remove(ctx, rdf.Quad{S: alice, P: knows, O: bob}))
	triples, err = s.Match(ctx, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, triples, 1)

	require.NoError(t, s.Clear(ctx, g1))
	graphs, err = s.Graphs(ctx)
	require.NoError(t, err)
	assert.Empty(t, graphs)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestInvalidTableName(t *testing.T) {
	for _, table := range []string{"quads; DROP TABLE quads", "1quads", "my-quads", `"quads"`} {
		t.Run(table, func(t *testing.T) {
			_, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:", Table: table})
			assert.EqualError(t, err, fmt.Sprintf("invalid table name %q", table))

			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			_, err = New(context.Background(), db, "pgx", table)
			assert.Error(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	s, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:", Table: "_Quads2"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestPostgresDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS quads").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	s, err := New(ctx, db, "pgx", "")
	require.NoError(t, err)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO quads (g, s, p, o) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING"))
	prep.ExpectExec().
		WithArgs("<http://example.org/g1>", "<http://example.org/alice>", "<http://xmlns.com/foaf/0.1/knows>", "<http://example.org/bob>").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Add(ctx, rdf.Quad{S: alice, P: knows, O: bob, G: g1}))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT s, p, o FROM quads WHERE g = $1 AND s = $2")).
		WithArgs("<http://example.org/g1>", "<http://example.org/alice>").
		WillReturnRows(sqlmock.NewRows([]string{"s", "p", "o"}).
			AddRow("<http://example.org/alice>", "<http://xmlns.com/foaf/0.1/knows>", "<http://example.org/bob>"))

	triples, err := s.Match(ctx, g1, alice, nil, nil)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, rdf.Triple{S: alice, P: knows, O: bob}, triples[0])

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM quads WHERE g = $1")).
		WithArgs("").
		WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, s.Clear(ctx, nil))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	ctx := context.Background()
	s, err := New(ctx, db, "postgres", "triples")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO triples").
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Add(ctx, rdf.Quad{S: alice, P: knows, O: bob})
	assert.EqualError(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRejectsCorruptRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := New(context.Background(), db, "sqlite3", "")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT s, p, o FROM quads").
		WillReturnRows(sqlmock.NewRows([]string{"s", "p", "o"}).AddRow("<urn:s>", `"literal"`, "<urn:o>"))

	_, err = s.Match(context.Background(), nil, nil, nil, nil)
	assert.Error(t, err)
}
