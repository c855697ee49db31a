// Package sqlstore implements store.Store on a SQL database. Terms are kept
// in their N-Triples form in a single quads table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	// Registered database drivers.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/store"
)

// DefaultTable is the name of the quads table.
const DefaultTable = "quads"

// Table names are interpolated into statements, so only plain identifiers
// are accepted.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	placeholder func(n int) string
	insert      string
}

var (
	sqliteDialect = dialect{
		placeholder: func(int) string { return "?" },
		insert:      "INSERT OR IGNORE INTO %s (g, s, p, o) VALUES (?, ?, ?, ?)",
	}
	postgresDialect = dialect{
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		insert:      "INSERT INTO %s (g, s, p, o) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING",
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3":
		return sqliteDialect, nil
	case "pgx", "postgres":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported SQL driver %q", driver)
	}
}

// Config holds SQL store configuration
type Config struct {
	// Driver is one of sqlite3, pgx or postgres
	Driver string
	// DSN is the data source name passed to sql.Open
	DSN string
	// Table is the quads table name
	Table string
}

// Store is a SQL-backed quad store.
type Store struct {
	db      *sql.DB
	table   string
	dialect dialect
}

// Open connects to the database described by cfg and prepares the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if _, err := dialectFor(cfg.Driver); err != nil {
		return nil, err
	}
	if err := validateTable(cfg.Table); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == "sqlite3" {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}
	s, err := New(ctx, db, cfg.Driver, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and creates the quads table if needed.
func New(ctx context.Context, db *sql.DB, driver, table string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultTable
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	s := &Store{db: db, table: table, dialect: d}
	if err := s.createTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", table, err)
	}
	return s, nil
}

func validateTable(table string) error {
	if table != "" && !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

func (s *Store) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	g TEXT NOT NULL,
	s TEXT NOT NULL,
	p TEXT NOT NULL,
	o TEXT NOT NULL,
	PRIMARY KEY (g, s, p, o)
)`, s.table)
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// encodeGraph maps the default graph to the empty string.
func encodeGraph(graph rdf.Term) string {
	if graph == nil {
		return ""
	}
	return rdf.FormatTerm(graph)
}

func decodeGraph(value string) (rdf.Term, error) {
	if value == "" {
		return nil, nil
	}
	return rdf.ParseTerm(value)
}

// Match implements store.Store.
func (s *Store) Match(ctx context.Context, graph rdf.Term, subj, pred, obj rdf.Term) ([]rdf.Triple, error) {
	conds := []string{"g = " + s.dialect.placeholder(1)}
	args := []any{encodeGraph(graph)}
	for _, col := range []struct {
		name string
		term rdf.Term
	}{{"s", subj}, {"p", pred}, {"o", obj}} {
		if col.term == nil {
			continue
		}
		args = append(args, rdf.FormatTerm(col.term))
		conds = append(conds, col.name+" = "+s.dialect.placeholder(len(args)))
	}

	query := fmt.Sprintf("SELECT s, p, o FROM %s WHERE %s", s.table, strings.Join(conds, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rdf.Triple
	for rows.Next() {
		var sv, pv, ov string
		if err := rows.Scan(&sv, &pv, &ov); err != nil {
			return nil, err
		}
		t, err := decodeTriple(sv, pv, ov)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func decodeTriple(sv, pv, ov string) (rdf.Triple, error) {
	subj, err := rdf.ParseTerm(sv)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.ParseTerm(pv)
	if err != nil {
		return rdf.Triple{}, err
	}
	iri, ok := pred.(rdf.IRI)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("stored predicate %s is not an IRI", pv)
	}
	obj, err := rdf.ParseTerm(ov)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{S: subj, P: iri, O: obj}, nil
}

// Graphs implements store.Store.
func (s *Store) Graphs(ctx context.Context) ([]rdf.Term, error) {
	query := fmt.Sprintf("SELECT DISTINCT g FROM %s WHERE g <> '' ORDER BY g", s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rdf.Term
	for rows.Next() {
		var gv string
		if err := rows.Scan(&gv); err != nil {
			return nil, err
		}
		g, err := decodeGraph(gv)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Add implements store.Store. All quads are written in one transaction.
func (s *Store) Add(ctx context.Context, quads ...rdf.Quad) error {
	return s.exec(ctx, fmt.Sprintf(s.dialect.insert, s.table), quads)
}

// Remove implements store.Store.
func (s *Store) Remove(ctx context.Context, quads ...rdf.Quad) error {
	p := s.dialect.placeholder
	query := fmt.Sprintf("DELETE FROM %s WHERE g = %s AND s = %s AND p = %s AND o = %s",
		s.table, p(1), p(2), p(3), p(4))
	return s.exec(ctx, query, quads)
}

func (s *Store) exec(ctx context.Context, query string, quads []rdf.Quad) error {
	if len(quads) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, q := range quads {
		_, err := stmt.ExecContext(ctx, encodeGraph(q.G), rdf.FormatTerm(q.S), rdf.FormatTerm(q.P), rdf.FormatTerm(q.O))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Clear implements store.Store.
func (s *Store) Clear(ctx context.Context, graph rdf.Term) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE g = %s", s.table, s.dialect.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, encodeGraph(graph))
	return err
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
