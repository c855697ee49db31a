// Package sparql declares the collaborators the protocol handlers drive:
// parsers that turn text into syntax trees and processors that evaluate
// them against a store.
package sparql

import (
	"context"
	"errors"

	"github.com/conduit-lang/sparqld/internal/sparql/ast"
)

// ErrTimeout is returned by processors when evaluation exceeds its time
// budget.
var ErrTimeout = errors.New("sparql: processing timed out")

// QueryParser parses query text.
type QueryParser interface {
	ParseQuery(text string) (*ast.Query, error)
}

// UpdateParser parses update text.
type UpdateParser interface {
	ParseUpdate(text string) (*ast.CommandSet, error)
}

// QueryProcessor evaluates a query. The result is a *results.ResultSet for
// SELECT and ASK, and an *rdf.Graph for CONSTRUCT and DESCRIBE.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, q *ast.Query) (any, error)
}

// UpdateProcessor applies update command sets.
type UpdateProcessor interface {
	ProcessCommandSet(ctx context.Context, cs *ast.CommandSet) error
	// Flush persists pending changes.
	Flush(ctx context.Context) error
}
