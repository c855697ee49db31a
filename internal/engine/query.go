package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/results"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/store"
)

// Options configures a processor
type Options struct {
	// Timeout bounds each evaluation; zero means no limit
	Timeout time.Duration
	// Logger receives debug output; nil disables logging
	Logger *zap.Logger
}

// QueryProcessor evaluates queries against a store.
type QueryProcessor struct {
	store   store.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewQueryProcessor creates a query processor over s.
func NewQueryProcessor(s store.Store, opts Options) *QueryProcessor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryProcessor{store: s, timeout: opts.Timeout, logger: logger}
}

// withTimeout applies the processor's time budget to ctx.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// translateError maps deadline expiry to sparql.ErrTimeout.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sparql.ErrTimeout
	}
	return err
}

// ProcessQuery implements sparql.QueryProcessor. It returns a
// *results.ResultSet for SELECT and ASK and an *rdf.Graph otherwise.
func (p *QueryProcessor) ProcessQuery(ctx context.Context, q *ast.Query) (any, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result, err := p.process(ctx, q)
	p.logger.Debug("query evaluated",
		zap.String("query", q.String()),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

func (p *QueryProcessor) process(ctx context.Context, q *ast.Query) (any, error) {
	ev := &evaluator{ctx: ctx, ds: newDataset(p.store, q.DefaultGraphs, q.NamedGraphs)}
	sols, err := ev.group(q.Where, nil, []Binding{{}})
	if err != nil {
		return nil, err
	}

	switch q.Form {
	case ast.FormAsk:
		return results.NewBoolean(len(sols) > 0), nil
	case ast.FormSelect:
		return selectResults(q, sols), nil
	case ast.FormConstruct:
		sortSolutions(sols, q.OrderBy)
		return construct(q.Template, slice(sols, q.Offset, q.Limit)), nil
	case ast.FormDescribe:
		sortSolutions(sols, q.OrderBy)
		return describe(ctx, ev.ds, q, slice(sols, q.Offset, q.Limit))
	}
	return nil, fmt.Errorf("unsupported query form %s", q.Form)
}

func selectResults(q *ast.Query, sols []Binding) *results.ResultSet {
	sortSolutions(sols, q.OrderBy)

	vars := q.ProjectedVariables()
	rows := make([]results.Row, 0, len(sols))
	seen := make(map[string]bool)
	for _, mu := range sols {
		row := make(results.Row, len(vars))
		for _, v := range vars {
			if value, ok := mu[v]; ok {
				row[v] = value
			}
		}
		if q.Distinct || q.Reduced {
			key := rowKey(vars, row)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		rows = append(rows, row)
	}

	if vars == nil {
		vars = []string{}
	}
	return &results.ResultSet{Variables: vars, Rows: slice(rows, q.Offset, q.Limit)}
}

func rowKey(vars []string, row results.Row) string {
	var b strings.Builder
	for _, v := range vars {
		if value, ok := row[v]; ok {
			b.WriteString(rdf.FormatTerm(value))
		}
		b.WriteByte(0)
	}
	return b.String()
}

// slice applies OFFSET and LIMIT; a negative limit means none.
func slice[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortSolutions(sols []Binding, order []ast.OrderCondition) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(sols, func(i, j int) bool {
		for _, cond := range order {
			a, _ := evaluate(cond.Expr, sols[i])
			b, _ := evaluate(cond.Expr, sols[j])
			c := compareTerms(a, b)
			if c == 0 {
				continue
			}
			if cond.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareTerms orders unbound values first, then blank nodes, IRIs and
// literals.
func compareTerms(a, b rdf.Term) int {
	rank := func(t rdf.Term) int {
		switch t.(type) {
		case nil:
			return 0
		case rdf.BlankNode:
			return 1
		case rdf.IRI:
			return 2
		}
		return 3
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case nil:
		return 0
	case rdf.BlankNode:
		return strings.Compare(av.ID, b.(rdf.BlankNode).ID)
	case rdf.IRI:
		return strings.Compare(av.Value, b.(rdf.IRI).Value)
	}
	if c, err := orderValues(a, b); err == nil {
		return c
	}
	return strings.Compare(rdf.FormatTerm(a), rdf.FormatTerm(b))
}

// construct instantiates the template once per solution. Template blank
// nodes are renamed per solution; triples with unbound or ill-typed
// positions are skipped.
func construct(template []ast.TriplePattern, sols []Binding) *rdf.Graph {
	g := rdf.NewGraph()
	for i, mu := range sols {
		for _, tp := range template {
			if t, ok := instantiate(tp, mu, i); ok {
				g.Add(t)
			}
		}
	}
	return g
}

func instantiate(tp ast.TriplePattern, mu Binding, solution int) (rdf.Triple, bool) {
	term := func(t ast.Term) rdf.Term {
		if b, ok := t.Value.(rdf.BlankNode); ok {
			return rdf.BlankNode{ID: fmt.Sprintf("%s_%d", b.ID, solution)}
		}
		return mu.resolve(t)
	}
	return groundTriple(term(tp.S), term(tp.P), term(tp.O))
}

// groundTriple builds a triple, rejecting unbound positions, literal
// subjects and non-IRI predicates.
func groundTriple(s, p, o rdf.Term) (rdf.Triple, bool) {
	if s == nil || p == nil || o == nil {
		return rdf.Triple{}, false
	}
	if _, ok := s.(rdf.Literal); ok {
		return rdf.Triple{}, false
	}
	pred, ok := p.(rdf.IRI)
	if !ok {
		return rdf.Triple{}, false
	}
	return rdf.Triple{S: s, P: pred, O: o}, true
}

// describe returns the triples of the default graph whose subject is one of
// the described resources.
func describe(ctx context.Context, ds *dataset, q *ast.Query, sols []Binding) (*rdf.Graph, error) {
	var resources []rdf.Term
	seen := make(map[rdf.Term]bool)
	add := func(t rdf.Term) {
		if t == nil || seen[t] {
			return
		}
		if _, lit := t.(rdf.Literal); lit {
			return
		}
		seen[t] = true
		resources = append(resources, t)
	}

	if q.Star {
		vars := ast.PatternVariables(q.Where)
		for _, mu := range sols {
			for _, v := range vars {
				add(mu[v])
			}
		}
	}
	for _, target := range q.Describe {
		if !target.IsVar() {
			add(target.Value)
			continue
		}
		for _, mu := range sols {
			add(mu[target.Var])
		}
	}

	g := rdf.NewGraph()
	for _, r := range resources {
		triples, err := ds.match(ctx, nil, r, nil, nil)
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			g.Add(t)
		}
	}
	return g, nil
}

var _ sparql.QueryProcessor = (*QueryProcessor)(nil)
