package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/store"
)

// UpdateProcessor applies update requests to a store. Commands run in order;
// within a command deletions are applied before insertions.
type UpdateProcessor struct {
	store   store.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewUpdateProcessor creates an update processor over s.
func NewUpdateProcessor(s store.Store, opts Options) *UpdateProcessor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateProcessor{store: s, timeout: opts.Timeout, logger: logger}
}

// ProcessCommandSet implements sparql.UpdateProcessor.
func (p *UpdateProcessor) ProcessCommandSet(ctx context.Context, cs *ast.CommandSet) error {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	// blank nodes in INSERT DATA are fresh for every request
	scope := uuid.NewString()[:8]
	for i, cmd := range cs.Commands {
		if err := ctx.Err(); err != nil {
			return translateError(err)
		}
		start := time.Now()
		err := p.apply(ctx, cmd, fmt.Sprintf("%s%d", scope, i))
		p.logger.Debug("update command applied",
			zap.String("command", cmd.Name()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

// Flush implements sparql.UpdateProcessor. Stores apply changes as they are
// made, so there is nothing to persist.
func (p *UpdateProcessor) Flush(ctx context.Context) error {
	return nil
}

func (p *UpdateProcessor) apply(ctx context.Context, cmd ast.Command, scope string) error {
	switch c := cmd.(type) {
	case *ast.InsertData:
		quads, err := groundQuads(c.Quads, scope)
		if err != nil {
			return err
		}
		return p.store.Add(ctx, quads...)
	case *ast.DeleteData:
		quads, err := groundQuads(c.Quads, "")
		if err != nil {
			return err
		}
		return p.store.Remove(ctx, quads...)
	case *ast.DeleteWhere:
		ds := newDataset(p.store, c.Using, c.UsingNamed)
		return p.modify(ctx, ds, c.Pattern(), c.Quads, nil, nil)
	case *ast.Modify:
		return p.modify(ctx, modifyDataset(p.store, c), c.Where, c.Delete, c.Insert, c.With)
	case *ast.Clear:
		return p.clear(ctx, c)
	case *ast.Create:
		exists, err := graphExists(ctx, p.store, c.Graph)
		if err != nil {
			return err
		}
		if exists && !c.Silent {
			return fmt.Errorf("graph <%s> already exists", c.Graph.Value)
		}
		return nil
	}
	return fmt.Errorf("unsupported update operation %s", cmd.Name())
}

// modifyDataset picks the dataset of a DELETE/INSERT WHERE: USING clauses
// take precedence over WITH, which replaces the default graph.
func modifyDataset(s store.Store, m *ast.Modify) *dataset {
	if len(m.Using) > 0 || len(m.UsingNamed) > 0 {
		return newDataset(s, m.Using, m.UsingNamed)
	}
	ds := storeDataset(s)
	if m.With != nil {
		ds.defaults = []rdf.Term{*m.With}
	}
	return ds
}

func (p *UpdateProcessor) modify(ctx context.Context, ds *dataset, where *ast.GroupPattern,
	deletes, inserts []ast.QuadPattern, with *rdf.IRI) error {
	ev := &evaluator{ctx: ctx, ds: ds}
	sols, err := ev.group(where, nil, []Binding{{}})
	if err != nil {
		return err
	}

	var target rdf.Term
	if with != nil {
		target = *with
	}

	var removals, additions []rdf.Quad
	for i, mu := range sols {
		for _, qp := range deletes {
			if q, ok := instantiateQuad(qp, mu, target, ""); ok {
				removals = append(removals, q)
			}
		}
		for _, qp := range inserts {
			if q, ok := instantiateQuad(qp, mu, target, fmt.Sprintf("%d", i)); ok {
				additions = append(additions, q)
			}
		}
	}

	if err := p.store.Remove(ctx, removals...); err != nil {
		return err
	}
	return p.store.Add(ctx, additions...)
}

// instantiateQuad grounds a quad template with mu. With a scope, template
// blank nodes are renamed so each solution gets its own.
func instantiateQuad(qp ast.QuadPattern, mu Binding, defaultGraph rdf.Term, scope string) (rdf.Quad, bool) {
	term := func(t ast.Term) rdf.Term {
		if b, ok := t.Value.(rdf.BlankNode); ok && scope != "" {
			return rdf.BlankNode{ID: b.ID + "_" + scope}
		}
		return mu.resolve(t)
	}
	t, ok := groundTriple(term(qp.S), term(qp.P), term(qp.O))
	if !ok {
		return rdf.Quad{}, false
	}

	graph := defaultGraph
	if !qp.Graph.IsZero() {
		graph = mu.resolve(qp.Graph)
		if _, ok := graph.(rdf.IRI); !ok {
			return rdf.Quad{}, false
		}
	}
	return t.ToQuad(graph), true
}

// groundQuads converts data quads, which contain no variables.
func groundQuads(patterns []ast.QuadPattern, scope string) ([]rdf.Quad, error) {
	out := make([]rdf.Quad, 0, len(patterns))
	for _, qp := range patterns {
		q, ok := instantiateQuad(qp, Binding{}, nil, scope)
		if !ok {
			return nil, fmt.Errorf("invalid data triple %s", qp.TriplePattern)
		}
		out = append(out, q)
	}
	return out, nil
}

func (p *UpdateProcessor) clear(ctx context.Context, c *ast.Clear) error {
	switch c.Target.Kind {
	case ast.TargetGraph:
		exists, err := graphExists(ctx, p.store, c.Target.Graph)
		if err != nil {
			return err
		}
		if !exists {
			if c.Silent {
				return nil
			}
			return fmt.Errorf("graph <%s> does not exist", c.Target.Graph.Value)
		}
		return p.store.Clear(ctx, c.Target.Graph)
	case ast.TargetDefault:
		return p.store.Clear(ctx, nil)
	case ast.TargetNamed, ast.TargetAll:
		graphs, err := p.store.Graphs(ctx)
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if err := p.store.Clear(ctx, g); err != nil {
				return err
			}
		}
		if c.Target.Kind == ast.TargetAll {
			return p.store.Clear(ctx, nil)
		}
	}
	return nil
}

func graphExists(ctx context.Context, s store.Store, graph rdf.IRI) (bool, error) {
	graphs, err := s.Graphs(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range graphs {
		if g == rdf.Term(graph) {
			return true, nil
		}
	}
	return false, nil
}

var _ sparql.UpdateProcessor = (*UpdateProcessor)(nil)
