// Package engine evaluates parsed SPARQL queries and updates against a quad
// store.
package engine

import (
	"context"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/store"
)

// dataset is the RDF dataset a query or WHERE clause is evaluated against.
type dataset struct {
	store store.Store

	// defaults are merged into the default graph; a nil entry is the store's
	// own default graph.
	defaults []rdf.Term
	// named restricts GRAPH patterns when restricted is set.
	named      []rdf.Term
	restricted bool
}

func storeDataset(s store.Store) *dataset {
	return &dataset{store: s, defaults: []rdf.Term{nil}}
}

// newDataset builds a dataset from FROM / FROM NAMED or USING / USING NAMED
// clauses. Without any clause the store's default graph and all named graphs
// are used.
func newDataset(s store.Store, defaults, named []rdf.IRI) *dataset {
	if len(defaults) == 0 && len(named) == 0 {
		return storeDataset(s)
	}
	ds := &dataset{store: s, restricted: true, defaults: []rdf.Term{}}
	for _, g := range defaults {
		ds.defaults = append(ds.defaults, g)
	}
	for _, g := range named {
		ds.named = append(ds.named, g)
	}
	return ds
}

// match returns the triples of the active graph matching the pattern. A nil
// active graph is the dataset's default graph.
func (ds *dataset) match(ctx context.Context, active rdf.Term, s, p, o rdf.Term) ([]rdf.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if active != nil {
		return ds.store.Match(ctx, active, s, p, o)
	}
	if len(ds.defaults) == 1 {
		return ds.store.Match(ctx, ds.defaults[0], s, p, o)
	}

	merged := rdf.NewGraph()
	for _, g := range ds.defaults {
		triples, err := ds.store.Match(ctx, g, s, p, o)
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			merged.Add(t)
		}
	}
	return merged.Triples(), nil
}

// namedGraphs lists the graphs GRAPH patterns range over.
func (ds *dataset) namedGraphs(ctx context.Context) ([]rdf.Term, error) {
	if ds.restricted {
		return ds.named, nil
	}
	return ds.store.Graphs(ctx)
}

// hasNamedGraph reports whether graph is one of the dataset's named graphs.
func (ds *dataset) hasNamedGraph(ctx context.Context, graph rdf.Term) (bool, error) {
	graphs, err := ds.namedGraphs(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range graphs {
		if g == graph {
			return true, nil
		}
	}
	return false, nil
}
