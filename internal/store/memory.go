package store

import (
	"context"
	"sort"
	"sync"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

// defaultGraphKey stands in for the nil graph name in the graph map.
type defaultGraphKey struct{}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[any]*rdf.Graph
	closed bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{graphs: make(map[any]*rdf.Graph)}
}

func graphKey(graph rdf.Term) any {
	if graph == nil {
		return defaultGraphKey{}
	}
	return graph
}

// Match implements Store.
func (m *MemoryStore) Match(ctx context.Context, graph rdf.Term, s, p, o rdf.Term) ([]rdf.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	g, ok := m.graphs[graphKey(graph)]
	if !ok {
		return nil, nil
	}
	return g.Match(s, p, o), nil
}

// Graphs implements Store. Names are sorted by their N-Triples form.
func (m *MemoryStore) Graphs(ctx context.Context) ([]rdf.Term, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var names []rdf.Term
	for key, g := range m.graphs {
		if name, ok := key.(rdf.Term); ok && g.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return rdf.FormatTerm(names[i]) < rdf.FormatTerm(names[j])
	})
	return names, nil
}

// Add implements Store.
func (m *MemoryStore) Add(ctx context.Context, quads ...rdf.Quad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, q := range quads {
		key := graphKey(q.G)
		g, ok := m.graphs[key]
		if !ok {
			g = rdf.NewGraph()
			m.graphs[key] = g
		}
		g.Add(q.Triple())
	}
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(ctx context.Context, quads ...rdf.Quad) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, q := range quads {
		if g, ok := m.graphs[graphKey(q.G)]; ok {
			g.Remove(q.Triple())
		}
	}
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(ctx context.Context, graph rdf.Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.graphs, graphKey(graph))
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.graphs = nil
	return nil
}
