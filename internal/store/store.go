// Package store defines the quad store the SPARQL engine evaluates against and
// provides an in-memory implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store holds RDF quads. A nil graph argument denotes the default graph.
type Store interface {
	// Match returns the triples of graph matching the pattern. Nil pattern
	// positions are wildcards.
	Match(ctx context.Context, graph rdf.Term, s, p, o rdf.Term) ([]rdf.Triple, error)
	// Graphs lists the non-empty named graphs.
	Graphs(ctx context.Context) ([]rdf.Term, error)
	Add(ctx context.Context, quads ...rdf.Quad) error
	Remove(ctx context.Context, quads ...rdf.Quad) error
	// Clear removes every triple of graph.
	Clear(ctx context.Context, graph rdf.Term) error
	Close() error
}

// ReadFile parses a Turtle or N-Triples file, chosen by extension.
func ReadFile(path string) (*rdf.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return rdf.ReadNTriples(f)
	case ".ttl", ".turtle", "":
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return rdf.ReadTurtle(f, "file://"+filepath.ToSlash(abs))
	default:
		return nil, fmt.Errorf("unsupported RDF file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads path and adds its triples to graph in s.
func LoadFile(ctx context.Context, s Store, path string, graph rdf.Term) error {
	g, err := ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	quads := make([]rdf.Quad, 0, g.Len())
	for _, t := range g.Triples() {
		quads = append(quads, t.ToQuad(graph))
	}
	return s.Add(ctx, quads...)
}
