// Package registry turns an RDF configuration graph into mounted SPARQL
// endpoints. Every resource typed cfg:HttpHandler is resolved through a table
// of builders keyed by its cfg:type and registered on a route sink.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/endpoint"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/store"
)

// Namespace is the configuration vocabulary.
const Namespace = "http://conduit-lang.dev/sparqld/config#"

// PathScheme marks endpoint IRIs that carry their own path, e.g.
// <sparqld:/query>.
const PathScheme = "sparqld"

// Vocabulary terms.
var (
	HTTPHandler = cfg("HttpHandler")

	PropType            = cfg("type")
	PropPath            = cfg("path")
	PropQueryProcessor  = cfg("queryProcessor")
	PropUpdateProcessor = cfg("updateProcessor")
	PropUsingStore      = cfg("usingStore")
	PropTimeout         = cfg("timeout")
	PropFromFile        = cfg("fromFile")
	PropFromGraphFile   = cfg("fromGraphFile")
	PropGraph           = cfg("graph")
	PropFile            = cfg("file")
	PropDriver          = cfg("driver")
	PropDSN             = cfg("dsn")
	PropTable           = cfg("table")
	PropAddress         = cfg("address")
	PropDatabase        = cfg("database")
	PropPassword        = cfg("password")
	PropPrefix          = cfg("prefix")
)

func cfg(local string) rdf.IRI {
	return rdf.IRI{Value: Namespace + local}
}

// Builder constructs the object described by node. Builders resolve the
// resources they reference through the pass.
type Builder func(p *Pass, node rdf.Term) (any, error)

// ErrUnknownKind is returned when a resource names a kind with no builder.
var ErrUnknownKind = errors.New("unknown configuration kind")

// Registry holds the builder table and the resources opened while resolving.
type Registry struct {
	logger      *zap.Logger
	handlerOpts []endpoint.Option

	mu       sync.Mutex
	builders map[string]Builder
	closers  []io.Closer
}

// New creates a registry with the built-in kinds. handlerOpts are applied to
// every handler it builds.
func New(logger *zap.Logger, handlerOpts ...endpoint.Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:      logger,
		handlerOpts: append([]endpoint.Option{endpoint.WithLogger(logger)}, handlerOpts...),
		builders:    make(map[string]Builder),
	}
	for kind, b := range builtins() {
		r.builders[kind] = b
	}
	return r
}

// Register adds or replaces the builder for kind.
func (r *Registry) Register(kind string, b Builder) error {
	if kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}
	if b == nil {
		return fmt.Errorf("builder for %s cannot be nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[kind] = b
	return nil
}

// Kinds returns the registered kind names in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.builders))
	for kind := range r.builders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// HasKind reports whether kind has a builder.
func (r *Registry) HasKind(kind string) bool {
	_, ok := r.builder(kind)
	return ok
}

func (r *Registry) builder(kind string) (Builder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.builders[kind]
	return b, ok
}

// Resolve builds the object described by node in a fresh pass over g.
func (r *Registry) Resolve(ctx context.Context, g *rdf.Graph, node rdf.Term) (any, error) {
	p := r.newPass(ctx, g)
	defer p.finish()
	return p.Resolve(node)
}

// RegisterAll mounts every endpoint declared in g on sink and returns the
// descriptors that were mounted. Resources that cannot be resolved are logged
// and skipped.
func (r *Registry) RegisterAll(g *rdf.Graph, sink endpoint.RouteSink) []endpoint.Descriptor {
	return r.RegisterAllContext(context.Background(), g, sink)
}

// RegisterAllContext is RegisterAll with a context for opening stores.
func (r *Registry) RegisterAllContext(ctx context.Context, g *rdf.Graph, sink endpoint.RouteSink) []endpoint.Descriptor {
	p := r.newPass(ctx, g)
	defer p.finish()

	type endpointKey struct {
		kind endpoint.Kind
		path string
	}
	mounted := make(map[endpointKey]bool)
	routes := make(map[string]bool)

	var descriptors []endpoint.Descriptor
	for _, node := range p.graph.Subjects(rdf.RDFType, HTTPHandler) {
		logger := r.logger.With(zap.String("resource", rdf.FormatTerm(node)))

		obj, err := p.Resolve(node)
		if err != nil {
			logger.Warn("skipping endpoint", zap.Error(err))
			continue
		}
		d, ok := obj.(endpoint.Descriptor)
		if !ok {
			logger.Warn("skipping endpoint", zap.String("reason", fmt.Sprintf("resource resolved to %T", obj)))
			continue
		}

		key := endpointKey{d.Kind, d.Path}
		if mounted[key] {
			logger.Warn("skipping endpoint",
				zap.String("reason", "duplicate endpoint"),
				zap.Stringer("kind", d.Kind),
				zap.String("path", d.Path))
			continue
		}
		if collision := firstTaken(routes, d); collision != "" {
			logger.Warn("skipping endpoint",
				zap.String("reason", "route already mounted"),
				zap.String("route", collision))
			continue
		}
		if err := d.Register(sink); err != nil {
			logger.Warn("skipping endpoint", zap.Error(err))
			continue
		}

		mounted[key] = true
		for _, method := range d.Kind.Methods() {
			routes[method+" "+d.Path] = true
		}
		descriptors = append(descriptors, d)
		logger.Info("endpoint mounted", zap.Stringer("kind", d.Kind), zap.String("path", d.Path))
	}
	return descriptors
}

func firstTaken(routes map[string]bool, d endpoint.Descriptor) string {
	for _, method := range d.Kind.Methods() {
		if route := method + " " + d.Path; routes[route] {
			return route
		}
	}
	return ""
}

// Close closes every store opened by previous passes.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pass is one resolution over a configuration graph. Objects are memoised
// per node, so a store referenced twice is built once.
type Pass struct {
	ctx      context.Context
	registry *Registry
	graph    *rdf.Graph

	built     map[rdf.Term]any
	resolving map[rdf.Term]bool
	closers   []io.Closer
}

func (r *Registry) newPass(ctx context.Context, g *rdf.Graph) *Pass {
	if g == nil {
		g = rdf.NewGraph()
	}
	return &Pass{
		ctx:       ctx,
		registry:  r,
		graph:     g,
		built:     make(map[rdf.Term]any),
		resolving: make(map[rdf.Term]bool),
	}
}

func (p *Pass) finish() {
	p.registry.mu.Lock()
	p.registry.closers = append(p.registry.closers, p.closers...)
	p.registry.mu.Unlock()
}

// Context returns the context of the pass.
func (p *Pass) Context() context.Context { return p.ctx }

// Graph returns the configuration graph.
func (p *Pass) Graph() *rdf.Graph { return p.graph }

// Logger returns the registry logger.
func (p *Pass) Logger() *zap.Logger { return p.registry.logger }

// HandlerOptions returns the options every built handler receives.
func (p *Pass) HandlerOptions() []endpoint.Option { return p.registry.handlerOpts }

// Resolve builds the object described by node using the builder named by its
// cfg:type.
func (p *Pass) Resolve(node rdf.Term) (any, error) {
	if obj, ok := p.built[node]; ok {
		return obj, nil
	}
	if p.resolving[node] {
		return nil, fmt.Errorf("circular reference at %s", rdf.FormatTerm(node))
	}

	kind, ok := p.Kind(node)
	if !ok {
		return nil, fmt.Errorf("%s has no %s", rdf.FormatTerm(node), rdf.FormatTerm(PropType))
	}
	b, ok := p.registry.builder(kind)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	p.resolving[node] = true
	obj, err := b(p, node)
	delete(p.resolving, node)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", kind, rdf.FormatTerm(node), err)
	}

	p.built[node] = obj
	if c, ok := obj.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	return obj, nil
}

// ResolveProperty resolves the object of node's prop.
func (p *Pass) ResolveProperty(node rdf.Term, prop rdf.IRI) (any, error) {
	target, ok := p.graph.Object(node, prop)
	if !ok {
		return nil, fmt.Errorf("missing %s", rdf.FormatTerm(prop))
	}
	return p.Resolve(target)
}

// Kind returns the cfg:type of node.
func (p *Pass) Kind(node rdf.Term) (string, bool) {
	return KindOf(p.graph, node)
}

// KindOf returns the cfg:type of node in g. Literal values are used as is;
// IRIs in the configuration namespace contribute their local name.
func KindOf(g *rdf.Graph, node rdf.Term) (string, bool) {
	value, ok := g.Object(node, PropType)
	if !ok {
		return "", false
	}
	kind, ok := termString(value)
	if !ok {
		return "", false
	}
	kind = strings.TrimPrefix(kind, Namespace)
	return kind, kind != ""
}

// String returns the lexical form of a literal value of prop, or the IRI.
func (p *Pass) String(node rdf.Term, prop rdf.IRI) (string, bool) {
	value, ok := p.graph.Object(node, prop)
	if !ok {
		return "", false
	}
	return termString(value)
}

// Strings returns every value of prop as a string.
func (p *Pass) Strings(node rdf.Term, prop rdf.IRI) []string {
	var out []string
	for _, value := range p.graph.Objects(node, prop) {
		if s, ok := termString(value); ok {
			out = append(out, s)
		}
	}
	return out
}

func termString(t rdf.Term) (string, bool) {
	switch v := t.(type) {
	case rdf.Literal:
		return v.Lexical, true
	case rdf.IRI:
		return v.Value, true
	}
	return "", false
}

// endpointPath takes the path from a sparqld: IRI, falling back to cfg:path.
func endpointPath(p *Pass, node rdf.Term) (string, error) {
	if iri, ok := node.(rdf.IRI); ok {
		if u, err := url.Parse(iri.Value); err == nil && u.Scheme == PathScheme {
			if u.Path == "" {
				return "", fmt.Errorf("endpoint IRI %s has no path", iri.Value)
			}
			return u.Path, nil
		}
	}
	if path, ok := p.String(node, PropPath); ok {
		return path, nil
	}
	return "", fmt.Errorf("missing %s", rdf.FormatTerm(PropPath))
}

// LoadConfiguration reads the configuration graph. A missing file yields an
// empty graph.
func LoadConfiguration(path string) (*rdf.Graph, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return rdf.NewGraph(), nil
	}
	g, err := store.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	return g, nil
}
