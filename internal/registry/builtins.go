package registry

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/endpoint"
	"github.com/conduit-lang/sparqld/internal/engine"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/store"
	"github.com/conduit-lang/sparqld/internal/store/redisstore"
	"github.com/conduit-lang/sparqld/internal/store/sqlstore"
)

// Built-in kinds.
const (
	KindQueryEndpoint   = "QueryEndpoint"
	KindUpdateEndpoint  = "UpdateEndpoint"
	KindQueryProcessor  = "QueryProcessor"
	KindUpdateProcessor = "UpdateProcessor"
	KindMemoryStore     = "MemoryStore"
	KindSQLStore        = "SQLStore"
	KindRedisStore      = "RedisStore"
)

func builtins() map[string]Builder {
	return map[string]Builder{
		KindQueryEndpoint:   buildQueryEndpoint,
		KindUpdateEndpoint:  buildUpdateEndpoint,
		KindQueryProcessor:  buildQueryProcessor,
		KindUpdateProcessor: buildUpdateProcessor,
		KindMemoryStore:     buildMemoryStore,
		KindSQLStore:        buildSQLStore,
		KindRedisStore:      buildRedisStore,
	}
}

func buildQueryEndpoint(p *Pass, node rdf.Term) (any, error) {
	path, err := endpointPath(p, node)
	if err != nil {
		return nil, err
	}
	obj, err := p.ResolveProperty(node, PropQueryProcessor)
	if err != nil {
		return nil, err
	}
	processor, ok := obj.(sparql.QueryProcessor)
	if !ok {
		return nil, fmt.Errorf("%T is not a query processor", obj)
	}
	return endpoint.Descriptor{
		Kind:  endpoint.KindQuery,
		Path:  path,
		Query: endpoint.NewQueryHandler(processor, p.HandlerOptions()...),
	}, nil
}

func buildUpdateEndpoint(p *Pass, node rdf.Term) (any, error) {
	path, err := endpointPath(p, node)
	if err != nil {
		return nil, err
	}
	obj, err := p.ResolveProperty(node, PropUpdateProcessor)
	if err != nil {
		return nil, err
	}
	processor, ok := obj.(sparql.UpdateProcessor)
	if !ok {
		return nil, fmt.Errorf("%T is not an update processor", obj)
	}
	return endpoint.Descriptor{
		Kind:   endpoint.KindUpdate,
		Path:   path,
		Update: endpoint.NewUpdateHandler(processor, p.HandlerOptions()...),
	}, nil
}

func processorOptions(p *Pass, node rdf.Term) (store.Store, engine.Options, error) {
	var opts engine.Options
	obj, err := p.ResolveProperty(node, PropUsingStore)
	if err != nil {
		return nil, opts, err
	}
	s, ok := obj.(store.Store)
	if !ok {
		return nil, opts, fmt.Errorf("%T is not a store", obj)
	}

	if value, ok := p.String(node, PropTimeout); ok {
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 {
			return nil, opts, fmt.Errorf("invalid timeout %q", value)
		}
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}
	opts.Logger = p.Logger().Named("engine")
	return s, opts, nil
}

func buildQueryProcessor(p *Pass, node rdf.Term) (any, error) {
	s, opts, err := processorOptions(p, node)
	if err != nil {
		return nil, err
	}
	return engine.NewQueryProcessor(s, opts), nil
}

func buildUpdateProcessor(p *Pass, node rdf.Term) (any, error) {
	s, opts, err := processorOptions(p, node)
	if err != nil {
		return nil, err
	}
	return engine.NewUpdateProcessor(s, opts), nil
}

func buildMemoryStore(p *Pass, node rdf.Term) (any, error) {
	s := store.NewMemoryStore()

	load := func(path string, graph rdf.Term) error {
		if err := store.LoadFile(p.Context(), s, path, graph); err != nil {
			s.Close()
			return err
		}
		p.Logger().Debug("loaded data", zap.String("file", path), zap.Bool("default_graph", graph == nil))
		return nil
	}

	for _, file := range p.Strings(node, PropFromFile) {
		if err := load(filePath(file), nil); err != nil {
			return nil, err
		}
	}
	for _, pair := range p.Graph().Objects(node, PropFromGraphFile) {
		graph, ok := p.String(pair, PropGraph)
		if !ok {
			s.Close()
			return nil, fmt.Errorf("%s without %s", rdf.FormatTerm(PropFromGraphFile), rdf.FormatTerm(PropGraph))
		}
		if err := rdf.ValidateAbsoluteIRI(graph); err != nil {
			s.Close()
			return nil, fmt.Errorf("invalid graph name %q: %w", graph, err)
		}
		file, ok := p.String(pair, PropFile)
		if !ok {
			s.Close()
			return nil, fmt.Errorf("%s without %s", rdf.FormatTerm(PropFromGraphFile), rdf.FormatTerm(PropFile))
		}
		if err := load(filePath(file), rdf.IRI{Value: graph}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// filePath accepts plain paths and file: IRIs, which Turtle produces for
// relative IRI references resolved against the configuration file.
func filePath(value string) string {
	if u, err := url.Parse(value); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return value
}

func buildSQLStore(p *Pass, node rdf.Term) (any, error) {
	driver, ok := p.String(node, PropDriver)
	if !ok {
		return nil, fmt.Errorf("missing %s", rdf.FormatTerm(PropDriver))
	}
	dsn, ok := p.String(node, PropDSN)
	if !ok {
		return nil, fmt.Errorf("missing %s", rdf.FormatTerm(PropDSN))
	}
	table, _ := p.String(node, PropTable)
	s, err := sqlstore.Open(p.Context(), sqlstore.Config{Driver: driver, DSN: dsn, Table: table})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func buildRedisStore(p *Pass, node rdf.Term) (any, error) {
	cfg := redisstore.DefaultConfig()
	if addr, ok := p.String(node, PropAddress); ok {
		cfg.Addr = addr
	}
	if password, ok := p.String(node, PropPassword); ok {
		cfg.Password = password
	}
	if prefix, ok := p.String(node, PropPrefix); ok {
		cfg.Prefix = prefix
	}
	if value, ok := p.String(node, PropDatabase); ok {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("invalid database %q", value)
		}
		cfg.DB = db
	}
	s, err := redisstore.Open(p.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
