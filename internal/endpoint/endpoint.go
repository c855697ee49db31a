// Package endpoint implements the SPARQL Protocol query and update
// operations as HTTP handlers and the descriptors that mount them.
package endpoint

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/mediatype"
	"github.com/conduit-lang/sparqld/internal/protocol"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/sparql/parser"
	"github.com/conduit-lang/sparqld/internal/web/response"
)

// RouteSink accepts route registrations. chi.Router satisfies it.
type RouteSink interface {
	Method(method, pattern string, h http.Handler)
}

// Kind is the operation an endpoint serves.
type Kind int

const (
	// KindQuery serves GET and POST SPARQL queries
	KindQuery Kind = iota
	// KindUpdate serves POST SPARQL updates
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Methods returns the HTTP methods routed to endpoints of the kind.
func (k Kind) Methods() []string {
	if k == KindQuery {
		return []string{http.MethodGet, http.MethodPost}
	}
	return []string{http.MethodPost}
}

// Descriptor is a configured endpoint: its kind, its path and the handler
// matching the kind.
type Descriptor struct {
	Kind   Kind
	Path   string
	Query  *QueryHandler
	Update *UpdateHandler
}

// Handler returns the handler selected by Kind.
func (d Descriptor) Handler() (http.Handler, error) {
	switch d.Kind {
	case KindQuery:
		if d.Query == nil {
			return nil, fmt.Errorf("query endpoint %s has no handler", d.Path)
		}
		return d.Query, nil
	case KindUpdate:
		if d.Update == nil {
			return nil, fmt.Errorf("update endpoint %s has no handler", d.Path)
		}
		return d.Update, nil
	}
	return nil, fmt.Errorf("unknown endpoint kind %d", int(d.Kind))
}

// Register mounts the endpoint on sink.
func (d Descriptor) Register(sink RouteSink) error {
	if d.Path == "" || d.Path[0] != '/' {
		return fmt.Errorf("invalid endpoint path %q", d.Path)
	}
	h, err := d.Handler()
	if err != nil {
		return err
	}
	for _, method := range d.Kind.Methods() {
		sink.Method(method, d.Path, h)
	}
	return nil
}

// Recorder observes the outcome of protocol operations.
type Recorder interface {
	RecordOperation(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string) {}

// Option configures a handler.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	catalog   *mediatype.Catalog
	extractor *protocol.Extractor
	recorder  Recorder

	queryParser  sparql.QueryParser
	updateParser sparql.UpdateParser
}

func defaultOptions() options {
	return options{
		logger:    zap.NewNop(),
		catalog:   mediatype.DefaultCatalog(),
		extractor: protocol.NewExtractor(),
		recorder:  nopRecorder{},

		queryParser:  parser.SPARQL{},
		updateParser: parser.SPARQL{},
	}
}

// WithLogger sets the logger used for failed operations.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCatalog sets the formats offered by content negotiation.
func WithCatalog(catalog *mediatype.Catalog) Option {
	return func(o *options) {
		if catalog != nil {
			o.catalog = catalog
		}
	}
}

// WithExtractor sets the request extractor.
func WithExtractor(extractor *protocol.Extractor) Option {
	return func(o *options) {
		if extractor != nil {
			o.extractor = extractor
		}
	}
}

// WithRecorder sets the operation recorder.
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// WithQueryParser replaces the query parser.
func WithQueryParser(p sparql.QueryParser) Option {
	return func(o *options) {
		if p != nil {
			o.queryParser = p
		}
	}
}

// WithUpdateParser replaces the update parser.
func WithUpdateParser(p sparql.UpdateParser) Option {
	return func(o *options) {
		if p != nil {
			o.updateParser = p
		}
	}
}

// failure reports err to the client and the observers.
func failure(w http.ResponseWriter, o *options, operation string, err *protocol.Error) {
	o.recorder.RecordOperation(operation, err.Kind.String())
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Stringer("kind", err.Kind),
		zap.String("message", err.Message),
	}
	if err.Err != nil {
		fields = append(fields, zap.Error(err.Err))
	}
	if err.Kind == protocol.KindProcessing {
		o.logger.Error("sparql operation failed", fields...)
	} else {
		o.logger.Debug("sparql operation rejected", fields...)
	}
	response.RenderError(w, err.Status(), err.Message)
}

func asProtocolError(err error) *protocol.Error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	return protocol.Wrap(protocol.KindProcessing, err, err.Error())
}
