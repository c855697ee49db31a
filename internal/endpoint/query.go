package endpoint

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/mediatype"
	"github.com/conduit-lang/sparqld/internal/protocol"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/results"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/web/response"
)

// Messages sent when no format can represent the result.
const (
	NoResultsFormat = "No acceptable media type found for SPARQL results."
	NoGraphFormat   = "No acceptable media type found for RDF graphs."
)

const operationQuery = "query"

// QueryHandler serves the SPARQL Protocol query operation.
type QueryHandler struct {
	processor sparql.QueryProcessor
	opts      options
}

// NewQueryHandler creates a query handler evaluating with processor.
func NewQueryHandler(processor sparql.QueryProcessor, opts ...Option) *QueryHandler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &QueryHandler{processor: processor, opts: o}
}

// ServeHTTP extracts, parses and evaluates the query, then writes the
// result in the format negotiated from the Accept header.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.serve(w, r); err != nil {
		failure(w, &h.opts, operationQuery, err)
		return
	}
	h.opts.recorder.RecordOperation(operationQuery, "success")
}

func (h *QueryHandler) serve(w http.ResponseWriter, r *http.Request) *protocol.Error {
	req, err := h.opts.extractor.Query(r)
	if err != nil {
		return asProtocolError(err)
	}

	q, err := h.opts.queryParser.ParseQuery(req.Text)
	if err != nil {
		return protocol.Wrap(protocol.KindParse, err, err.Error())
	}

	if perr := overrideDataset(q, req); perr != nil {
		return perr
	}

	result, err := h.processor.ProcessQuery(r.Context(), q)
	if err != nil {
		if errors.Is(err, sparql.ErrTimeout) {
			return protocol.Wrap(protocol.KindTimeout, err, "SPARQL Query timed out")
		}
		return protocol.Wrap(protocol.KindProcessing, err, "Error processing SPARQL Query:\n"+err.Error())
	}

	var (
		filter  mediatype.Filter
		message string
	)
	switch result.(type) {
	case *results.ResultSet:
		filter, message = mediatype.ForResults, NoResultsFormat
	case *rdf.Graph:
		filter, message = mediatype.ForGraphs, NoGraphFormat
	default:
		return protocol.Errorf(protocol.KindProcessing, "Unexpected query result type %T", result)
	}

	match, ok := h.opts.catalog.Negotiate(r, filter)
	if !ok {
		return protocol.Errorf(protocol.KindNotAcceptable, "%s", message)
	}

	if err := response.Serialize(w, match, result); err != nil {
		return protocol.Wrap(protocol.KindProcessing, err, "Error writing SPARQL results:\n"+err.Error())
	}
	h.opts.logger.Debug("query answered",
		zap.String("media_type", match.MediaType),
		zap.String("format", match.Definition.Name),
	)
	return nil
}

// overrideDataset replaces FROM and FROM NAMED with the graph URIs of the
// request. All URIs are validated before the query is changed.
func overrideDataset(q *ast.Query, req *protocol.Request) *protocol.Error {
	defaults, err := graphIRIs(req.DefaultGraphs)
	if err != nil {
		return protocol.Wrap(protocol.KindProtocol, err, "Invalid graph name in default-graph-uri or named-graph-uri parameter")
	}
	named, err := graphIRIs(req.NamedGraphs)
	if err != nil {
		return protocol.Wrap(protocol.KindProtocol, err, "Invalid graph name in default-graph-uri or named-graph-uri parameter")
	}

	if len(defaults) > 0 {
		q.DefaultGraphs = defaults
	}
	if len(named) > 0 {
		q.NamedGraphs = named
	}
	return nil
}

// graphIRIs validates each URI as an absolute IRI.
func graphIRIs(uris []string) ([]rdf.IRI, error) {
	if len(uris) == 0 {
		return nil, nil
	}
	out := make([]rdf.IRI, 0, len(uris))
	for _, uri := range uris {
		if err := rdf.ValidateAbsoluteIRI(uri); err != nil {
			return nil, err
		}
		out = append(out, rdf.IRI{Value: uri})
	}
	return out, nil
}
