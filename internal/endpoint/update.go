package endpoint

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/protocol"
	"github.com/conduit-lang/sparqld/internal/sparql"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
)

// Fixed update failure messages.
const (
	InvalidUsingGraph = "Invalid graph name in using-graph-uri or using-named-graph-uri parameter"
	ConflictingUsing  = "A command in your update request contains a WITH/USING/USING NAMED clause " +
		"but you have also specified one/both of the using-graph-uri or using-named-graph-uri " +
		"parameters which is not permitted by the SPARQL Protocol"
)

const operationUpdate = "update"

// UpdateHandler serves the SPARQL Protocol update operation.
type UpdateHandler struct {
	processor sparql.UpdateProcessor
	opts      options
}

// NewUpdateHandler creates an update handler applying with processor.
func NewUpdateHandler(processor sparql.UpdateProcessor, opts ...Option) *UpdateHandler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &UpdateHandler{processor: processor, opts: o}
}

// ServeHTTP extracts and parses the update, applies the using-graph-uri
// parameters and runs the commands. Success is a 200 with an empty body.
func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.serve(r); err != nil {
		failure(w, &h.opts, operationUpdate, err)
		return
	}
	h.opts.recorder.RecordOperation(operationUpdate, "success")
	w.WriteHeader(http.StatusOK)
}

func (h *UpdateHandler) serve(r *http.Request) *protocol.Error {
	req, err := h.opts.extractor.Update(r)
	if err != nil {
		return asProtocolError(err)
	}

	cs, err := h.opts.updateParser.ParseUpdate(req.Text)
	if err != nil {
		return protocol.Wrap(protocol.KindParse, err, "Invalid SPARQL Update provided:\n"+err.Error())
	}

	if perr := applyUsingGraphs(cs, req); perr != nil {
		return perr
	}

	ctx := r.Context()
	err = h.processor.ProcessCommandSet(ctx, cs)
	if err == nil {
		err = h.processor.Flush(ctx)
	}
	if err != nil {
		if errors.Is(err, sparql.ErrTimeout) {
			return protocol.Wrap(protocol.KindTimeout, err, "SPARQL Update timed out")
		}
		return protocol.Wrap(protocol.KindProcessing, err, "Error processing SPARQL Update:\n"+err.Error())
	}

	h.opts.logger.Debug("update applied", zap.Int("commands", len(cs.Commands)))
	return nil
}

// applyUsingGraphs adds the request's using-graph-uri and
// using-named-graph-uri values to every command evaluated against a
// dataset. Validation of all URIs and of every command happens before any
// command is changed.
func applyUsingGraphs(cs *ast.CommandSet, req *protocol.Request) *protocol.Error {
	defaults := nonEmpty(req.DefaultGraphs)
	named := nonEmpty(req.NamedGraphs)
	if len(defaults) == 0 && len(named) == 0 {
		return nil
	}

	defaultIRIs, err := graphIRIs(defaults)
	if err != nil {
		return protocol.Wrap(protocol.KindProtocol, err, InvalidUsingGraph)
	}
	namedIRIs, err := graphIRIs(named)
	if err != nil {
		return protocol.Wrap(protocol.KindProtocol, err, InvalidUsingGraph)
	}

	commands := cs.DatasetCommands()
	for _, cmd := range commands {
		if cmd.HasDatasetClause() {
			return protocol.Errorf(protocol.KindProtocol, "%s", ConflictingUsing)
		}
	}

	for _, cmd := range commands {
		for _, g := range defaultIRIs {
			cmd.AddUsingGraph(g)
		}
		for _, g := range namedIRIs {
			cmd.AddUsingNamedGraph(g)
		}
	}
	return nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
