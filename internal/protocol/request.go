// Package protocol normalises SPARQL Protocol HTTP requests into the
// operation text and dataset parameters the endpoints work with.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Content types defined by the SPARQL 1.1 Protocol.
const (
	ContentTypeForm   = "application/x-www-form-urlencoded"
	ContentTypeQuery  = "application/sparql-query"
	ContentTypeUpdate = "application/sparql-update"
)

// Request is a protocol request reduced to its operation text and graph
// URIs. For updates the graph URIs come from using-graph-uri and
// using-named-graph-uri.
type Request struct {
	Text          string
	DefaultGraphs []string
	NamedGraphs   []string
}

// operation describes the parameter names of one endpoint kind.
type operation struct {
	field        string
	contentType  string
	defaultParam string
	namedParam   string
	missing      string
	allowGet     bool
}

var (
	queryOperation = operation{
		field:        "query",
		contentType:  ContentTypeQuery,
		defaultParam: "default-graph-uri",
		namedParam:   "named-graph-uri",
		missing:      "No SPARQL Query provided",
		allowGet:     true,
	}
	updateOperation = operation{
		field:        "update",
		contentType:  ContentTypeUpdate,
		defaultParam: "using-graph-uri",
		namedParam:   "using-named-graph-uri",
		missing:      "No SPARQL Update provided",
	}
)

// Extractor reads protocol requests.
type Extractor struct {
	maxBodySize int64 // Maximum size for request bodies (in bytes), 0 for none
}

// NewExtractor creates an extractor that accepts bodies of any size.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// NewExtractorWithMaxSize creates an extractor that rejects bodies larger
// than maxBytes. A limit of zero or less disables the check.
func NewExtractorWithMaxSize(maxBytes int64) *Extractor {
	return &Extractor{maxBodySize: maxBytes}
}

var defaultExtractor = NewExtractor()

// ExtractQuery reads a query request without a body limit.
func ExtractQuery(r *http.Request) (*Request, error) {
	return defaultExtractor.Query(r)
}

// ExtractUpdate reads an update request without a body limit.
func ExtractUpdate(r *http.Request) (*Request, error) {
	return defaultExtractor.Update(r)
}

// Query extracts a query request. GET takes the query from the query
// string, POST from a form or an application/sparql-query body.
func (e *Extractor) Query(r *http.Request) (*Request, error) {
	return e.extract(r, queryOperation)
}

// Update extracts an update request from a form or an
// application/sparql-update body.
func (e *Extractor) Update(r *http.Request) (*Request, error) {
	return e.extract(r, updateOperation)
}

func (e *Extractor) extract(r *http.Request, op operation) (*Request, error) {
	var (
		req *Request
		err error
	)

	switch r.Method {
	case http.MethodGet:
		if !op.allowGet {
			return nil, Errorf(KindProtocol, "Invalid request method %s", r.Method)
		}
		req, err = fromQueryString(r.URL.Query(), op)
	case http.MethodPost:
		req, err = e.fromBody(r, op)
	default:
		return nil, Errorf(KindProtocol, "Invalid request method %s", r.Method)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, Errorf(KindProtocol, "%s", op.missing)
	}
	return req, nil
}

func fromQueryString(values url.Values, op operation) (*Request, error) {
	texts := values[op.field]
	switch len(texts) {
	case 0:
		return nil, Errorf(KindProtocol, "%s", op.missing)
	case 1:
	default:
		return nil, Errorf(KindProtocol, "Exactly one '%s' parameter is allowed", op.field)
	}
	return &Request{
		Text:          texts[0],
		DefaultGraphs: values[op.defaultParam],
		NamedGraphs:   values[op.namedParam],
	}, nil
}

func (e *Extractor) fromBody(r *http.Request, op operation) (*Request, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, Errorf(KindProtocol, "Invalid request Content-Type")
	}

	switch mediaType {
	case ContentTypeForm:
		// ParseForm caps unlimited bodies at 10MB, so the form is decoded here.
		text, err := e.readBody(r, "")
		if err != nil {
			return nil, err
		}
		form, err := url.ParseQuery(text)
		if err != nil {
			return nil, Wrap(KindProtocol, err, "Invalid form body")
		}
		texts := form[op.field]
		if len(texts) > 1 {
			return nil, Errorf(KindProtocol, "Exactly one '%s' parameter is allowed", op.field)
		}
		req := &Request{
			DefaultGraphs: form[op.defaultParam],
			NamedGraphs:   form[op.namedParam],
		}
		if len(texts) == 1 {
			req.Text = texts[0]
		}
		return req, nil

	case op.contentType:
		text, err := e.readBody(r, params["charset"])
		if err != nil {
			return nil, err
		}
		values := r.URL.Query()
		return &Request{
			Text:          text,
			DefaultGraphs: values[op.defaultParam],
			NamedGraphs:   values[op.namedParam],
		}, nil
	}

	return nil, Errorf(KindProtocol, "Invalid request Content-Type")
}

// readBody reads the request body, decoding it from charset when one is
// given.
func (e *Extractor) readBody(r *http.Request, charset string) (string, error) {
	rc := r.Body
	if rc == nil {
		rc = http.NoBody
	}
	if e.maxBodySize > 0 {
		rc = http.MaxBytesReader(nil, rc, e.maxBodySize)
	}
	var body io.Reader = rc
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", Wrap(KindProtocol, err, fmt.Sprintf("Unsupported charset '%s'", charset))
		}
		body = enc.NewDecoder().Reader(body)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", Wrap(KindProtocol, err, "Request body too large")
		}
		return "", Wrap(KindProtocol, err, "Failed to read request body")
	}
	return string(data), nil
}
