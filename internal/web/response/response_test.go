package response

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/conduit-lang/sparqld/internal/mediatype"
	"github.com/conduit-lang/sparqld/internal/protocol"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/results"
)

func negotiate(t *testing.T, accept string, filter mediatype.Filter) mediatype.Match {
	t.Helper()
	match, ok := mediatype.DefaultCatalog().Select(mediatype.ParseAccept(accept), filter)
	require.True(t, ok)
	return match
}

func names() *results.ResultSet {
	return &results.ResultSet{
		Variables: []string{"name"},
		Rows:      []results.Row{{"name": rdf.NewLiteral("café")}},
	}
}

func TestSerializeResults(t *testing.T) {
	w := httptest.NewRecorder()
	err := Serialize(w, negotiate(t, "text/csv", mediatype.ForResults), names())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "name\r\ncafé\r\n", w.Body.String())
}

func TestSerializeWildcardUsesCanonicalType(t *testing.T) {
	w := httptest.NewRecorder()
	g := rdf.NewGraph(rdf.Triple{S: rdf.IRI{Value: "urn:s"}, P: rdf.IRI{Value: "urn:p"}, O: rdf.IRI{Value: "urn:o"}})

	require.NoError(t, Serialize(w, negotiate(t, "*/*", mediatype.ForGraphs), g))
	assert.Equal(t, "application/n-triples", w.Header().Get("Content-Type"))
	assert.Equal(t, "<urn:s> <urn:p> <urn:o> .\n", w.Body.String())
}

func TestSerializeCharset(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		contentType string
		body        string
	}{
		{"latin1", "text/csv;charset=ISO-8859-1", "text/csv; charset=iso-8859-1", "name\r\ncaf\xe9\r\n"},
		{"utf8", "text/csv;charset=UTF-8", "text/csv; charset=utf-8", "name\r\ncafé\r\n"},
		{"unknown", "text/csv;charset=x-unknown", "text/csv", "name\r\ncafé\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, Serialize(w, negotiate(t, tt.accept, mediatype.ForResults), names()))
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

// decodeXML collects the character data of an XML body, honouring its
// declared encoding.
func decodeXML(t *testing.T, body []byte) string {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var text strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return text.String()
		}
		require.NoError(t, err)
		if data, ok := tok.(xml.CharData); ok {
			text.Write(bytes.TrimSpace(data))
		}
	}
}

func TestSerializeXMLDeclaresCharset(t *testing.T) {
	w := httptest.NewRecorder()
	match := negotiate(t, "application/sparql-results+xml;charset=iso-8859-1", mediatype.ForResults)
	require.NoError(t, Serialize(w, match, names()))

	assert.Equal(t, "application/sparql-results+xml; charset=iso-8859-1", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), `<?xml version="1.0" encoding="iso-8859-1"?>`))
	assert.Contains(t, w.Body.String(), "caf\xe9")
	assert.Equal(t, "café", decodeXML(t, w.Body.Bytes()))

	w = httptest.NewRecorder()
	g := rdf.NewGraph(rdf.Triple{S: rdf.IRI{Value: "http://example.org/s"}, P: rdf.IRI{Value: "http://example.org/name"}, O: rdf.NewLiteral("café")})
	require.NoError(t, Serialize(w, negotiate(t, "application/rdf+xml;charset=iso-8859-1", mediatype.ForGraphs), g))
	assert.Equal(t, "application/rdf+xml; charset=iso-8859-1", w.Header().Get("Content-Type"))
	assert.Equal(t, "café", decodeXML(t, w.Body.Bytes()))
}

func TestSerializeUnrepresentableFallsBackToUTF8(t *testing.T) {
	rs := &results.ResultSet{
		Variables: []string{"name"},
		Rows:      []results.Row{{"name": rdf.NewLiteral("日本")}},
	}

	tests := []struct {
		name        string
		accept      string
		contentType string
	}{
		{"csv", "text/csv;charset=iso-8859-1", "text/csv"},
		{"xml", "application/sparql-results+xml;charset=iso-8859-1", "application/sparql-results+xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, Serialize(w, negotiate(t, tt.accept, mediatype.ForResults), rs))
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), "日本")
		})
	}

	w := httptest.NewRecorder()
	require.NoError(t, Serialize(w, negotiate(t, "application/sparql-results+xml;charset=iso-8859-1", mediatype.ForResults), rs))
	assert.True(t, strings.HasPrefix(w.Body.String(), xml.Header))
	assert.Equal(t, "日本", decodeXML(t, w.Body.Bytes()))
}

func TestSerializeMismatchWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()
	match := negotiate(t, "text/turtle", mediatype.ForGraphs)

	err := Serialize(w, match, names())
	assert.Error(t, err)
	assert.Empty(t, w.Header().Get("Content-Type"))
	assert.Zero(t, w.Body.Len())

	err = Serialize(w, match, "not a result")
	assert.EqualError(t, err, "unsupported result type string")
}

func TestRenderErr(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"protocol", protocol.Errorf(protocol.KindTimeout, "SPARQL Update timed out"), http.StatusGatewayTimeout, "SPARQL Update timed out"},
		{"http", NewHTTPError(http.StatusNotFound, "no route %s", "/x"), http.StatusNotFound, "no route /x"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RenderErr(w, tt.err)
			if w.Code != tt.status {
				t.Errorf("status code = %v, want %v", w.Code, tt.status)
			}
			assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestRenderMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	RenderMethodNotAllowed(w, []string{"GET", "POST"})

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}
