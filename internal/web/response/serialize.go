// Package response writes SPARQL results, RDF graphs and plain text errors.
package response

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/conduit-lang/sparqld/internal/mediatype"
	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/results"
)

// Serialize writes result in the negotiated format with a 200 status.
// The body is rendered before any header is sent, so a failing writer
// leaves w untouched and the caller can still report an error.
func Serialize(w http.ResponseWriter, match mediatype.Match, result any) error {
	charset, enc := responseEncoding(match.Candidate.Charset)

	var buf bytes.Buffer
	if err := write(&buf, match.Definition, result); err != nil {
		return err
	}
	body := buf.Bytes()
	if enc != nil {
		// A body the charset cannot represent is sent as unannounced UTF-8.
		encoded, err := enc.NewEncoder().Bytes(declareEncoding(body, charset))
		if err != nil {
			charset = ""
		} else {
			body = encoded
		}
	}

	contentType := match.MediaType
	if charset != "" {
		contentType += "; charset=" + charset
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(body)
	return err
}

func write(w io.Writer, def mediatype.Definition, result any) error {
	switch v := result.(type) {
	case *results.ResultSet:
		if !def.CanWriteResults() {
			return fmt.Errorf("%s cannot serialize SPARQL results", def.Name)
		}
		return def.Results(w, v)
	case *rdf.Graph:
		if !def.CanWriteGraph() {
			return fmt.Errorf("%s cannot serialize RDF graphs", def.Name)
		}
		return def.Graph(w, v)
	}
	return fmt.Errorf("unsupported result type %T", result)
}

// declareEncoding rewrites the encoding of an XML declaration at the start
// of body. Other bodies are returned unchanged.
func declareEncoding(body []byte, charset string) []byte {
	if !bytes.HasPrefix(body, []byte("<?xml")) {
		return body
	}
	end := bytes.Index(body, []byte("?>"))
	if end < 0 {
		return body
	}
	decl := xmlEncodingAttr.ReplaceAll(body[:end], []byte(`encoding="`+charset+`"`))
	out := make([]byte, 0, len(body)+len(charset))
	out = append(out, decl...)
	return append(out, body[end:]...)
}

var xmlEncodingAttr = regexp.MustCompile(`encoding=["'][^"']*["']`)

// responseEncoding resolves an Accept charset. It returns the charset to
// announce and the encoder to use; an unknown charset falls back to
// unannounced UTF-8, and UTF-8 itself needs no encoder.
func responseEncoding(charset string) (string, encoding.Encoding) {
	if charset == "" {
		return "", nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", nil
	}
	name := strings.ToLower(charset)
	if enc == unicode.UTF8 {
		return name, nil
	}
	return name, enc
}
