// Package mediatype holds the catalog of response formats and the Accept
// header negotiation over it.
package mediatype

import (
	"io"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/results"
)

// ResultsWriter serializes a SPARQL result set.
type ResultsWriter func(w io.Writer, rs *results.ResultSet) error

// GraphWriter serializes an RDF graph.
type GraphWriter func(w io.Writer, g *rdf.Graph) error

// Definition describes one response format. The first MIME type is the
// canonical one.
type Definition struct {
	Name       string
	MIMETypes  []string
	Extensions []string

	Results ResultsWriter
	Graph   GraphWriter
}

// CanWriteResults reports whether the format serializes result sets.
func (d Definition) CanWriteResults() bool { return d.Results != nil }

// CanWriteGraph reports whether the format serializes graphs.
func (d Definition) CanWriteGraph() bool { return d.Graph != nil }

// CanonicalType returns the preferred MIME type of the format.
func (d Definition) CanonicalType() string {
	if len(d.MIMETypes) == 0 {
		return ""
	}
	return d.MIMETypes[0]
}

// HasType reports whether the format declares the given MIME type.
func (d Definition) HasType(mimeType string) bool {
	for _, t := range d.MIMETypes {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

// Catalog is an ordered, read-only list of definitions. Catalog order breaks
// ties when a wildcard Accept entry matches several formats.
type Catalog struct {
	definitions []Definition
}

// NewCatalog returns a catalog holding the given definitions in order.
func NewCatalog(definitions ...Definition) *Catalog {
	defs := make([]Definition, len(definitions))
	copy(defs, definitions)
	return &Catalog{definitions: defs}
}

// Definitions returns the definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Lookup returns the definition declaring mimeType.
func (c *Catalog) Lookup(mimeType string) (Definition, bool) {
	for _, def := range c.definitions {
		if def.HasType(mimeType) {
			return def, true
		}
	}
	return Definition{}, false
}

// Default formats.
var (
	NTriples = Definition{
		Name:       "N-Triples",
		MIMETypes:  []string{"application/n-triples", "text/plain"},
		Extensions: []string{".nt"},
		Graph:      rdf.WriteNTriples,
	}
	Turtle = Definition{
		Name:       "Turtle",
		MIMETypes:  []string{"text/turtle", "application/x-turtle"},
		Extensions: []string{".ttl"},
		Graph:      rdf.WriteTurtle,
	}
	RDFXML = Definition{
		Name:       "RDF/XML",
		MIMETypes:  []string{"application/rdf+xml", "application/xml", "text/xml"},
		Extensions: []string{".rdf"},
		Graph:      rdf.WriteRDFXML,
	}
	JSONLD = Definition{
		Name:       "JSON-LD",
		MIMETypes:  []string{"application/ld+json", "application/json"},
		Extensions: []string{".jsonld"},
		Graph:      rdf.WriteJSONLD,
	}
	SPARQLResultsXML = Definition{
		Name:       "SPARQL Results XML",
		MIMETypes:  []string{"application/sparql-results+xml", "application/xml", "text/xml"},
		Extensions: []string{".srx"},
		Results:    results.WriteXML,
	}
	SPARQLResultsJSON = Definition{
		Name:       "SPARQL Results JSON",
		MIMETypes:  []string{"application/sparql-results+json", "application/json"},
		Extensions: []string{".srj"},
		Results:    results.WriteJSON,
	}
	SPARQLResultsCSV = Definition{
		Name:       "SPARQL Results CSV",
		MIMETypes:  []string{"text/csv"},
		Extensions: []string{".csv"},
		Results:    results.WriteCSV,
	}
	SPARQLResultsTSV = Definition{
		Name:       "SPARQL Results TSV",
		MIMETypes:  []string{"text/tab-separated-values"},
		Extensions: []string{".tsv"},
		Results:    results.WriteTSV,
	}
)

// DefaultCatalog returns the built-in formats.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		NTriples,
		Turtle,
		RDFXML,
		JSONLD,
		SPARQLResultsXML,
		SPARQLResultsJSON,
		SPARQLResultsCSV,
		SPARQLResultsTSV,
	)
}
