package rdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	ld "github.com/piprate/json-gold/ld"
)

// WriteJSONLD writes the graph as expanded JSON-LD.
func WriteJSONLD(w io.Writer, g *Graph) error {
	if g.Len() == 0 {
		_, err := io.WriteString(w, "[]\n")
		return err
	}

	var nquads bytes.Buffer
	if err := WriteNTriples(&nquads, g); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	doc, err := proc.FromRDF(nquads.String(), opts)
	if err != nil {
		return fmt.Errorf("jsonld: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
