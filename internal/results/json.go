package results

import (
	"encoding/json"
	"io"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

type jsonDocument struct {
	Head    jsonHead     `json:"head"`
	Results *jsonResults `json:"results,omitempty"`
	Boolean *bool        `json:"boolean,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars"`
}

type jsonResults struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// WriteJSON writes the result set in the SPARQL 1.1 Query Results JSON Format.
func WriteJSON(w io.Writer, rs *ResultSet) error {
	doc := jsonDocument{Head: jsonHead{Vars: rs.Variables}}
	if doc.Head.Vars == nil {
		doc.Head.Vars = []string{}
	}
	if rs.IsBoolean() {
		doc.Boolean = rs.Boolean
	} else {
		doc.Results = &jsonResults{Bindings: make([]map[string]jsonTerm, 0, len(rs.Rows))}
		for _, row := range rs.Rows {
			binding := make(map[string]jsonTerm, len(row))
			for _, v := range rs.Variables {
				if term, ok := row[v]; ok && term != nil {
					binding[v] = toJSONTerm(term)
				}
			}
			doc.Results.Bindings = append(doc.Results.Bindings, binding)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

func toJSONTerm(term rdf.Term) jsonTerm {
	switch value := term.(type) {
	case rdf.IRI:
		return jsonTerm{Type: "uri", Value: value.Value}
	case rdf.BlankNode:
		return jsonTerm{Type: "bnode", Value: value.ID}
	case rdf.Literal:
		out := jsonTerm{Type: "literal", Value: value.Lexical, Lang: value.Lang}
		if value.Lang == "" && value.Datatype != rdf.XSDString {
			out.Datatype = value.Datatype.Value
		}
		return out
	}
	return jsonTerm{}
}
