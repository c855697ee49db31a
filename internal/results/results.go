// Package results holds SPARQL query solutions and their serializations.
package results

import "github.com/conduit-lang/sparqld/internal/rdf"

// Row is one solution: a binding from variable name to term. Unbound
// variables are absent from the map.
type Row map[string]rdf.Term

// ResultSet is the outcome of a SELECT or ASK query. Boolean is set for ASK
// results only.
type ResultSet struct {
	Variables []string
	Rows      []Row
	Boolean   *bool
}

// NewBoolean returns an ASK result.
func NewBoolean(value bool) *ResultSet {
	return &ResultSet{Boolean: &value}
}

// IsBoolean reports whether the set is an ASK result.
func (rs *ResultSet) IsBoolean() bool {
	return rs.Boolean != nil
}

// Len returns the number of solutions.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}
