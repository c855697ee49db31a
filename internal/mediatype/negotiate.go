package mediatype

import "net/http"

// Filter selects the definitions able to serialize a given result shape.
type Filter func(Definition) bool

// Capability filters.
var (
	ForResults Filter = Definition.CanWriteResults
	ForGraphs  Filter = Definition.CanWriteGraph
)

// Match is a successful negotiation.
type Match struct {
	Definition Definition
	Candidate  Candidate
	// MediaType is the concrete type to announce: the candidate itself when
	// it is concrete, otherwise the first type of the matched definition
	// that the wildcard covers.
	MediaType string
}

// Select walks the candidates in order and returns the first catalog entry
// that matches a candidate and passes the filter. Within one candidate,
// catalog order decides.
func (c *Catalog) Select(candidates []Candidate, filter Filter) (Match, bool) {
	for _, cand := range candidates {
		for _, def := range c.definitions {
			if filter != nil && !filter(def) {
				continue
			}
			for _, t := range def.MIMETypes {
				if cand.Matches(t) {
					return Match{Definition: def, Candidate: cand, MediaType: t}, true
				}
			}
		}
	}
	return Match{}, false
}

// Negotiate selects a definition for the request's Accept header.
func (c *Catalog) Negotiate(r *http.Request, filter Filter) (Match, bool) {
	return c.Select(ParseAccept(r.Header.Get("Accept")), filter)
}
