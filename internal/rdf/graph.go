package rdf

// Graph is an insertion-ordered set of triples. It is not safe for concurrent
// mutation.
type Graph struct {
	triples []Triple
	index   map[Triple]int
}

// NewGraph returns a graph holding the given triples.
func NewGraph(triples ...Triple) *Graph {
	g := &Graph{index: make(map[Triple]int)}
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

// Add inserts the triple and reports whether it was new.
func (g *Graph) Add(t Triple) bool {
	if g.index == nil {
		g.index = make(map[Triple]int)
	}
	if _, ok := g.index[t]; ok {
		return false
	}
	g.index[t] = len(g.triples)
	g.triples = append(g.triples, t)
	return true
}

// Remove deletes the triple and reports whether it was present.
func (g *Graph) Remove(t Triple) bool {
	pos, ok := g.index[t]
	if !ok {
		return false
	}
	delete(g.index, t)
	g.triples = append(g.triples[:pos], g.triples[pos+1:]...)
	for i := pos; i < len(g.triples); i++ {
		g.index[g.triples[i]] = i
	}
	return true
}

// Contains reports whether the triple is in the graph.
func (g *Graph) Contains(t Triple) bool {
	_, ok := g.index[t]
	return ok
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a copy of the triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Match returns the triples matching the pattern. A nil term is a wildcard.
func (g *Graph) Match(s, p, o Term) []Triple {
	var out []Triple
	for _, t := range g.triples {
		if MatchTriple(t, s, p, o) {
			out = append(out, t)
		}
	}
	return out
}

// Objects returns the objects of triples with the given subject and predicate.
func (g *Graph) Objects(s Term, p IRI) []Term {
	var out []Term
	for _, t := range g.Match(s, p, nil) {
		out = append(out, t.O)
	}
	return out
}

// Object returns the first object for subject and predicate.
func (g *Graph) Object(s Term, p IRI) (Term, bool) {
	for _, t := range g.triples {
		if t.S == s && t.P == p {
			return t.O, true
		}
	}
	return nil, false
}

// Subjects returns the distinct subjects of triples with the given predicate
// and object, in first-seen order.
func (g *Graph) Subjects(p IRI, o Term) []Term {
	var out []Term
	seen := make(map[Term]bool)
	for _, t := range g.Match(nil, p, o) {
		if !seen[t.S] {
			seen[t.S] = true
			out = append(out, t.S)
		}
	}
	return out
}

// MatchTriple reports whether t matches the pattern; nil terms match anything.
func MatchTriple(t Triple, s, p, o Term) bool {
	if s != nil && t.S != s {
		return false
	}
	if p != nil && Term(t.P) != p {
		return false
	}
	if o != nil && t.O != o {
		return false
	}
	return true
}
