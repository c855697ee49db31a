package rdf

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// DefaultPrefixes are the prefixes the Turtle writer abbreviates when a graph
// uses them.
var DefaultPrefixes = map[string]string{
	"rdf":  RDFNamespace,
	"rdfs": RDFSNamespace,
	"xsd":  XSDNamespace,
	"owl":  "http://www.w3.org/2002/07/owl#",
	"foaf": "http://xmlns.com/foaf/0.1/",
	"dc":   "http://purl.org/dc/elements/1.1/",
}

// WriteTurtle writes the graph as Turtle, grouping statements by subject and
// predicate.
func WriteTurtle(w io.Writer, g *Graph) error {
	return WriteTurtleWithPrefixes(w, g, DefaultPrefixes)
}

// WriteTurtleWithPrefixes writes the graph as Turtle using the given prefix
// map. Only prefixes that abbreviate at least one IRI are declared.
func WriteTurtleWithPrefixes(w io.Writer, g *Graph, prefixes map[string]string) error {
	bw := bufio.NewWriter(w)
	triples := g.Triples()

	used := make(map[string]bool)
	for _, t := range triples {
		for _, term := range []Term{t.S, t.P, t.O} {
			if prefix, _, ok := compactIRI(term, prefixes); ok {
				used[prefix] = true
			}
			if lit, ok := term.(Literal); ok && lit.Datatype.Value != "" {
				if prefix, _, ok := compactIRI(lit.Datatype, prefixes); ok {
					used[prefix] = true
				}
			}
		}
	}
	names := make([]string, 0, len(used))
	for prefix := range used {
		names = append(names, prefix)
	}
	sort.Strings(names)
	for _, prefix := range names {
		if _, err := bw.WriteString("@prefix " + prefix + ": <" + prefixes[prefix] + "> .\n"); err != nil {
			return err
		}
	}
	if len(names) > 0 {
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}

	// Subjects in first-seen order, predicates likewise within a subject.
	var subjects []Term
	bySubject := make(map[Term][]Triple)
	for _, t := range triples {
		if _, ok := bySubject[t.S]; !ok {
			subjects = append(subjects, t.S)
		}
		bySubject[t.S] = append(bySubject[t.S], t)
	}

	for _, s := range subjects {
		var b strings.Builder
		b.WriteString(turtleTerm(s, prefixes))
		group := bySubject[s]
		var lastPredicate IRI
		for i, t := range group {
			switch {
			case i == 0:
				b.WriteString(" " + turtlePredicate(t.P, prefixes) + " ")
			case t.P == lastPredicate:
				b.WriteString(", ")
			default:
				b.WriteString(" ;\n    " + turtlePredicate(t.P, prefixes) + " ")
			}
			lastPredicate = t.P
			b.WriteString(turtleTerm(t.O, prefixes))
		}
		b.WriteString(" .\n")
		if _, err := bw.WriteString(b.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func turtlePredicate(p IRI, prefixes map[string]string) string {
	if p == RDFType {
		return "a"
	}
	return turtleTerm(p, prefixes)
}

func turtleTerm(term Term, prefixes map[string]string) string {
	switch value := term.(type) {
	case IRI:
		if prefix, local, ok := compactIRI(value, prefixes); ok {
			return prefix + ":" + local
		}
	case Literal:
		if value.Lang == "" && value.Datatype.Value != "" && value.Datatype != XSDString {
			quoted := `"` + EscapeString(value.Lexical) + `"^^`
			if prefix, local, ok := compactIRI(value.Datatype, prefixes); ok {
				return quoted + prefix + ":" + local
			}
			return quoted + FormatTerm(value.Datatype)
		}
	}
	return FormatTerm(term)
}

// compactIRI finds the longest namespace in prefixes that term starts with and
// whose remainder is a safe local name.
func compactIRI(term Term, prefixes map[string]string) (string, string, bool) {
	iri, ok := term.(IRI)
	if !ok {
		return "", "", false
	}
	bestPrefix, bestNS := "", ""
	for prefix, ns := range prefixes {
		if strings.HasPrefix(iri.Value, ns) && len(ns) > len(bestNS) {
			bestPrefix, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return "", "", false
	}
	local := iri.Value[len(bestNS):]
	if !isSafeLocalName(local) {
		return "", "", false
	}
	return bestPrefix, local, true
}

func isSafeLocalName(local string) bool {
	if local == "" {
		return false
	}
	for i, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case i > 0 && ((r >= '0' && r <= '9') || r == '-'):
		default:
			return false
		}
	}
	return true
}
