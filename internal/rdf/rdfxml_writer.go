package rdf

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteRDFXML writes the graph as RDF/XML. Each predicate IRI must split into
// a namespace and an XML local name.
func WriteRDFXML(w io.Writer, g *Graph) error {
	triples := g.Triples()

	nsToPrefix := map[string]string{RDFNamespace: "rdf"}
	for prefix, ns := range DefaultPrefixes {
		nsToPrefix[ns] = prefix
	}
	used := map[string]string{"rdf": RDFNamespace}
	auto := 0
	for _, t := range triples {
		ns, _, ok := splitQName(t.P.Value)
		if !ok {
			return fmt.Errorf("rdfxml: unable to abbreviate predicate IRI %q", t.P.Value)
		}
		prefix, known := nsToPrefix[ns]
		if !known {
			prefix = fmt.Sprintf("ns%d", auto)
			auto++
			nsToPrefix[ns] = prefix
		}
		used[prefix] = ns
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	prefixes := make([]string, 0, len(used))
	for prefix := range used {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	bw.WriteString("<rdf:RDF")
	for _, prefix := range prefixes {
		fmt.Fprintf(bw, "\n    xmlns:%s=\"%s\"", prefix, escapeXML(used[prefix]))
	}
	bw.WriteString(">\n")

	var subjects []Term
	bySubject := make(map[Term][]Triple)
	for _, t := range triples {
		if _, ok := bySubject[t.S]; !ok {
			subjects = append(subjects, t.S)
		}
		bySubject[t.S] = append(bySubject[t.S], t)
	}

	for _, s := range subjects {
		switch subject := s.(type) {
		case IRI:
			fmt.Fprintf(bw, "  <rdf:Description rdf:about=\"%s\">\n", escapeXML(subject.Value))
		case BlankNode:
			fmt.Fprintf(bw, "  <rdf:Description rdf:nodeID=\"%s\">\n", escapeXML(subject.ID))
		default:
			return fmt.Errorf("rdfxml: unsupported subject %v", s)
		}
		for _, t := range bySubject[s] {
			ns, local, _ := splitQName(t.P.Value)
			name := nsToPrefix[ns] + ":" + local
			switch object := t.O.(type) {
			case IRI:
				fmt.Fprintf(bw, "    <%s rdf:resource=\"%s\"/>\n", name, escapeXML(object.Value))
			case BlankNode:
				fmt.Fprintf(bw, "    <%s rdf:nodeID=\"%s\"/>\n", name, escapeXML(object.ID))
			case Literal:
				attrs := ""
				if object.Lang != "" {
					attrs = fmt.Sprintf(" xml:lang=\"%s\"", escapeXML(object.Lang))
				} else if object.Datatype.Value != "" && object.Datatype != XSDString {
					attrs = fmt.Sprintf(" rdf:datatype=\"%s\"", escapeXML(object.Datatype.Value))
				}
				fmt.Fprintf(bw, "    <%s%s>%s</%s>\n", name, attrs, escapeXML(object.Lexical), name)
			}
		}
		bw.WriteString("  </rdf:Description>\n")
	}
	bw.WriteString("</rdf:RDF>\n")
	return bw.Flush()
}

// splitQName splits an IRI after its last '#', '/' or ':' such that the local
// part is a valid XML name.
func splitQName(iri string) (string, string, bool) {
	idx := strings.LastIndexAny(iri, "#/:")
	if idx < 0 || idx == len(iri)-1 {
		return "", "", false
	}
	ns, local := iri[:idx+1], iri[idx+1:]
	first := local[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z') || first == '_') {
		return "", "", false
	}
	for _, r := range local {
		if !(r == '_' || r == '-' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", "", false
		}
	}
	return ns, local, true
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
		`'`, "&apos;",
	)
	return replacer.Replace(value)
}
