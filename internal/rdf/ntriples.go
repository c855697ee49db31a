package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FormatTerm renders a term in N-Triples syntax. A nil term renders as "".
func FormatTerm(term Term) string {
	switch value := term.(type) {
	case IRI:
		return "<" + escapeIRI(value.Value) + ">"
	case BlankNode:
		return "_:" + value.ID
	case Literal:
		quoted := `"` + EscapeString(value.Lexical) + `"`
		if value.Lang != "" {
			return quoted + "@" + value.Lang
		}
		if value.Datatype.Value != "" && value.Datatype != XSDString {
			return quoted + "^^<" + escapeIRI(value.Datatype.Value) + ">"
		}
		return quoted
	default:
		return ""
	}
}

// ParseTerm parses a single N-Triples term as produced by FormatTerm.
func ParseTerm(s string) (Term, error) {
	p := newTurtleParser(strings.TrimSpace(s), "")
	p.ntriples = true
	term, err := p.readObject()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected trailing input in term %q", s)
	}
	return term, nil
}

// EscapeString escapes a lexical form for use inside a double-quoted
// N-Triples or Turtle string.
func EscapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func escapeIRI(s string) string {
	if !strings.ContainsAny(s, "<>\"{}|^`\\ \n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&b, `\u%04X`, r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WriteNTriples writes the graph as N-Triples, one statement per line.
func WriteNTriples(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.Triples() {
		if _, err := bw.WriteString(t.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadNTriples parses an N-Triples document.
func ReadNTriples(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := newTurtleParser(string(data), "")
	p.ntriples = true
	return p.parseDocument()
}
