package rdf

import "fmt"

// Common namespaces.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// Well-known IRIs.
var (
	RDFType       = IRI{Value: RDFNamespace + "type"}
	RDFFirst      = IRI{Value: RDFNamespace + "first"}
	RDFRest       = IRI{Value: RDFNamespace + "rest"}
	RDFNil        = IRI{Value: RDFNamespace + "nil"}
	RDFLangString = IRI{Value: RDFNamespace + "langString"}

	XSDString  = IRI{Value: XSDNamespace + "string"}
	XSDBoolean = IRI{Value: XSDNamespace + "boolean"}
	XSDInteger = IRI{Value: XSDNamespace + "integer"}
	XSDDecimal = IRI{Value: XSDNamespace + "decimal"}
	XSDDouble  = IRI{Value: XSDNamespace + "double"}
)

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// TermIRI represents an IRI term.
	TermIRI TermKind = iota
	// TermBlankNode represents a blank node term.
	TermBlankNode
	// TermLiteral represents a literal term.
	TermLiteral
)

// Term is a value that can appear in RDF statements. All implementations are
// comparable, so terms can be compared with == and used as map keys.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI is an RDF IRI reference.
type IRI struct {
	Value string
}

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

func (i IRI) String() string { return i.Value }

// BlankNode is an RDF blank node, identified by a document-scoped label.
type BlankNode struct {
	ID string
}

// Kind returns TermBlankNode.
func (b BlankNode) Kind() TermKind { return TermBlankNode }

func (b BlankNode) String() string { return "_:" + b.ID }

// Literal is an RDF literal. A literal with neither Lang nor Datatype is a
// simple literal and is treated as xsd:string.
type Literal struct {
	Lexical  string
	Datatype IRI
	Lang     string
}

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

func (l Literal) String() string {
	if l.Lang != "" {
		return fmt.Sprintf("%q@%s", l.Lexical, l.Lang)
	}
	if l.Datatype.Value != "" {
		return fmt.Sprintf("%q^^<%s>", l.Lexical, l.Datatype.Value)
	}
	return fmt.Sprintf("%q", l.Lexical)
}

// EffectiveDatatype returns the datatype of the literal including the implicit
// rdf:langString and xsd:string datatypes.
func (l Literal) EffectiveDatatype() IRI {
	switch {
	case l.Lang != "":
		return RDFLangString
	case l.Datatype.Value == "":
		return XSDString
	default:
		return l.Datatype
	}
}

// NewLiteral returns a simple literal.
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: lexical}
}

// NewTypedLiteral returns a literal with the given datatype. xsd:string is
// normalised to a simple literal.
func NewTypedLiteral(lexical string, datatype IRI) Literal {
	if datatype == XSDString {
		return Literal{Lexical: lexical}
	}
	return Literal{Lexical: lexical, Datatype: datatype}
}

// NewLangLiteral returns a language-tagged literal.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: lexical, Lang: lang}
}

// Triple is an RDF triple.
type Triple struct {
	S Term
	P IRI
	O Term
}

func (t Triple) String() string {
	return FormatTerm(t.S) + " " + FormatTerm(t.P) + " " + FormatTerm(t.O) + " ."
}

// ToQuad places the triple in the given graph; nil is the default graph.
func (t Triple) ToQuad(graph Term) Quad {
	return Quad{S: t.S, P: t.P, O: t.O, G: graph}
}

// Quad is a triple with an optional graph name.
type Quad struct {
	S Term
	P IRI
	O Term
	// G is the graph name, or nil for the default graph.
	G Term
}

// Triple drops the graph name.
func (q Quad) Triple() Triple {
	return Triple{S: q.S, P: q.P, O: q.O}
}

// InDefaultGraph reports whether the quad belongs to the default graph.
func (q Quad) InDefaultGraph() bool {
	return q.G == nil
}
