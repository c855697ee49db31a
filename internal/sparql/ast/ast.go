// Package ast defines the syntax tree of SPARQL queries and updates.
package ast

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

// AnonymousPrefix marks variables that stand for blank nodes in patterns.
// They never appear in results.
const AnonymousPrefix = "_:"

// Term is a position in a triple pattern: either a variable or a constant
// RDF term. The zero Term is unset.
type Term struct {
	Var   string
	Value rdf.Term
}

// Variable returns a variable term.
func Variable(name string) Term {
	return Term{Var: name}
}

// Constant returns a constant term.
func Constant(value rdf.Term) Term {
	return Term{Value: value}
}

// IsVar reports whether the term is a variable.
func (t Term) IsVar() bool { return t.Var != "" }

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool { return t.Var == "" && t.Value == nil }

func (t Term) String() string {
	if t.IsVar() {
		return "?" + t.Var
	}
	if t.Value == nil {
		return ""
	}
	return rdf.FormatTerm(t.Value)
}

// TriplePattern is a triple whose positions may be variables.
type TriplePattern struct {
	S, P, O Term
}

func (tp TriplePattern) String() string {
	return tp.S.String() + " " + tp.P.String() + " " + tp.O.String() + " ."
}

// Variables returns the variables in the pattern in S, P, O order.
func (tp TriplePattern) Variables() []string {
	var vars []string
	for _, t := range []Term{tp.S, tp.P, tp.O} {
		if t.IsVar() {
			vars = append(vars, t.Var)
		}
	}
	return vars
}

// QuadPattern is a triple pattern inside an optional GRAPH block. A zero
// Graph means the default graph.
type QuadPattern struct {
	TriplePattern
	Graph Term
}

// Pattern is an element of a group graph pattern.
type Pattern interface {
	patternNode()
}

// GroupPattern is a { ... } block. Elements are evaluated left to right.
type GroupPattern struct {
	Elements []Pattern
}

// BasicPattern is a block of triple patterns.
type BasicPattern struct {
	Triples []TriplePattern
}

// OptionalPattern is OPTIONAL { ... }.
type OptionalPattern struct {
	Pattern *GroupPattern
}

// UnionPattern is { ... } UNION { ... } [UNION ...].
type UnionPattern struct {
	Alternatives []*GroupPattern
}

// GraphPattern is GRAPH <iri>|?var { ... }.
type GraphPattern struct {
	Name    Term
	Pattern *GroupPattern
}

// FilterPattern is FILTER (expr). It constrains the whole enclosing group.
type FilterPattern struct {
	Expr Expression
}

func (*GroupPattern) patternNode()    {}
func (*BasicPattern) patternNode()    {}
func (*OptionalPattern) patternNode() {}
func (*UnionPattern) patternNode()    {}
func (*GraphPattern) patternNode()    {}
func (*FilterPattern) patternNode()   {}

// Expression is a FILTER or ORDER BY expression.
type Expression interface {
	exprNode()
}

// TermExpr is a variable or constant operand.
type TermExpr struct {
	Term Term
}

// UnaryExpr is !x, -x or +x.
type UnaryExpr struct {
	Op      string
	Operand Expression
}

// BinaryExpr is a logical, relational or arithmetic operation.
type BinaryExpr struct {
	Op          string
	Left, Right Expression
}

// CallExpr is a built-in function call. Name is upper case.
type CallExpr struct {
	Name string
	Args []Expression
}

func (*TermExpr) exprNode()   {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr       Expression
	Descending bool
}

// QueryForm is the kind of a query.
type QueryForm int

const (
	// FormSelect is SELECT.
	FormSelect QueryForm = iota
	// FormConstruct is CONSTRUCT.
	FormConstruct
	// FormAsk is ASK.
	FormAsk
	// FormDescribe is DESCRIBE.
	FormDescribe
)

func (f QueryForm) String() string {
	switch f {
	case FormSelect:
		return "SELECT"
	case FormConstruct:
		return "CONSTRUCT"
	case FormAsk:
		return "ASK"
	case FormDescribe:
		return "DESCRIBE"
	default:
		return fmt.Sprintf("QueryForm(%d)", int(f))
	}
}

// Prologue holds the BASE and PREFIX declarations.
type Prologue struct {
	Base     string
	Prefixes map[string]string
}

// Query is a parsed SPARQL query.
type Query struct {
	Prologue
	Form QueryForm

	Distinct  bool
	Reduced   bool
	Star      bool
	Variables []string

	// Template is the CONSTRUCT template.
	Template []TriplePattern
	// Describe lists the DESCRIBE targets.
	Describe []Term

	// DefaultGraphs and NamedGraphs are the FROM and FROM NAMED clauses.
	DefaultGraphs []rdf.IRI
	NamedGraphs   []rdf.IRI

	Where   *GroupPattern
	OrderBy []OrderCondition
	// Limit is -1 when absent.
	Limit  int
	Offset int
}

// ProjectedVariables returns the variables a SELECT exposes: the listed
// ones, or for SELECT * every variable of the WHERE clause in order of
// appearance.
func (q *Query) ProjectedVariables() []string {
	if !q.Star {
		return q.Variables
	}
	return PatternVariables(q.Where)
}

// PatternVariables lists the variables bound by a pattern in order of first
// appearance.
func PatternVariables(p Pattern) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Pattern)
	add := func(name string) {
		if strings.HasPrefix(name, AnonymousPrefix) || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	walk = func(p Pattern) {
		switch node := p.(type) {
		case *GroupPattern:
			if node == nil {
				return
			}
			for _, e := range node.Elements {
				walk(e)
			}
		case *BasicPattern:
			for _, tp := range node.Triples {
				for _, v := range tp.Variables() {
					add(v)
				}
			}
		case *OptionalPattern:
			walk(node.Pattern)
		case *UnionPattern:
			for _, alt := range node.Alternatives {
				walk(alt)
			}
		case *GraphPattern:
			if node.Name.IsVar() {
				add(node.Name.Var)
			}
			walk(node.Pattern)
		}
	}
	walk(p)
	return out
}

// String renders the query header for logging.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(q.Form.String())
	for _, g := range q.DefaultGraphs {
		b.WriteString(" FROM <" + g.Value + ">")
	}
	for _, g := range q.NamedGraphs {
		b.WriteString(" FROM NAMED <" + g.Value + ">")
	}
	return b.String()
}
