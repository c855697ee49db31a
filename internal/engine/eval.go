package engine

import (
	"context"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
)

// Binding maps variable names to terms.
type Binding map[string]rdf.Term

func (b Binding) extend(name string, value rdf.Term) Binding {
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	out[name] = value
	return out
}

// resolve substitutes a bound variable; it returns nil for unbound ones.
func (b Binding) resolve(t ast.Term) rdf.Term {
	if t.IsVar() {
		return b[t.Var]
	}
	return t.Value
}

// evaluator walks group patterns. Each element is evaluated with the
// solutions so far as seeds, so nested patterns see outer bindings.
type evaluator struct {
	ctx context.Context
	ds  *dataset
}

func (e *evaluator) group(g *ast.GroupPattern, active rdf.Term, seeds []Binding) ([]Binding, error) {
	if g == nil {
		return seeds, nil
	}

	sols := seeds
	var filters []ast.Expression
	for _, element := range g.Elements {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch node := element.(type) {
		case *ast.BasicPattern:
			sols, err = e.flatMap(sols, func(mu Binding) ([]Binding, error) {
				return e.basic(node.Triples, active, mu)
			})
		case *ast.GroupPattern:
			sols, err = e.group(node, active, sols)
		case *ast.OptionalPattern:
			sols, err = e.flatMap(sols, func(mu Binding) ([]Binding, error) {
				extended, err := e.group(node.Pattern, active, []Binding{mu})
				if err != nil || len(extended) > 0 {
					return extended, err
				}
				return []Binding{mu}, nil
			})
		case *ast.UnionPattern:
			sols, err = e.flatMap(sols, func(mu Binding) ([]Binding, error) {
				var out []Binding
				for _, alt := range node.Alternatives {
					r, err := e.group(alt, active, []Binding{mu})
					if err != nil {
						return nil, err
					}
					out = append(out, r...)
				}
				return out, nil
			})
		case *ast.GraphPattern:
			sols, err = e.flatMap(sols, func(mu Binding) ([]Binding, error) {
				return e.graph(node, mu)
			})
		case *ast.FilterPattern:
			filters = append(filters, node.Expr)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(filters) == 0 {
		return sols, nil
	}
	var kept []Binding
	for _, mu := range sols {
		if passes(filters, mu) {
			kept = append(kept, mu)
		}
	}
	return kept, nil
}

func passes(filters []ast.Expression, mu Binding) bool {
	for _, f := range filters {
		ok, err := effectiveBoolean(f, mu)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (e *evaluator) flatMap(sols []Binding, fn func(Binding) ([]Binding, error)) ([]Binding, error) {
	var out []Binding
	for _, mu := range sols {
		r, err := fn(mu)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

func (e *evaluator) graph(node *ast.GraphPattern, mu Binding) ([]Binding, error) {
	if name := mu.resolve(node.Name); name != nil {
		ok, err := e.ds.hasNamedGraph(e.ctx, name)
		if err != nil || !ok {
			return nil, err
		}
		return e.group(node.Pattern, name, []Binding{mu})
	}

	graphs, err := e.ds.namedGraphs(e.ctx)
	if err != nil {
		return nil, err
	}
	var out []Binding
	for _, g := range graphs {
		r, err := e.group(node.Pattern, g, []Binding{mu.extend(node.Name.Var, g)})
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// basic evaluates a block of triple patterns by substitution, one pattern at
// a time.
func (e *evaluator) basic(triples []ast.TriplePattern, active rdf.Term, mu Binding) ([]Binding, error) {
	if len(triples) == 0 {
		return []Binding{mu}, nil
	}
	tp := triples[0]

	s, p, o := mu.resolve(tp.S), mu.resolve(tp.P), mu.resolve(tp.O)
	if p != nil {
		if _, ok := p.(rdf.IRI); !ok {
			return nil, nil
		}
	}
	matches, err := e.ds.match(e.ctx, active, s, p, o)
	if err != nil {
		return nil, err
	}

	var out []Binding
	for _, t := range matches {
		next, ok := bindTriple(tp, t, mu)
		if !ok {
			continue
		}
		r, err := e.basic(triples[1:], active, next)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// bindTriple extends mu with the variables of tp matched against t. It
// fails when a variable repeated within tp would take two values.
func bindTriple(tp ast.TriplePattern, t rdf.Triple, mu Binding) (Binding, bool) {
	next := mu
	copied := false
	for _, pair := range [3]struct {
		pattern ast.Term
		value   rdf.Term
	}{{tp.S, t.S}, {tp.P, t.P}, {tp.O, t.O}} {
		if !pair.pattern.IsVar() {
			continue
		}
		if bound, ok := next[pair.pattern.Var]; ok {
			if bound != pair.value {
				return nil, false
			}
			continue
		}
		if !copied {
			next = next.extend(pair.pattern.Var, pair.value)
			copied = true
		} else {
			next[pair.pattern.Var] = pair.value
		}
	}
	return next, true
}
