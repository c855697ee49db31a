package parser

import (
	"strconv"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/sparql/lexer"
)

// Query parses a complete SPARQL query.
func (p *Parser) Query() (q *ast.Query, err error) {
	defer recoverBailout(&err)

	p.parsePrologue()
	q = &ast.Query{Limit: -1}

	tok := p.peek()
	switch {
	case p.match(lexer.TOKEN_SELECT):
		q.Form = ast.FormSelect
		p.parseSelectClause(q)
	case p.match(lexer.TOKEN_CONSTRUCT):
		q.Form = ast.FormConstruct
		if p.check(lexer.TOKEN_LBRACE) {
			q.Template = p.parseTemplate()
		}
	case p.match(lexer.TOKEN_ASK):
		q.Form = ast.FormAsk
	case p.match(lexer.TOKEN_DESCRIBE):
		q.Form = ast.FormDescribe
		p.parseDescribeTargets(q)
	default:
		p.fail(tok, "Expected SELECT, CONSTRUCT, ASK or DESCRIBE")
	}

	p.parseDatasetClauses(q)

	switch {
	case q.Form == ast.FormConstruct && q.Template == nil:
		// CONSTRUCT WHERE { triples }
		p.consume(lexer.TOKEN_WHERE, "Expected WHERE or template after CONSTRUCT")
		p.consume(lexer.TOKEN_LBRACE, "Expected '{' after WHERE")
		p.template = true
		q.Template = p.parseTriplesBlock()
		p.template = false
		p.consume(lexer.TOKEN_RBRACE, "Expected '}' after CONSTRUCT WHERE triples")
		q.Where = &ast.GroupPattern{Elements: []ast.Pattern{&ast.BasicPattern{Triples: templateToPattern(q.Template)}}}
	case q.Form == ast.FormDescribe && !p.check(lexer.TOKEN_WHERE) && !p.check(lexer.TOKEN_LBRACE):
		q.Where = &ast.GroupPattern{}
	default:
		p.match(lexer.TOKEN_WHERE)
		q.Where = p.parseGroupGraphPattern()
	}

	p.parseSolutionModifiers(q)
	if !p.isAtEnd() {
		p.fail(p.peek(), "Unexpected input after query")
	}
	q.Prologue = p.prologue
	return q, nil
}

func (p *Parser) parseSelectClause(q *ast.Query) {
	if p.match(lexer.TOKEN_DISTINCT) {
		q.Distinct = true
	} else if p.match(lexer.TOKEN_REDUCED) {
		q.Reduced = true
	}
	if p.match(lexer.TOKEN_STAR) {
		q.Star = true
		return
	}
	for p.check(lexer.TOKEN_VAR) {
		q.Variables = append(q.Variables, p.advance().Text())
	}
	if len(q.Variables) == 0 {
		p.fail(p.peek(), "Expected variables or '*' in SELECT")
	}
}

func (p *Parser) parseDescribeTargets(q *ast.Query) {
	if p.match(lexer.TOKEN_STAR) {
		q.Star = true
		return
	}
	for {
		tok := p.peek()
		switch tok.Type {
		case lexer.TOKEN_VAR:
			p.advance()
			q.Describe = append(q.Describe, ast.Variable(tok.Text()))
			continue
		case lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME:
			q.Describe = append(q.Describe, ast.Constant(p.parseIRI()))
			continue
		}
		break
	}
	if len(q.Describe) == 0 {
		p.fail(p.peek(), "Expected variables, IRIs or '*' in DESCRIBE")
	}
}

func (p *Parser) parseDatasetClauses(q *ast.Query) {
	for p.match(lexer.TOKEN_FROM) {
		if p.match(lexer.TOKEN_NAMED) {
			q.NamedGraphs = append(q.NamedGraphs, p.parseIRI())
		} else {
			q.DefaultGraphs = append(q.DefaultGraphs, p.parseIRI())
		}
	}
}

// parseTemplate parses a CONSTRUCT template.
func (p *Parser) parseTemplate() []ast.TriplePattern {
	p.consume(lexer.TOKEN_LBRACE, "Expected '{' to start template")
	p.template = true
	triples := p.parseTriplesBlock()
	p.template = false
	p.consume(lexer.TOKEN_RBRACE, "Expected '}' after template")
	if triples == nil {
		triples = []ast.TriplePattern{}
	}
	return triples
}

// templateToPattern turns template blank nodes into anonymous variables.
func templateToPattern(template []ast.TriplePattern) []ast.TriplePattern {
	out := make([]ast.TriplePattern, len(template))
	for i, tp := range template {
		out[i] = ast.TriplePattern{S: blankToVar(tp.S), P: tp.P, O: blankToVar(tp.O)}
	}
	return out
}

func blankToVar(t ast.Term) ast.Term {
	if b, ok := t.Value.(rdf.BlankNode); ok {
		return ast.Variable(ast.AnonymousPrefix + b.ID)
	}
	return t
}

// parseGroupGraphPattern parses { ... }.
func (p *Parser) parseGroupGraphPattern() *ast.GroupPattern {
	p.consume(lexer.TOKEN_LBRACE, "Expected '{' to start group pattern")
	group := &ast.GroupPattern{}

	for !p.check(lexer.TOKEN_RBRACE) {
		tok := p.peek()
		switch {
		case p.isAtEnd():
			p.fail(tok, "Expected '}' to close group pattern")
		case p.match(lexer.TOKEN_DOT):
		case p.match(lexer.TOKEN_OPTIONAL):
			group.Elements = append(group.Elements, &ast.OptionalPattern{Pattern: p.parseGroupGraphPattern()})
		case p.match(lexer.TOKEN_GRAPH):
			name := p.parseVarOrIRI()
			group.Elements = append(group.Elements, &ast.GraphPattern{Name: name, Pattern: p.parseGroupGraphPattern()})
		case p.match(lexer.TOKEN_FILTER):
			group.Elements = append(group.Elements, &ast.FilterPattern{Expr: p.parseConstraint()})
		case p.check(lexer.TOKEN_LBRACE):
			group.Elements = append(group.Elements, p.parseGroupOrUnion())
		case p.isTermStart():
			triples := p.parseTriplesBlock()
			if n := len(group.Elements); n > 0 {
				if bp, ok := group.Elements[n-1].(*ast.BasicPattern); ok {
					bp.Triples = append(bp.Triples, triples...)
					continue
				}
			}
			group.Elements = append(group.Elements, &ast.BasicPattern{Triples: triples})
		default:
			p.fail(tok, "Unexpected token in group pattern")
		}
	}
	p.advance()
	return group
}

func (p *Parser) parseGroupOrUnion() ast.Pattern {
	first := p.parseGroupGraphPattern()
	if !p.check(lexer.TOKEN_UNION) {
		return first
	}
	union := &ast.UnionPattern{Alternatives: []*ast.GroupPattern{first}}
	for p.match(lexer.TOKEN_UNION) {
		union.Alternatives = append(union.Alternatives, p.parseGroupGraphPattern())
	}
	return union
}

func (p *Parser) parseVarOrIRI() ast.Term {
	if tok := p.peek(); tok.Type == lexer.TOKEN_VAR {
		p.advance()
		return ast.Variable(tok.Text())
	}
	return ast.Constant(p.parseIRI())
}

func (p *Parser) parseSolutionModifiers(q *ast.Query) {
	if p.match(lexer.TOKEN_ORDER) {
		p.consume(lexer.TOKEN_BY, "Expected BY after ORDER")
		for {
			cond, ok := p.parseOrderCondition()
			if !ok {
				break
			}
			q.OrderBy = append(q.OrderBy, cond)
		}
		if len(q.OrderBy) == 0 {
			p.fail(p.peek(), "Expected ORDER BY condition")
		}
	}

	for i := 0; i < 2; i++ {
		switch {
		case p.match(lexer.TOKEN_LIMIT):
			q.Limit = p.parseCount("LIMIT")
		case p.match(lexer.TOKEN_OFFSET):
			q.Offset = p.parseCount("OFFSET")
		}
	}
}

func (p *Parser) parseOrderCondition() (ast.OrderCondition, bool) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_ASC, lexer.TOKEN_DESC:
		p.advance()
		return ast.OrderCondition{Expr: p.parseBracketted(), Descending: tok.Type == lexer.TOKEN_DESC}, true
	case lexer.TOKEN_VAR:
		p.advance()
		return ast.OrderCondition{Expr: &ast.TermExpr{Term: ast.Variable(tok.Text())}}, true
	case lexer.TOKEN_LPAREN:
		return ast.OrderCondition{Expr: p.parseBracketted()}, true
	case lexer.TOKEN_IDENT:
		return ast.OrderCondition{Expr: p.parseBuiltinCall()}, true
	}
	return ast.OrderCondition{}, false
}

func (p *Parser) parseCount(clause string) int {
	tok := p.consume(lexer.TOKEN_INTEGER, "Expected integer after "+clause)
	n, err := strconv.Atoi(tok.Lexeme)
	if err != nil {
		p.fail(tok, "Invalid "+clause+" value")
	}
	return n
}
