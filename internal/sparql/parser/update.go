package parser

import (
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/sparql/lexer"
)

// Update parses a SPARQL update request: commands separated by ';', each
// optionally preceded by prologue declarations.
func (p *Parser) Update() (cs *ast.CommandSet, err error) {
	defer recoverBailout(&err)

	cs = &ast.CommandSet{}
	p.parsePrologue()
	for !p.isAtEnd() {
		cs.Commands = append(cs.Commands, p.parseCommand())
		if !p.match(lexer.TOKEN_SEMICOLON) {
			break
		}
		p.parsePrologue()
	}
	if !p.isAtEnd() {
		p.fail(p.peek(), "Expected ';' between update operations")
	}
	cs.Prologue = p.prologue
	return cs, nil
}

func (p *Parser) parseCommand() ast.Command {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_INSERT:
		if p.peekNext().Type == lexer.TOKEN_DATA {
			p.advance()
			p.advance()
			return &ast.InsertData{Quads: p.parseQuadData()}
		}
		return p.parseModify()
	case lexer.TOKEN_DELETE:
		switch p.peekNext().Type {
		case lexer.TOKEN_DATA:
			p.advance()
			p.advance()
			return &ast.DeleteData{Quads: p.parseQuadData()}
		case lexer.TOKEN_WHERE:
			p.advance()
			p.advance()
			return &ast.DeleteWhere{Quads: p.parseQuadPattern(false)}
		}
		return p.parseModify()
	case lexer.TOKEN_WITH:
		return p.parseModify()
	case lexer.TOKEN_CLEAR, lexer.TOKEN_DROP:
		p.advance()
		cmd := &ast.Clear{Drop: tok.Type == lexer.TOKEN_DROP}
		cmd.Silent = p.match(lexer.TOKEN_SILENT)
		cmd.Target = p.parseGraphTarget()
		return cmd
	case lexer.TOKEN_CREATE:
		p.advance()
		cmd := &ast.Create{Silent: p.match(lexer.TOKEN_SILENT)}
		p.consume(lexer.TOKEN_GRAPH, "Expected GRAPH after CREATE")
		cmd.Graph = p.parseIRI()
		return cmd
	}
	p.fail(tok, "Expected update operation")
	return nil
}

func (p *Parser) parseGraphTarget() ast.GraphTarget {
	switch {
	case p.match(lexer.TOKEN_GRAPH):
		return ast.GraphTarget{Kind: ast.TargetGraph, Graph: p.parseIRI()}
	case p.match(lexer.TOKEN_DEFAULT):
		return ast.GraphTarget{Kind: ast.TargetDefault}
	case p.match(lexer.TOKEN_NAMED):
		return ast.GraphTarget{Kind: ast.TargetNamed}
	case p.match(lexer.TOKEN_ALL):
		return ast.GraphTarget{Kind: ast.TargetAll}
	}
	p.fail(p.peek(), "Expected GRAPH, DEFAULT, NAMED or ALL")
	return ast.GraphTarget{}
}

func (p *Parser) parseModify() ast.Command {
	m := &ast.Modify{}
	if p.match(lexer.TOKEN_WITH) {
		with := p.parseIRI()
		m.With = &with
	}

	switch {
	case p.match(lexer.TOKEN_DELETE):
		m.Delete = p.parseQuadPattern(true)
		if p.match(lexer.TOKEN_INSERT) {
			m.Insert = p.parseQuadPattern(true)
		}
	case p.match(lexer.TOKEN_INSERT):
		m.Insert = p.parseQuadPattern(true)
	default:
		p.fail(p.peek(), "Expected DELETE or INSERT")
	}

	for p.match(lexer.TOKEN_USING) {
		if p.match(lexer.TOKEN_NAMED) {
			m.UsingNamed = append(m.UsingNamed, p.parseIRI())
		} else {
			m.Using = append(m.Using, p.parseIRI())
		}
	}

	p.consume(lexer.TOKEN_WHERE, "Expected WHERE in update")
	m.Where = p.parseGroupGraphPattern()
	return m
}

// parseQuadData parses the ground quads of INSERT DATA and DELETE DATA.
func (p *Parser) parseQuadData() []ast.QuadPattern {
	start := p.peek()
	quads := p.parseQuadPattern(true)
	for _, q := range quads {
		for _, t := range []ast.Term{q.S, q.P, q.O, q.Graph} {
			if t.IsVar() {
				p.fail(start, "Variables are not allowed in INSERT DATA or DELETE DATA")
			}
		}
	}
	return quads
}

// parseQuadPattern parses { triples GRAPH g { triples } ... }. With template
// set, blank nodes are kept as blank nodes.
func (p *Parser) parseQuadPattern(template bool) []ast.QuadPattern {
	p.consume(lexer.TOKEN_LBRACE, "Expected '{'")
	saved := p.template
	p.template = template
	defer func() { p.template = saved }()

	quads := []ast.QuadPattern{}
	add := func(graph ast.Term, triples []ast.TriplePattern) {
		for _, tp := range triples {
			quads = append(quads, ast.QuadPattern{TriplePattern: tp, Graph: graph})
		}
	}

	for !p.match(lexer.TOKEN_RBRACE) {
		switch {
		case p.isAtEnd():
			p.fail(p.peek(), "Expected '}'")
		case p.match(lexer.TOKEN_DOT):
		case p.match(lexer.TOKEN_GRAPH):
			graph := p.parseVarOrIRI()
			p.consume(lexer.TOKEN_LBRACE, "Expected '{' after GRAPH name")
			add(graph, p.parseTriplesBlock())
			p.consume(lexer.TOKEN_RBRACE, "Expected '}' after GRAPH block")
		case p.isTermStart():
			add(ast.Term{}, p.parseTriplesBlock())
		default:
			p.fail(p.peek(), "Unexpected token in quad block")
		}
	}
	return quads
}
