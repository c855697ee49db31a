package parser

import (
	"fmt"

	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/sparql/lexer"
)

// builtinArity maps each supported function to its minimum and maximum
// argument count.
var builtinArity = map[string][2]int{
	"BOUND":       {1, 1},
	"ISIRI":       {1, 1},
	"ISURI":       {1, 1},
	"ISBLANK":     {1, 1},
	"ISLITERAL":   {1, 1},
	"STR":         {1, 1},
	"LANG":        {1, 1},
	"DATATYPE":    {1, 1},
	"REGEX":       {2, 3},
	"CONTAINS":    {2, 2},
	"STRSTARTS":   {2, 2},
	"STRENDS":     {2, 2},
	"LCASE":       {1, 1},
	"UCASE":       {1, 1},
	"STRLEN":      {1, 1},
	"SAMETERM":    {2, 2},
	"LANGMATCHES": {2, 2},
}

// parseConstraint parses the operand of FILTER.
func (p *Parser) parseConstraint() ast.Expression {
	if p.check(lexer.TOKEN_IDENT) {
		return p.parseBuiltinCall()
	}
	return p.parseBracketted()
}

func (p *Parser) parseBracketted() ast.Expression {
	p.consume(lexer.TOKEN_LPAREN, "Expected '('")
	expr := p.parseExpression()
	p.consume(lexer.TOKEN_RPAREN, "Expected ')' after expression")
	return expr
}

// parseExpression handles operator precedence from lowest to highest:
// ||, &&, relational, additive, multiplicative, unary.
func (p *Parser) parseExpression() ast.Expression {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expression {
	expr := p.parseAnd()
	for p.match(lexer.TOKEN_OR) {
		expr = &ast.BinaryExpr{Op: "||", Left: expr, Right: p.parseAnd()}
	}
	return expr
}

func (p *Parser) parseAnd() ast.Expression {
	expr := p.parseRelational()
	for p.match(lexer.TOKEN_AND) {
		expr = &ast.BinaryExpr{Op: "&&", Left: expr, Right: p.parseRelational()}
	}
	return expr
}

func (p *Parser) parseRelational() ast.Expression {
	expr := p.parseAdditive()
	if p.match(lexer.TOKEN_EQ, lexer.TOKEN_NOT_EQ, lexer.TOKEN_LT, lexer.TOKEN_GT, lexer.TOKEN_LT_EQ, lexer.TOKEN_GT_EQ) {
		op := p.previous().Lexeme
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: p.parseAdditive()}
	}
	return expr
}

func (p *Parser) parseAdditive() ast.Expression {
	expr := p.parseMultiplicative()
	for p.match(lexer.TOKEN_PLUS, lexer.TOKEN_MINUS) {
		op := p.previous().Lexeme
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: p.parseMultiplicative()}
	}
	return expr
}

func (p *Parser) parseMultiplicative() ast.Expression {
	expr := p.parseUnary()
	for p.match(lexer.TOKEN_STAR, lexer.TOKEN_SLASH) {
		op := p.previous().Lexeme
		expr = &ast.BinaryExpr{Op: op, Left: expr, Right: p.parseUnary()}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expression {
	if p.match(lexer.TOKEN_BANG, lexer.TOKEN_MINUS, lexer.TOKEN_PLUS) {
		op := p.previous().Lexeme
		return &ast.UnaryExpr{Op: op, Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_LPAREN:
		return p.parseBracketted()
	case lexer.TOKEN_IDENT:
		return p.parseBuiltinCall()
	case lexer.TOKEN_VAR:
		p.advance()
		return &ast.TermExpr{Term: ast.Variable(tok.Text())}
	case lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME:
		return &ast.TermExpr{Term: ast.Constant(p.parseIRI())}
	}
	if lit, ok := p.parseLiteral(); ok {
		return &ast.TermExpr{Term: ast.Constant(lit)}
	}
	p.fail(tok, "Expected expression")
	return nil
}

func (p *Parser) parseBuiltinCall() ast.Expression {
	tok := p.consume(lexer.TOKEN_IDENT, "Expected function name")
	name := tok.Text()
	arity, ok := builtinArity[name]
	if !ok {
		p.fail(tok, fmt.Sprintf("Unknown function '%s'", tok.Lexeme))
	}
	p.consume(lexer.TOKEN_LPAREN, "Expected '(' after "+name)

	var args []ast.Expression
	if !p.check(lexer.TOKEN_RPAREN) {
		if name == "BOUND" {
			v := p.consume(lexer.TOKEN_VAR, "Expected variable in BOUND")
			args = append(args, &ast.TermExpr{Term: ast.Variable(v.Text())})
		} else {
			args = append(args, p.parseExpression())
			for p.match(lexer.TOKEN_COMMA) {
				args = append(args, p.parseExpression())
			}
		}
	}
	p.consume(lexer.TOKEN_RPAREN, "Expected ')' after arguments")

	if len(args) < arity[0] || len(args) > arity[1] {
		p.fail(tok, fmt.Sprintf("Wrong number of arguments to %s", name))
	}
	return &ast.CallExpr{Name: name, Args: args}
}
