package parser

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
	"github.com/conduit-lang/sparqld/internal/sparql/lexer"
)

// Parser transforms a stream of SPARQL tokens into a syntax tree. The first
// error aborts parsing.
type Parser struct {
	tokens   []lexer.Token
	current  int
	prologue ast.Prologue

	// template is set while parsing CONSTRUCT and update templates, where
	// blank nodes stay blank nodes instead of acting as variables.
	template bool
	anon     int
}

// New creates a new parser for the given token stream
func New(tokens []lexer.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		prologue: ast.Prologue{Prefixes: make(map[string]string)},
	}
}

// SPARQL parses query and update text.
type SPARQL struct{}

// ParseQuery parses a SPARQL query.
func (SPARQL) ParseQuery(text string) (*ast.Query, error) {
	return ParseQuery(text)
}

// ParseUpdate parses a SPARQL update request.
func (SPARQL) ParseUpdate(text string) (*ast.CommandSet, error) {
	return ParseUpdate(text)
}

// ParseQuery tokenizes and parses a SPARQL query.
func ParseQuery(text string) (*ast.Query, error) {
	p, err := newFromText(text)
	if err != nil {
		return nil, err
	}
	return p.Query()
}

// ParseUpdate tokenizes and parses a SPARQL update request.
func ParseUpdate(text string) (*ast.CommandSet, error) {
	p, err := newFromText(text)
	if err != nil {
		return nil, err
	}
	return p.Update()
}

func newFromText(text string) (*Parser, error) {
	tokens, lexErrors := lexer.New(text).ScanTokens()
	if len(lexErrors) > 0 {
		return nil, fromLexError(lexErrors[0])
	}
	return New(tokens), nil
}

// recoverBailout turns a bailout panic into an error.
func recoverBailout(err *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*err = b.err
	}
}

// parsePrologue parses BASE and PREFIX declarations.
func (p *Parser) parsePrologue() {
	for {
		switch {
		case p.match(lexer.TOKEN_BASE):
			iri := p.consume(lexer.TOKEN_IRIREF, "Expected IRI after BASE")
			p.prologue.Base = p.resolve(iri)
		case p.match(lexer.TOKEN_PREFIX):
			name := p.consume(lexer.TOKEN_PNAME, "Expected prefix name after PREFIX")
			if !strings.HasSuffix(name.Lexeme, ":") || strings.Count(name.Lexeme, ":") != 1 {
				p.fail(name, "Invalid prefix declaration")
			}
			iri := p.consume(lexer.TOKEN_IRIREF, "Expected IRI in PREFIX declaration")
			p.prologue.Prefixes[strings.TrimSuffix(name.Lexeme, ":")] = p.resolve(iri)
		default:
			return
		}
	}
}

// parseIRI parses an IRIREF or prefixed name.
func (p *Parser) parseIRI() rdf.IRI {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_IRIREF:
		p.advance()
		return rdf.IRI{Value: p.resolve(tok)}
	case lexer.TOKEN_PNAME:
		p.advance()
		return rdf.IRI{Value: p.expand(tok)}
	}
	p.fail(tok, "Expected IRI")
	return rdf.IRI{}
}

func (p *Parser) resolve(tok lexer.Token) string {
	resolved, err := rdf.ResolveIRI(p.prologue.Base, tok.Text())
	if err != nil {
		p.fail(tok, err.Error())
	}
	return resolved
}

func (p *Parser) expand(tok lexer.Token) string {
	prefix, local, _ := strings.Cut(tok.Lexeme, ":")
	ns, ok := p.prologue.Prefixes[prefix]
	if !ok {
		p.fail(tok, fmt.Sprintf("Undefined prefix '%s'", prefix))
	}
	if strings.Contains(local, `\`) {
		var b strings.Builder
		for i := 0; i < len(local); i++ {
			if local[i] == '\\' && i+1 < len(local) {
				i++
			}
			b.WriteByte(local[i])
		}
		local = b.String()
	}
	return ns + local
}

// isTermStart reports whether the current token can start a triple pattern.
func (p *Parser) isTermStart() bool {
	switch p.peek().Type {
	case lexer.TOKEN_VAR, lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME, lexer.TOKEN_BLANK_LABEL,
		lexer.TOKEN_LBRACKET, lexer.TOKEN_LPAREN, lexer.TOKEN_STRING, lexer.TOKEN_INTEGER,
		lexer.TOKEN_DECIMAL, lexer.TOKEN_DOUBLE, lexer.TOKEN_TRUE, lexer.TOKEN_FALSE,
		lexer.TOKEN_MINUS, lexer.TOKEN_PLUS:
		return true
	}
	return false
}

// parseTriplesBlock parses triples separated by '.' and returns them.
func (p *Parser) parseTriplesBlock() []ast.TriplePattern {
	var out []ast.TriplePattern
	for p.isTermStart() {
		p.parseTriplesSameSubject(&out)
		if !p.match(lexer.TOKEN_DOT) {
			break
		}
	}
	return out
}

func (p *Parser) parseTriplesSameSubject(out *[]ast.TriplePattern) {
	if p.check(lexer.TOKEN_LBRACKET) && p.peekNext().Type != lexer.TOKEN_RBRACKET {
		subject := p.parseBlankNodePropertyList(out)
		if p.isVerbStart() {
			p.parsePropertyList(subject, out)
		}
		return
	}
	subject := p.parseGraphNode(out)
	p.parsePropertyList(subject, out)
}

func (p *Parser) isVerbStart() bool {
	switch p.peek().Type {
	case lexer.TOKEN_VAR, lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME, lexer.TOKEN_A:
		return true
	}
	return false
}

func (p *Parser) parsePropertyList(subject ast.Term, out *[]ast.TriplePattern) {
	for {
		verb := p.parseVerb()
		for {
			var nested []ast.TriplePattern
			object := p.parseGraphNode(&nested)
			*out = append(*out, ast.TriplePattern{S: subject, P: verb, O: object})
			*out = append(*out, nested...)
			if !p.match(lexer.TOKEN_COMMA) {
				break
			}
		}
		if !p.match(lexer.TOKEN_SEMICOLON) {
			return
		}
		for p.match(lexer.TOKEN_SEMICOLON) {
		}
		if !p.isVerbStart() {
			return
		}
	}
}

func (p *Parser) parseVerb() ast.Term {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_A:
		p.advance()
		return ast.Constant(rdf.RDFType)
	case lexer.TOKEN_VAR:
		p.advance()
		return ast.Variable(tok.Text())
	case lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME:
		return ast.Constant(p.parseIRI())
	}
	p.fail(tok, "Expected predicate")
	return ast.Term{}
}

// parseGraphNode parses a subject or object: a variable, a term, a blank
// node property list or a collection.
func (p *Parser) parseGraphNode(out *[]ast.TriplePattern) ast.Term {
	switch {
	case p.check(lexer.TOKEN_LBRACKET) && p.peekNext().Type != lexer.TOKEN_RBRACKET:
		return p.parseBlankNodePropertyList(out)
	case p.check(lexer.TOKEN_LPAREN):
		return p.parseCollection(out)
	}
	return p.parseVarOrTerm()
}

func (p *Parser) parseBlankNodePropertyList(out *[]ast.TriplePattern) ast.Term {
	p.consume(lexer.TOKEN_LBRACKET, "Expected '['")
	node := p.freshBlank()
	p.parsePropertyList(node, out)
	p.consume(lexer.TOKEN_RBRACKET, "Expected ']' after blank node property list")
	return node
}

func (p *Parser) parseCollection(out *[]ast.TriplePattern) ast.Term {
	p.consume(lexer.TOKEN_LPAREN, "Expected '('")
	var items []ast.Term
	for !p.check(lexer.TOKEN_RPAREN) {
		if p.isAtEnd() {
			p.fail(p.peek(), "Expected ')' after collection")
		}
		items = append(items, p.parseGraphNode(out))
	}
	p.advance()
	if len(items) == 0 {
		return ast.Constant(rdf.RDFNil)
	}
	head := p.freshBlank()
	node := head
	for i, item := range items {
		*out = append(*out, ast.TriplePattern{S: node, P: ast.Constant(rdf.RDFFirst), O: item})
		next := ast.Constant(rdf.RDFNil)
		if i < len(items)-1 {
			next = p.freshBlank()
		}
		*out = append(*out, ast.TriplePattern{S: node, P: ast.Constant(rdf.RDFRest), O: next})
		node = next
	}
	return head
}

// parseVarOrTerm parses a variable, IRI, blank node or literal.
func (p *Parser) parseVarOrTerm() ast.Term {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_VAR:
		p.advance()
		return ast.Variable(tok.Text())
	case lexer.TOKEN_IRIREF, lexer.TOKEN_PNAME:
		return ast.Constant(p.parseIRI())
	case lexer.TOKEN_BLANK_LABEL:
		p.advance()
		if p.template {
			return ast.Constant(rdf.BlankNode{ID: tok.Text()})
		}
		return ast.Variable(ast.AnonymousPrefix + tok.Text())
	case lexer.TOKEN_LBRACKET:
		p.advance()
		p.consume(lexer.TOKEN_RBRACKET, "Expected ']'")
		return p.freshBlank()
	}
	if lit, ok := p.parseLiteral(); ok {
		return ast.Constant(lit)
	}
	p.fail(tok, "Expected variable or RDF term")
	return ast.Term{}
}

// parseLiteral parses a string, numeric or boolean literal.
func (p *Parser) parseLiteral() (rdf.Literal, bool) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TOKEN_STRING:
		p.advance()
		lexical := tok.Text()
		if lang := p.peek(); lang.Type == lexer.TOKEN_LANGTAG {
			p.advance()
			return rdf.NewLangLiteral(lexical, lang.Text()), true
		}
		if p.match(lexer.TOKEN_DATATYPE) {
			return rdf.NewTypedLiteral(lexical, p.parseIRI()), true
		}
		return rdf.NewLiteral(lexical), true
	case lexer.TOKEN_INTEGER, lexer.TOKEN_DECIMAL, lexer.TOKEN_DOUBLE:
		p.advance()
		return numericLiteral(tok, ""), true
	case lexer.TOKEN_PLUS, lexer.TOKEN_MINUS:
		next := p.peekNext()
		if next.Type == lexer.TOKEN_INTEGER || next.Type == lexer.TOKEN_DECIMAL || next.Type == lexer.TOKEN_DOUBLE {
			p.advance()
			p.advance()
			return numericLiteral(next, tok.Lexeme), true
		}
	case lexer.TOKEN_TRUE, lexer.TOKEN_FALSE:
		p.advance()
		return rdf.Literal{Lexical: tok.Lexeme, Datatype: rdf.XSDBoolean}, true
	}
	return rdf.Literal{}, false
}

func numericLiteral(tok lexer.Token, sign string) rdf.Literal {
	datatype := rdf.XSDInteger
	switch tok.Type {
	case lexer.TOKEN_DECIMAL:
		datatype = rdf.XSDDecimal
	case lexer.TOKEN_DOUBLE:
		datatype = rdf.XSDDouble
	}
	return rdf.Literal{Lexical: sign + tok.Lexeme, Datatype: datatype}
}

// freshBlank returns a new anonymous node: a blank node inside templates, a
// hidden variable inside patterns.
func (p *Parser) freshBlank() ast.Term {
	p.anon++
	label := fmt.Sprintf("anon%d", p.anon)
	if p.template {
		return ast.Constant(rdf.BlankNode{ID: label})
	}
	return ast.Variable(ast.AnonymousPrefix + label)
}

// peek returns the current token without consuming it
func (p *Parser) peek() lexer.Token {
	if len(p.tokens) == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

// peekNext returns the token after the current one
func (p *Parser) peekNext() lexer.Token {
	if p.current+1 >= len(p.tokens) {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current+1]
}

// previous returns the most recently consumed token
func (p *Parser) previous() lexer.Token {
	if len(p.tokens) == 0 || p.current == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current-1]
}

// advance consumes the current token and returns it
func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

// check returns true if the current token matches the given type
func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return tokenType == lexer.TOKEN_EOF
	}
	return p.peek().Type == tokenType
}

// match consumes the token if it matches any of the given types
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances if the next token matches, otherwise aborts parsing
func (p *Parser) consume(tokenType lexer.TokenType, message string) lexer.Token {
	if p.check(tokenType) {
		return p.advance()
	}
	p.fail(p.peek(), message)
	return lexer.Token{Type: lexer.TOKEN_ERROR}
}

// isAtEnd returns true if we've reached the end of the token stream
func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Type == lexer.TOKEN_EOF
}

// fail aborts parsing with an error at token.
func (p *Parser) fail(token lexer.Token, message string) {
	panic(bailout{err: NewParseError(message, token)})
}
