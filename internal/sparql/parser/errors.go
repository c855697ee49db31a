// Package parser implements a recursive descent parser for SPARQL 1.1
// queries and updates.
package parser

import (
	"fmt"

	"github.com/conduit-lang/sparqld/internal/sparql/lexer"
)

// ParseError represents an error encountered during parsing
type ParseError struct {
	Message string
	Line    int
	Column  int
	Token   lexer.Token
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Token.Type == lexer.TOKEN_EOF {
		return fmt.Sprintf("Parse error at %d:%d: %s (at end of input)", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("Parse error at %d:%d: %s (near '%s')", e.Line, e.Column, e.Message, e.Token.Lexeme)
}

// NewParseError creates a new parse error
func NewParseError(message string, token lexer.Token) *ParseError {
	return &ParseError{
		Message: message,
		Line:    token.Line,
		Column:  token.Column,
		Token:   token,
	}
}

func fromLexError(e lexer.LexError) *ParseError {
	return &ParseError{
		Message: e.Message,
		Line:    e.Line,
		Column:  e.Column,
		Token:   lexer.Token{Type: lexer.TOKEN_ERROR, Lexeme: e.Lexeme, Line: e.Line, Column: e.Column},
	}
}

// bailout carries a parse error up the recursive descent.
type bailout struct {
	err *ParseError
}
