package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a SPARQL token
type TokenType int

const (
	// TOKEN_EOF marks the end of the token stream.
	TOKEN_EOF TokenType = iota
	// TOKEN_ERROR represents a lexical error encountered during scanning.
	TOKEN_ERROR

	// Terms
	TOKEN_IRIREF      // <http://example.org/>
	TOKEN_PNAME       // ex:name, ex:, :name
	TOKEN_BLANK_LABEL // _:b0
	TOKEN_VAR         // ?x, $x
	TOKEN_STRING      // "abc", 'abc', """abc"""
	TOKEN_LANGTAG     // @en
	TOKEN_INTEGER     // 42
	TOKEN_DECIMAL     // 4.2
	TOKEN_DOUBLE      // 4.2e1
	TOKEN_TRUE        // true
	TOKEN_FALSE       // false
	TOKEN_A           // a
	TOKEN_IDENT       // built-in function names

	// Punctuation
	TOKEN_LBRACE   // {
	TOKEN_RBRACE   // }
	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
	TOKEN_DOT      // .
	TOKEN_SEMICOLON
	TOKEN_COMMA
	TOKEN_DATATYPE // ^^

	// Operators
	TOKEN_STAR       // *
	TOKEN_SLASH      // /
	TOKEN_PLUS       // +
	TOKEN_MINUS      // -
	TOKEN_BANG       // !
	TOKEN_EQ         // =
	TOKEN_NOT_EQ     // !=
	TOKEN_LT         // <
	TOKEN_GT         // >
	TOKEN_LT_EQ      // <=
	TOKEN_GT_EQ      // >=
	TOKEN_AND        // &&
	TOKEN_OR         // ||

	// Keywords - Prologue
	TOKEN_BASE
	TOKEN_PREFIX

	// Keywords - Query forms and modifiers
	TOKEN_SELECT
	TOKEN_CONSTRUCT
	TOKEN_DESCRIBE
	TOKEN_ASK
	TOKEN_DISTINCT
	TOKEN_REDUCED
	TOKEN_FROM
	TOKEN_NAMED
	TOKEN_WHERE
	TOKEN_ORDER
	TOKEN_BY
	TOKEN_ASC
	TOKEN_DESC
	TOKEN_LIMIT
	TOKEN_OFFSET

	// Keywords - Graph patterns
	TOKEN_GRAPH
	TOKEN_OPTIONAL
	TOKEN_UNION
	TOKEN_FILTER

	// Keywords - Update
	TOKEN_INSERT
	TOKEN_DELETE
	TOKEN_DATA
	TOKEN_WITH
	TOKEN_USING
	TOKEN_DEFAULT
	TOKEN_ALL
	TOKEN_CLEAR
	TOKEN_DROP
	TOKEN_CREATE
	TOKEN_SILENT
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:         "EOF",
	TOKEN_ERROR:       "ERROR",
	TOKEN_IRIREF:      "IRIREF",
	TOKEN_PNAME:       "PNAME",
	TOKEN_BLANK_LABEL: "BLANK_NODE_LABEL",
	TOKEN_VAR:         "VAR",
	TOKEN_STRING:      "STRING",
	TOKEN_LANGTAG:     "LANGTAG",
	TOKEN_INTEGER:     "INTEGER",
	TOKEN_DECIMAL:     "DECIMAL",
	TOKEN_DOUBLE:      "DOUBLE",
	TOKEN_TRUE:        "true",
	TOKEN_FALSE:       "false",
	TOKEN_A:           "a",
	TOKEN_IDENT:       "IDENT",
	TOKEN_LBRACE:      "{",
	TOKEN_RBRACE:      "}",
	TOKEN_LPAREN:      "(",
	TOKEN_RPAREN:      ")",
	TOKEN_LBRACKET:    "[",
	TOKEN_RBRACKET:    "]",
	TOKEN_DOT:         ".",
	TOKEN_SEMICOLON:   ";",
	TOKEN_COMMA:       ",",
	TOKEN_DATATYPE:    "^^",
	TOKEN_STAR:        "*",
	TOKEN_SLASH:       "/",
	TOKEN_PLUS:        "+",
	TOKEN_MINUS:       "-",
	TOKEN_BANG:        "!",
	TOKEN_EQ:          "=",
	TOKEN_NOT_EQ:      "!=",
	TOKEN_LT:          "<",
	TOKEN_GT:          ">",
	TOKEN_LT_EQ:       "<=",
	TOKEN_GT_EQ:       ">=",
	TOKEN_AND:         "&&",
	TOKEN_OR:          "||",
}

// keywords maps upper-cased SPARQL keywords to their token types. Keywords
// are case-insensitive.
var keywords = map[string]TokenType{
	"BASE":      TOKEN_BASE,
	"PREFIX":    TOKEN_PREFIX,
	"SELECT":    TOKEN_SELECT,
	"CONSTRUCT": TOKEN_CONSTRUCT,
	"DESCRIBE":  TOKEN_DESCRIBE,
	"ASK":       TOKEN_ASK,
	"DISTINCT":  TOKEN_DISTINCT,
	"REDUCED":   TOKEN_REDUCED,
	"FROM":      TOKEN_FROM,
	"NAMED":     TOKEN_NAMED,
	"WHERE":     TOKEN_WHERE,
	"ORDER":     TOKEN_ORDER,
	"BY":        TOKEN_BY,
	"ASC":       TOKEN_ASC,
	"DESC":      TOKEN_DESC,
	"LIMIT":     TOKEN_LIMIT,
	"OFFSET":    TOKEN_OFFSET,
	"GRAPH":     TOKEN_GRAPH,
	"OPTIONAL":  TOKEN_OPTIONAL,
	"UNION":     TOKEN_UNION,
	"FILTER":    TOKEN_FILTER,
	"INSERT":    TOKEN_INSERT,
	"DELETE":    TOKEN_DELETE,
	"DATA":      TOKEN_DATA,
	"WITH":      TOKEN_WITH,
	"USING":     TOKEN_USING,
	"DEFAULT":   TOKEN_DEFAULT,
	"ALL":       TOKEN_ALL,
	"CLEAR":     TOKEN_CLEAR,
	"DROP":      TOKEN_DROP,
	"CREATE":    TOKEN_CREATE,
	"SILENT":    TOKEN_SILENT,
}

// String returns a readable name for the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for kw, typ := range keywords {
		if typ == t {
			return kw
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword reports whether the token type is a reserved keyword
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_BASE
}

// Token is a lexical token of a SPARQL query or update
type Token struct {
	Type    TokenType   // The type of the token
	Lexeme  string      // The raw text of the token
	Literal interface{} // The decoded value for IRIs, strings, variables and labels
	Line    int         // Line number (1-indexed)
	Column  int         // Column number (1-indexed)
}

func (t Token) String() string {
	return fmt.Sprintf("%s '%s' at %d:%d", t.Type.String(), t.Lexeme, t.Line, t.Column)
}

// Text returns the decoded value of the token as a string
func (t Token) Text() string {
	if s, ok := t.Literal.(string); ok {
		return s
	}
	return t.Lexeme
}

// LookupKeyword returns the keyword token type for a bare word
func LookupKeyword(word string) (TokenType, bool) {
	typ, ok := keywords[strings.ToUpper(word)]
	return typ, ok
}

// LexError is a lexical error with its position
type LexError struct {
	Message string // Error message
	Line    int    // Line number where error occurred
	Column  int    // Column number where error occurred
	Lexeme  string // The problematic text
}

func (e LexError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Message, e.Line, e.Column)
}
