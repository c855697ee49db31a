// Package lexer tokenizes SPARQL 1.1 queries and updates.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes SPARQL text. A Lexer is single-use and not safe for
// concurrent use.
type Lexer struct {
	source  string     // Source text to tokenize
	start   int        // Start position of current token
	current int        // Current position in source
	line    int        // Current line number (1-indexed)
	column  int        // Current column number (1-indexed)
	tokens  []Token    // Collected tokens
	errors  []LexError // Collected errors

	startLine   int
	startColumn int
}

// New creates a new Lexer for the given source text
func New(source string) *Lexer {
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0),
		errors: make([]LexError, 0),
	}
}

// ScanTokens tokenizes the entire source and returns tokens and errors
func (l *Lexer) ScanTokens() ([]Token, []LexError) {
	for !l.isAtEnd() {
		l.start = l.current
		l.startLine = l.line
		l.startColumn = l.column
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{
		Type:   TOKEN_EOF,
		Lexeme: "",
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens, l.errors
}

//nolint:gocyclo // dispatch on the first character of every token
func (l *Lexer) scanToken() {
	c := l.advance()

	switch {
	case c == ' ' || c == '\r' || c == '\t':
	case c == '\n':
		l.newline()
	case c == '#':
		for l.peek() != '\n' && !l.isAtEnd() {
			l.advance()
		}
	case c == '{':
		l.addToken(TOKEN_LBRACE)
	case c == '}':
		l.addToken(TOKEN_RBRACE)
	case c == '(':
		l.addToken(TOKEN_LPAREN)
	case c == ')':
		l.addToken(TOKEN_RPAREN)
	case c == '[':
		l.addToken(TOKEN_LBRACKET)
	case c == ']':
		l.addToken(TOKEN_RBRACKET)
	case c == ';':
		l.addToken(TOKEN_SEMICOLON)
	case c == ',':
		l.addToken(TOKEN_COMMA)
	case c == '*':
		l.addToken(TOKEN_STAR)
	case c == '/':
		l.addToken(TOKEN_SLASH)
	case c == '+':
		l.addToken(TOKEN_PLUS)
	case c == '-':
		l.addToken(TOKEN_MINUS)
	case c == '=':
		l.addToken(TOKEN_EQ)
	case c == '!':
		if l.match('=') {
			l.addToken(TOKEN_NOT_EQ)
		} else {
			l.addToken(TOKEN_BANG)
		}
	case c == '>':
		if l.match('=') {
			l.addToken(TOKEN_GT_EQ)
		} else {
			l.addToken(TOKEN_GT)
		}
	case c == '<':
		l.lessThanOrIRI()
	case c == '&':
		if l.match('&') {
			l.addToken(TOKEN_AND)
		} else {
			l.addError("unexpected character '&'")
		}
	case c == '|':
		if l.match('|') {
			l.addToken(TOKEN_OR)
		} else {
			l.addError("unexpected character '|'")
		}
	case c == '^':
		if l.match('^') {
			l.addToken(TOKEN_DATATYPE)
		} else {
			l.addError("unexpected character '^'")
		}
	case c == '?' || c == '$':
		l.variable()
	case c == '"' || c == '\'':
		l.string(c)
	case c == '@':
		l.langTag()
	case c == '.':
		if l.isDigit(l.peek()) {
			l.number()
		} else {
			l.addToken(TOKEN_DOT)
		}
	case l.isDigit(c):
		l.number()
	case c == '_' && l.peek() == ':':
		l.blankNodeLabel()
	case c == ':':
		l.prefixedName()
	default:
		l.current--
		l.column--
		r, size := utf8.DecodeRuneInString(l.source[l.current:])
		if !unicode.IsLetter(r) {
			l.current += size
			l.column++
			l.addError("unexpected character '" + string(r) + "'")
			return
		}
		l.word()
	}
}

// lessThanOrIRI scans an IRI reference when one starts here, otherwise a
// comparison operator.
func (l *Lexer) lessThanOrIRI() {
	end := l.current
	for end < len(l.source) {
		ch := l.source[end]
		if ch == '>' {
			iri, ok := unescapeIRI(l.source[l.current:end])
			if !ok {
				break
			}
			l.column += end + 1 - l.current
			l.current = end + 1
			l.addTokenWithLiteral(TOKEN_IRIREF, iri)
			return
		}
		if ch <= ' ' || strings.IndexByte("<\"{}|^`", ch) >= 0 {
			break
		}
		end++
	}

	if l.match('=') {
		l.addToken(TOKEN_LT_EQ)
	} else {
		l.addToken(TOKEN_LT)
	}
}

func (l *Lexer) variable() {
	nameStart := l.current
	for !l.isAtEnd() {
		r, size := utf8.DecodeRuneInString(l.source[l.current:])
		if r == '-' || !isNameRune(r) {
			break
		}
		l.current += size
		l.column++
	}
	if l.current == nameStart {
		l.addError("expected variable name")
		return
	}
	l.addTokenWithLiteral(TOKEN_VAR, l.source[nameStart:l.current])
}

func (l *Lexer) blankNodeLabel() {
	l.advance() // ':'
	nameStart := l.current
	l.scanNameChars(true)
	if l.current == nameStart {
		l.addError("expected blank node label")
		return
	}
	l.addTokenWithLiteral(TOKEN_BLANK_LABEL, l.source[nameStart:l.current])
}

// prefixedName scans the local part after the ':' already consumed.
func (l *Lexer) prefixedName() {
	l.scanLocalName()
	l.addTokenWithLiteral(TOKEN_PNAME, l.source[l.start:l.current])
}

func (l *Lexer) word() {
	l.scanNameChars(true)
	if l.peek() == ':' {
		l.advance()
		l.prefixedName()
		return
	}

	text := l.source[l.start:l.current]
	switch text {
	case "a":
		l.addToken(TOKEN_A)
		return
	case "true":
		l.addToken(TOKEN_TRUE)
		return
	case "false":
		l.addToken(TOKEN_FALSE)
		return
	}
	if typ, ok := LookupKeyword(text); ok {
		l.addToken(typ)
		return
	}
	l.addTokenWithLiteral(TOKEN_IDENT, strings.ToUpper(text))
}

// scanNameChars consumes name characters. Dots are allowed inside names but
// never at the end.
func (l *Lexer) scanNameChars(allowDots bool) {
	for !l.isAtEnd() {
		r, size := utf8.DecodeRuneInString(l.source[l.current:])
		if r == '.' && allowDots {
			next, _ := utf8.DecodeRuneInString(l.source[l.current+size:])
			if l.current+size < len(l.source) && isNameRune(next) {
				l.current += size
				l.column++
				continue
			}
			return
		}
		if !isNameRune(r) {
			return
		}
		l.current += size
		l.column++
	}
}

func (l *Lexer) scanLocalName() {
	for !l.isAtEnd() {
		c := l.source[l.current]
		switch {
		case c == ':':
			l.advance()
		case c == '%' && l.current+2 < len(l.source):
			l.advance()
			l.advance()
			l.advance()
		case c == '\\' && l.current+1 < len(l.source):
			l.advance()
			l.advance()
		default:
			before := l.current
			l.scanNameChars(true)
			if l.current == before {
				return
			}
			if l.peek() == '.' {
				return
			}
		}
	}
}

func (l *Lexer) string(quote byte) {
	long := l.peek() == quote && l.peekNext() == quote
	if long {
		l.advance()
		l.advance()
	}

	var b strings.Builder
	for {
		if l.isAtEnd() {
			l.addError("unterminated string")
			return
		}
		c := l.peek()
		if long && c == quote && l.peekNext() == quote && l.peekNextNext() == quote {
			l.advance()
			l.advance()
			l.advance()
			break
		}
		if !long && c == quote {
			l.advance()
			break
		}
		if !long && (c == '\n' || c == '\r') {
			l.addError("line break in string")
			return
		}
		l.advance()
		if c == '\n' {
			l.newline()
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		esc := l.advance()
		switch esc {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(esc)
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if l.current+width > len(l.source) {
				l.addError("truncated unicode escape")
				return
			}
			code, err := strconv.ParseUint(l.source[l.current:l.current+width], 16, 32)
			if err != nil {
				l.addError("invalid unicode escape")
				return
			}
			for i := 0; i < width; i++ {
				l.advance()
			}
			b.WriteRune(rune(code))
		default:
			l.addError("invalid escape sequence")
			return
		}
	}
	l.addTokenWithLiteral(TOKEN_STRING, b.String())
}

func (l *Lexer) langTag() {
	tagStart := l.current
	for l.isAlpha(l.peek()) || l.isDigit(l.peek()) || l.peek() == '-' {
		l.advance()
	}
	if l.current == tagStart {
		l.addError("expected language tag")
		return
	}
	l.addTokenWithLiteral(TOKEN_LANGTAG, strings.ToLower(l.source[tagStart:l.current]))
}

func (l *Lexer) number() {
	typ := TOKEN_INTEGER
	for l.isDigit(l.peek()) {
		l.advance()
	}
	if l.source[l.start] == '.' {
		typ = TOKEN_DECIMAL
	} else if l.peek() == '.' && l.isDigit(l.peekNext()) {
		l.advance()
		for l.isDigit(l.peek()) {
			l.advance()
		}
		typ = TOKEN_DECIMAL
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		next := l.peekNext()
		if l.isDigit(next) || ((next == '+' || next == '-') && l.isDigit(l.peekNextNext())) {
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			for l.isDigit(l.peek()) {
				l.advance()
			}
			typ = TOKEN_DOUBLE
		}
	}
	l.addTokenWithLiteral(typ, l.source[l.start:l.current])
}

func (l *Lexer) newline() {
	l.line++
	l.column = 1
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	c := l.source[l.current]
	l.current++
	l.column++
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	l.column++
	return true
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) peekNextNext() byte {
	if l.current+2 >= len(l.source) {
		return 0
	}
	return l.source[l.current+2]
}

func (l *Lexer) isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *Lexer) isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (l *Lexer) addToken(tokenType TokenType) {
	l.addTokenWithLiteral(tokenType, nil)
}

func (l *Lexer) addTokenWithLiteral(tokenType TokenType, literal interface{}) {
	l.tokens = append(l.tokens, Token{
		Type:    tokenType,
		Lexeme:  l.source[l.start:l.current],
		Literal: literal,
		Line:    l.startLine,
		Column:  l.startColumn,
	})
}

func (l *Lexer) addError(message string) {
	end := l.current
	if end > l.start+20 {
		end = l.start + 20
	}
	l.errors = append(l.errors, LexError{
		Message: message,
		Line:    l.startLine,
		Column:  l.startColumn,
		Lexeme:  l.source[l.start:end],
	})
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// unescapeIRI decodes \u and \U escapes inside an IRI reference.
func unescapeIRI(s string) (string, bool) {
	if !strings.Contains(s, `\`) {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", false
		}
		width := 0
		switch s[i+1] {
		case 'u':
			width = 4
		case 'U':
			width = 8
		default:
			return "", false
		}
		if i+2+width > len(s) {
			return "", false
		}
		code, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
		if err != nil {
			return "", false
		}
		b.WriteRune(rune(code))
		i += 1 + width
	}
	return b.String(), true
}
