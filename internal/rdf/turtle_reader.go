package rdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a malformed Turtle or N-Triples document.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// ReadTurtle parses a Turtle document. Relative IRIs are resolved against base.
func ReadTurtle(r io.Reader, base string) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return newTurtleParser(string(data), base).parseDocument()
}

type turtleParser struct {
	src      string
	pos      int
	base     string
	prefixes map[string]string
	graph    *Graph
	fresh    int
	// ntriples disables the Turtle abbreviations.
	ntriples bool
}

func newTurtleParser(src, base string) *turtleParser {
	return &turtleParser{
		src:      src,
		base:     base,
		prefixes: make(map[string]string),
		graph:    NewGraph(),
	}
}

func (p *turtleParser) parseDocument() (*Graph, error) {
	for {
		p.skipWS()
		if p.eof() {
			return p.graph, nil
		}
		if err := p.statement(); err != nil {
			return nil, err
		}
	}
}

func (p *turtleParser) statement() error {
	if !p.ntriples {
		if p.peek() == '@' {
			p.pos++
			word := p.readWord()
			switch word {
			case "prefix":
				if err := p.prefixDirective(); err != nil {
					return err
				}
			case "base":
				if err := p.baseDirective(); err != nil {
					return err
				}
			default:
				return p.errorf("unknown directive @%s", word)
			}
			p.skipWS()
			return p.expect('.')
		}
		if p.hasKeyword("PREFIX") {
			p.pos += len("PREFIX")
			return p.prefixDirective()
		}
		if p.hasKeyword("BASE") {
			p.pos += len("BASE")
			return p.baseDirective()
		}
	}

	if err := p.triples(); err != nil {
		return err
	}
	p.skipWS()
	return p.expect('.')
}

func (p *turtleParser) prefixDirective() error {
	p.skipWS()
	start := p.pos
	for !p.eof() && p.peek() != ':' {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isNameChar(r) && r != '.' {
			return p.errorf("invalid prefix name")
		}
		p.pos += size
	}
	prefix := p.src[start:p.pos]
	if err := p.expect(':'); err != nil {
		return err
	}
	p.skipWS()
	iri, err := p.readIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri.Value
	return nil
}

func (p *turtleParser) baseDirective() error {
	p.skipWS()
	iri, err := p.readIRIRef()
	if err != nil {
		return err
	}
	p.base = iri.Value
	return nil
}

func (p *turtleParser) triples() error {
	p.skipWS()
	if !p.ntriples && p.peek() == '[' {
		subject, err := p.readBlankNodePropertyList()
		if err != nil {
			return err
		}
		p.skipWS()
		if p.peek() == '.' {
			return nil
		}
		return p.predicateObjectList(subject)
	}
	subject, err := p.readSubject()
	if err != nil {
		return err
	}
	return p.predicateObjectList(subject)
}

func (p *turtleParser) predicateObjectList(subject Term) error {
	for {
		p.skipWS()
		predicate, err := p.readPredicate()
		if err != nil {
			return err
		}
		if err := p.objectList(subject, predicate); err != nil {
			return err
		}
		p.skipWS()
		if p.ntriples || p.peek() != ';' {
			return nil
		}
		for p.peek() == ';' {
			p.pos++
			p.skipWS()
		}
		if p.eof() || p.peek() == '.' || p.peek() == ']' {
			return nil
		}
	}
}

func (p *turtleParser) objectList(subject Term, predicate IRI) error {
	for {
		object, err := p.readObject()
		if err != nil {
			return err
		}
		p.graph.Add(Triple{S: subject, P: predicate, O: object})
		p.skipWS()
		if p.ntriples || p.peek() != ',' {
			return nil
		}
		p.pos++
	}
}

func (p *turtleParser) readSubject() (Term, error) {
	p.skipWS()
	switch c := p.peek(); {
	case c == '<':
		return p.readIRIRef()
	case c == '_':
		return p.readBlankLabel()
	case c == '(' && !p.ntriples:
		return p.readCollection()
	default:
		return p.readPrefixedName()
	}
}

func (p *turtleParser) readPredicate() (IRI, error) {
	p.skipWS()
	if p.peek() == '<' {
		return p.readIRIRef()
	}
	if !p.ntriples && p.peek() == 'a' && p.pos+1 <= len(p.src) {
		if p.pos+1 == len(p.src) || isDelimiter(p.src[p.pos+1]) {
			p.pos++
			return RDFType, nil
		}
	}
	return p.readPrefixedName()
}

func (p *turtleParser) readObject() (Term, error) {
	p.skipWS()
	c := p.peek()
	switch {
	case c == '<':
		return p.readIRIRef()
	case c == '_':
		return p.readBlankLabel()
	case c == '"' || (c == '\'' && !p.ntriples):
		return p.readLiteral()
	case p.ntriples:
		return nil, p.errorf("unexpected character %q", c)
	case c == '[':
		return p.readBlankNodePropertyList()
	case c == '(':
		return p.readCollection()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.readNumber()
	}
	if p.hasKeyword("true") {
		p.pos += 4
		return Literal{Lexical: "true", Datatype: XSDBoolean}, nil
	}
	if p.hasKeyword("false") {
		p.pos += 5
		return Literal{Lexical: "false", Datatype: XSDBoolean}, nil
	}
	return p.readPrefixedName()
}

func (p *turtleParser) readIRIRef() (IRI, error) {
	if err := p.expect('<'); err != nil {
		return IRI{}, err
	}
	var b strings.Builder
	for {
		if p.eof() {
			return IRI{}, p.errorf("unterminated IRI")
		}
		c := p.src[p.pos]
		switch {
		case c == '>':
			p.pos++
			value := b.String()
			if p.ntriples {
				return IRI{Value: value}, nil
			}
			resolved, err := ResolveIRI(p.base, value)
			if err != nil {
				return IRI{}, p.errorf("%v", err)
			}
			return IRI{Value: resolved}, nil
		case c == '\\':
			r, err := p.readUnicodeEscape()
			if err != nil {
				return IRI{}, err
			}
			b.WriteRune(r)
		case c <= 0x20 || c == '<' || c == '"':
			return IRI{}, p.errorf("invalid character %q in IRI", c)
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *turtleParser) readBlankLabel() (Term, error) {
	if !strings.HasPrefix(p.src[p.pos:], "_:") {
		return nil, p.errorf("expected blank node label")
	}
	p.pos += 2
	start := p.pos
	p.scanName()
	if p.pos == start {
		return nil, p.errorf("empty blank node label")
	}
	return BlankNode{ID: p.src[start:p.pos]}, nil
}

func (p *turtleParser) readBlankNodePropertyList() (Term, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	node := p.freshNode()
	p.skipWS()
	if p.peek() == ']' {
		p.pos++
		return node, nil
	}
	if err := p.predicateObjectList(node); err != nil {
		return nil, err
	}
	p.skipWS()
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *turtleParser) readCollection() (Term, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var items []Term
	for {
		p.skipWS()
		if p.eof() {
			return nil, p.errorf("unterminated collection")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		item, err := p.readObject()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return RDFNil, nil
	}
	head := p.freshNode()
	current := head
	for i, item := range items {
		p.graph.Add(Triple{S: current, P: RDFFirst, O: item})
		if i == len(items)-1 {
			p.graph.Add(Triple{S: current, P: RDFRest, O: RDFNil})
			break
		}
		next := p.freshNode()
		p.graph.Add(Triple{S: current, P: RDFRest, O: next})
		current = next
	}
	return head, nil
}

func (p *turtleParser) readPrefixedName() (IRI, error) {
	start := p.pos
	for !p.eof() && p.peek() != ':' {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isNameChar(r) && r != '.' {
			break
		}
		p.pos += size
	}
	if p.peek() != ':' {
		p.pos = start
		return IRI{}, p.errorf("expected IRI or prefixed name")
	}
	prefix := p.src[start:p.pos]
	p.pos++
	ns, ok := p.prefixes[prefix]
	if !ok {
		return IRI{}, p.errorf("undefined prefix %q", prefix)
	}

	var local strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			local.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		case c == '%' && p.pos+2 < len(p.src):
			local.WriteString(p.src[p.pos : p.pos+3])
			p.pos += 3
			continue
		case c == ':':
			local.WriteByte(c)
			p.pos++
			continue
		case c == '.':
			// A dot ends the name unless more name characters follow.
			if p.pos+1 < len(p.src) {
				r, _ := utf8.DecodeRuneInString(p.src[p.pos+1:])
				if isNameChar(r) || r == ':' {
					local.WriteByte(c)
					p.pos++
					continue
				}
			}
		}
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isNameChar(r) {
			break
		}
		local.WriteRune(r)
		p.pos += size
	}
	return IRI{Value: ns + local.String()}, nil
}

func (p *turtleParser) readLiteral() (Term, error) {
	lexical, err := p.readString()
	if err != nil {
		return nil, err
	}
	switch {
	case p.peek() == '@':
		p.pos++
		start := p.pos
		for !p.eof() {
			c := p.src[p.pos]
			if !(c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				break
			}
			p.pos++
		}
		if p.pos == start {
			return nil, p.errorf("empty language tag")
		}
		return NewLangLiteral(lexical, strings.ToLower(p.src[start:p.pos])), nil
	case strings.HasPrefix(p.src[p.pos:], "^^"):
		p.pos += 2
		var datatype IRI
		if p.peek() == '<' {
			datatype, err = p.readIRIRef()
		} else if !p.ntriples {
			datatype, err = p.readPrefixedName()
		} else {
			err = p.errorf("expected datatype IRI")
		}
		if err != nil {
			return nil, err
		}
		return NewTypedLiteral(lexical, datatype), nil
	default:
		return NewLiteral(lexical), nil
	}
}

func (p *turtleParser) readString() (string, error) {
	quote := p.src[p.pos]
	long := strings.Repeat(string(quote), 3)
	isLong := !p.ntriples && strings.HasPrefix(p.src[p.pos:], long)
	if isLong {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		if isLong && strings.HasPrefix(p.src[p.pos:], long) {
			p.pos += 3
			return b.String(), nil
		}
		if !isLong && c == quote {
			p.pos++
			return b.String(), nil
		}
		if !isLong && (c == '\n' || c == '\r') {
			return "", p.errorf("line break in string")
		}
		if c != '\\' {
			b.WriteByte(c)
			p.pos++
			continue
		}
		if p.pos+1 >= len(p.src) {
			return "", p.errorf("unterminated escape")
		}
		switch p.src[p.pos+1] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		case 'u', 'U':
			r, err := p.readUnicodeEscape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
			continue
		default:
			return "", p.errorf("invalid escape \\%c", p.src[p.pos+1])
		}
		p.pos += 2
	}
}

func (p *turtleParser) readUnicodeEscape() (rune, error) {
	if p.pos+1 >= len(p.src) {
		return 0, p.errorf("unterminated escape")
	}
	var width int
	switch p.src[p.pos+1] {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, p.errorf("invalid escape \\%c", p.src[p.pos+1])
	}
	start := p.pos + 2
	if start+width > len(p.src) {
		return 0, p.errorf("truncated unicode escape")
	}
	code, err := strconv.ParseUint(p.src[start:start+width], 16, 32)
	if err != nil {
		return 0, p.errorf("invalid unicode escape")
	}
	p.pos = start + width
	return rune(code), nil
}

func (p *turtleParser) readNumber() (Term, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	digits := p.scanDigits()
	datatype := XSDInteger
	if p.peek() == '.' && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1]) {
		p.pos++
		p.scanDigits()
		digits++
		datatype = XSDDecimal
	}
	if c := p.peek(); (c == 'e' || c == 'E') && digits > 0 {
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if p.scanDigits() == 0 {
			return nil, p.errorf("malformed exponent")
		}
		datatype = XSDDouble
	}
	if digits == 0 {
		p.pos = start
		return nil, p.errorf("malformed number")
	}
	return Literal{Lexical: p.src[start:p.pos], Datatype: datatype}, nil
}

func (p *turtleParser) scanDigits() int {
	n := 0
	for !p.eof() && isDigit(p.src[p.pos]) {
		p.pos++
		n++
	}
	return n
}

func (p *turtleParser) scanName() {
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == '.' {
			next, _ := utf8.DecodeRuneInString(p.src[p.pos+size:])
			if p.pos+size < len(p.src) && isNameChar(next) {
				p.pos += size
				continue
			}
			return
		}
		if !isNameChar(r) {
			return
		}
		p.pos += size
	}
}

func (p *turtleParser) freshNode() BlankNode {
	p.fresh++
	return BlankNode{ID: fmt.Sprintf("genid%d", p.fresh)}
}

func (p *turtleParser) readWord() string {
	start := p.pos
	for !p.eof() && unicode.IsLetter(rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// hasKeyword reports whether a case-insensitive keyword starts at the current
// position and is followed by a delimiter.
func (p *turtleParser) hasKeyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.src) || !strings.EqualFold(p.src[p.pos:end], kw) {
		return false
	}
	return end == len(p.src) || isDelimiter(p.src[end])
}

func (p *turtleParser) skipWS() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case '#':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *turtleParser) expect(c byte) error {
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *turtleParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *turtleParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *turtleParser) errorf(format string, args ...interface{}) error {
	consumed := p.src[:min(p.pos, len(p.src))]
	line := strings.Count(consumed, "\n") + 1
	column := p.pos - strings.LastIndex(consumed, "\n")
	return &SyntaxError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || r == 0xB7
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '<', '"', '\'', '[', '(', '#', ';', ',', '.', ']', ')':
		return true
	}
	return false
}
