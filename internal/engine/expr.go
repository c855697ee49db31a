package engine

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
)

var (
	errTypeError = errors.New("type error")
	errUnbound   = errors.New("unbound variable")

	trueLit  = rdf.Literal{Lexical: "true", Datatype: rdf.XSDBoolean}
	falseLit = rdf.Literal{Lexical: "false", Datatype: rdf.XSDBoolean}
)

func boolLiteral(b bool) rdf.Literal {
	if b {
		return trueLit
	}
	return falseLit
}

// effectiveBoolean evaluates expr and reduces it to its effective boolean
// value.
func effectiveBoolean(expr ast.Expression, mu Binding) (bool, error) {
	v, err := evaluate(expr, mu)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

func ebv(v rdf.Term) (bool, error) {
	lit, ok := v.(rdf.Literal)
	if !ok {
		return false, errTypeError
	}
	switch dt := lit.EffectiveDatatype(); {
	case dt == rdf.XSDBoolean:
		return lit.Lexical == "true" || lit.Lexical == "1", nil
	case isNumericType(dt):
		f, err := strconv.ParseFloat(lit.Lexical, 64)
		if err != nil {
			return false, nil
		}
		return f != 0 && !math.IsNaN(f), nil
	case dt == rdf.XSDString:
		return lit.Lexical != "", nil
	}
	return false, errTypeError
}

func isNumericType(dt rdf.IRI) bool {
	return dt == rdf.XSDInteger || dt == rdf.XSDDecimal || dt == rdf.XSDDouble ||
		dt.Value == rdf.XSDNamespace+"float" || dt.Value == rdf.XSDNamespace+"int" ||
		dt.Value == rdf.XSDNamespace+"long" || dt.Value == rdf.XSDNamespace+"short" ||
		dt.Value == rdf.XSDNamespace+"nonNegativeInteger" || dt.Value == rdf.XSDNamespace+"positiveInteger"
}

// numeric returns the value of a numeric literal.
func numeric(v rdf.Term) (float64, rdf.IRI, bool) {
	lit, ok := v.(rdf.Literal)
	if !ok || lit.Lang != "" || !isNumericType(lit.Datatype) {
		return 0, rdf.IRI{}, false
	}
	f, err := strconv.ParseFloat(lit.Lexical, 64)
	if err != nil {
		return 0, rdf.IRI{}, false
	}
	dt := lit.Datatype
	if dt != rdf.XSDDecimal && dt != rdf.XSDDouble {
		if dt.Value == rdf.XSDNamespace+"float" {
			dt = rdf.XSDDouble
		} else {
			dt = rdf.XSDInteger
		}
	}
	return f, dt, true
}

// stringValue returns the lexical form of a simple, xsd:string or
// language-tagged literal.
func stringValue(v rdf.Term) (rdf.Literal, bool) {
	lit, ok := v.(rdf.Literal)
	if !ok {
		return rdf.Literal{}, false
	}
	if dt := lit.EffectiveDatatype(); dt != rdf.XSDString && dt != rdf.RDFLangString {
		return rdf.Literal{}, false
	}
	return lit, true
}

func evaluate(expr ast.Expression, mu Binding) (rdf.Term, error) {
	switch e := expr.(type) {
	case *ast.TermExpr:
		v := mu.resolve(e.Term)
		if v == nil {
			return nil, errUnbound
		}
		return v, nil
	case *ast.UnaryExpr:
		return evalUnary(e, mu)
	case *ast.BinaryExpr:
		return evalBinary(e, mu)
	case *ast.CallExpr:
		return evalCall(e, mu)
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func evalUnary(e *ast.UnaryExpr, mu Binding) (rdf.Term, error) {
	if e.Op == "!" {
		b, err := effectiveBoolean(e.Operand, mu)
		if err != nil {
			return nil, err
		}
		return boolLiteral(!b), nil
	}
	v, err := evaluate(e.Operand, mu)
	if err != nil {
		return nil, err
	}
	f, dt, ok := numeric(v)
	if !ok {
		return nil, errTypeError
	}
	if e.Op == "-" {
		f = -f
	}
	return numericLiteral(f, dt), nil
}

func evalBinary(e *ast.BinaryExpr, mu Binding) (rdf.Term, error) {
	switch e.Op {
	case "||", "&&":
		l, lerr := effectiveBoolean(e.Left, mu)
		r, rerr := effectiveBoolean(e.Right, mu)
		if e.Op == "||" {
			if (lerr == nil && l) || (rerr == nil && r) {
				return trueLit, nil
			}
		} else if (lerr == nil && !l) || (rerr == nil && !r) {
			return falseLit, nil
		}
		if lerr != nil {
			return nil, lerr
		}
		if rerr != nil {
			return nil, rerr
		}
		return boolLiteral(e.Op == "&&"), nil
	}

	l, err := evaluate(e.Left, mu)
	if err != nil {
		return nil, err
	}
	r, err := evaluate(e.Right, mu)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "+", "-", "*", "/":
		return arithmetic(e.Op, l, r)
	}
	b, err := compare(e.Op, l, r)
	if err != nil {
		return nil, err
	}
	return boolLiteral(b), nil
}

func arithmetic(op string, l, r rdf.Term) (rdf.Term, error) {
	lf, ldt, lok := numeric(l)
	rf, rdt, rok := numeric(r)
	if !lok || !rok {
		return nil, errTypeError
	}

	dt := rdf.XSDInteger
	switch {
	case ldt == rdf.XSDDouble || rdt == rdf.XSDDouble:
		dt = rdf.XSDDouble
	case ldt == rdf.XSDDecimal || rdt == rdf.XSDDecimal || op == "/":
		dt = rdf.XSDDecimal
	}

	var f float64
	switch op {
	case "+":
		f = lf + rf
	case "-":
		f = lf - rf
	case "*":
		f = lf * rf
	case "/":
		if rf == 0 && dt != rdf.XSDDouble {
			return nil, errTypeError
		}
		f = lf / rf
	}
	return numericLiteral(f, dt), nil
}

func numericLiteral(f float64, dt rdf.IRI) rdf.Literal {
	var lexical string
	switch dt {
	case rdf.XSDInteger:
		lexical = strconv.FormatFloat(f, 'f', 0, 64)
	case rdf.XSDDecimal:
		lexical = strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(lexical, ".") {
			lexical += ".0"
		}
	default:
		lexical = strconv.FormatFloat(f, 'E', -1, 64)
	}
	return rdf.Literal{Lexical: lexical, Datatype: dt}
}

// compare implements the relational operators.
func compare(op string, l, r rdf.Term) (bool, error) {
	c, err := orderValues(l, r)
	if err != nil {
		if op == "=" || op == "!=" {
			equal := l == r
			if !equal {
				if _, lit := l.(rdf.Literal); lit {
					if _, rlit := r.(rdf.Literal); rlit && !comparableLiterals(l, r) {
						return false, errTypeError
					}
				}
			}
			return equal == (op == "="), nil
		}
		return false, err
	}

	switch op {
	case "=":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case ">":
		return c > 0, nil
	case "<=":
		return c <= 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %s", op)
}

// comparableLiterals reports whether two unequal literals may be declared
// different; literals of unknown datatypes cannot.
func comparableLiterals(l, r rdf.Term) bool {
	known := func(t rdf.Term) bool {
		lit := t.(rdf.Literal)
		dt := lit.EffectiveDatatype()
		return dt == rdf.XSDString || dt == rdf.RDFLangString || dt == rdf.XSDBoolean || isNumericType(dt)
	}
	return known(l) && known(r)
}

// orderValues compares values with a common ordering: numbers, plain strings
// and booleans. Other combinations are a type error.
func orderValues(l, r rdf.Term) (int, error) {
	if lf, _, ok := numeric(l); ok {
		if rf, _, ok := numeric(r); ok {
			return cmpFloat(lf, rf), nil
		}
		return 0, errTypeError
	}
	ll, lok := l.(rdf.Literal)
	rl, rok := r.(rdf.Literal)
	if !lok || !rok {
		return 0, errTypeError
	}
	ldt, rdt := ll.EffectiveDatatype(), rl.EffectiveDatatype()
	switch {
	case ldt == rdf.XSDString && rdt == rdf.XSDString:
		return strings.Compare(ll.Lexical, rl.Lexical), nil
	case ldt == rdf.XSDBoolean && rdt == rdf.XSDBoolean:
		lb, _ := ebv(ll)
		rb, _ := ebv(rl)
		return cmpBool(lb, rb), nil
	}
	return 0, errTypeError
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

//nolint:gocyclo // one case per built-in
func evalCall(e *ast.CallExpr, mu Binding) (rdf.Term, error) {
	if e.Name == "BOUND" {
		v := e.Args[0].(*ast.TermExpr)
		return boolLiteral(mu.resolve(v.Term) != nil), nil
	}

	args := make([]rdf.Term, len(e.Args))
	for i, a := range e.Args {
		v, err := evaluate(a, mu)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch e.Name {
	case "ISIRI", "ISURI":
		_, ok := args[0].(rdf.IRI)
		return boolLiteral(ok), nil
	case "ISBLANK":
		_, ok := args[0].(rdf.BlankNode)
		return boolLiteral(ok), nil
	case "ISLITERAL":
		_, ok := args[0].(rdf.Literal)
		return boolLiteral(ok), nil
	case "STR":
		switch v := args[0].(type) {
		case rdf.IRI:
			return rdf.NewLiteral(v.Value), nil
		case rdf.Literal:
			return rdf.NewLiteral(v.Lexical), nil
		}
		return nil, errTypeError
	case "LANG":
		if lit, ok := args[0].(rdf.Literal); ok {
			return rdf.NewLiteral(lit.Lang), nil
		}
		return nil, errTypeError
	case "DATATYPE":
		if lit, ok := args[0].(rdf.Literal); ok {
			return lit.EffectiveDatatype(), nil
		}
		return nil, errTypeError
	case "SAMETERM":
		return boolLiteral(args[0] == args[1]), nil
	case "LANGMATCHES":
		tag, ok1 := args[0].(rdf.Literal)
		rng, ok2 := args[1].(rdf.Literal)
		if !ok1 || !ok2 {
			return nil, errTypeError
		}
		return boolLiteral(langMatches(tag.Lexical, rng.Lexical)), nil
	}

	text, ok := stringValue(args[0])
	if !ok {
		return nil, errTypeError
	}
	switch e.Name {
	case "STRLEN":
		return rdf.Literal{Lexical: strconv.Itoa(utf8.RuneCountInString(text.Lexical)), Datatype: rdf.XSDInteger}, nil
	case "LCASE":
		text.Lexical = strings.ToLower(text.Lexical)
		return text, nil
	case "UCASE":
		text.Lexical = strings.ToUpper(text.Lexical)
		return text, nil
	}

	arg, ok := stringValue(args[1])
	if !ok {
		return nil, errTypeError
	}
	switch e.Name {
	case "CONTAINS":
		return boolLiteral(strings.Contains(text.Lexical, arg.Lexical)), nil
	case "STRSTARTS":
		return boolLiteral(strings.HasPrefix(text.Lexical, arg.Lexical)), nil
	case "STRENDS":
		return boolLiteral(strings.HasSuffix(text.Lexical, arg.Lexical)), nil
	case "REGEX":
		flags := ""
		if len(args) == 3 {
			f, ok := stringValue(args[2])
			if !ok {
				return nil, errTypeError
			}
			flags = f.Lexical
		}
		re, err := compileRegex(arg.Lexical, flags)
		if err != nil {
			return nil, errTypeError
		}
		return boolLiteral(re.MatchString(text.Lexical)), nil
	}
	return nil, fmt.Errorf("unsupported function %s", e.Name)
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	for _, f := range flags {
		if !strings.ContainsRune("ism", f) {
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func langMatches(tag, rng string) bool {
	if rng == "*" {
		return tag != ""
	}
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}
