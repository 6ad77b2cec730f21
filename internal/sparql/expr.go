package sparql

import (
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"
)

//spellchecker:words lcase

// Solution binds variable names to terms.
type Solution map[string]quad.Value

// Expr is a filter expression.
type Expr interface {
	write(b *strings.Builder)

	// Eval evaluates this expression against a solution.
	// Evaluation errors (such as unbound variables in comparisons) yield false.
	Eval(s Solution) bool
}

// Operand is a value inside a comparison.
// Node and LowerStr implement Operand.
type Operand interface {
	write(b *strings.Builder)
	value(s Solution) (quad.Value, bool)
}

// Or holds when any of its expressions holds.
type Or []Expr

func (or Or) write(b *strings.Builder) {
	writeJoined(b, []Expr(or), " || ")
}

func (or Or) Eval(s Solution) bool {
	for _, e := range or {
		if e.Eval(s) {
			return true
		}
	}
	return false
}

// And holds when all of its expressions hold.
type And []Expr

func (and And) write(b *strings.Builder) {
	writeJoined(b, []Expr(and), " && ")
}

func (and And) Eval(s Solution) bool {
	for _, e := range and {
		if !e.Eval(s) {
			return false
		}
	}
	return true
}

func writeJoined(b *strings.Builder, exprs []Expr, sep string) {
	b.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(sep)
		}
		e.write(b)
	}
	b.WriteString(")")
}

// Not negates an expression.
type Not struct{ Expr Expr }

func (not Not) write(b *strings.Builder) {
	b.WriteString("!")
	not.Expr.write(b)
}

func (not Not) Eval(s Solution) bool {
	return !not.Expr.Eval(s)
}

// Bound checks if a variable is bound.
type Bound string

func (bound Bound) write(b *strings.Builder) {
	b.WriteString("bound(?")
	b.WriteString(string(bound))
	b.WriteString(")")
}

func (bound Bound) Eval(s Solution) bool {
	_, ok := s[string(bound)]
	return ok
}

// Compare compares two operands for (in)equality.
type Compare struct {
	Left, Right Operand
	Negate      bool
}

// Equals returns an expression checking left = right.
func Equals(left, right Operand) Compare {
	return Compare{Left: left, Right: right}
}

// NotEquals returns an expression checking left != right.
func NotEquals(left, right Operand) Compare {
	return Compare{Left: left, Right: right, Negate: true}
}

func (c Compare) write(b *strings.Builder) {
	c.Left.write(b)
	if c.Negate {
		b.WriteString(" != ")
	} else {
		b.WriteString(" = ")
	}
	c.Right.write(b)
}

func (c Compare) Eval(s Solution) bool {
	left, ok := c.Left.value(s)
	if !ok {
		return false
	}
	right, ok := c.Right.value(s)
	if !ok {
		return false
	}
	return SameTerm(left, right) != c.Negate
}

// LowerStr is the operand lcase(str(?Var)).
type LowerStr string

func (ls LowerStr) write(b *strings.Builder) {
	b.WriteString("lcase(str(?")
	b.WriteString(string(ls))
	b.WriteString("))")
}

func (ls LowerStr) value(s Solution) (quad.Value, bool) {
	v, ok := s[string(ls)]
	if !ok {
		return nil, false
	}
	return quad.String(strings.ToLower(Lexical(v))), true
}

func (n Node) write(b *strings.Builder) {
	if n.IsVar() {
		b.WriteString("?")
		b.WriteString(n.Var)
		return
	}
	b.WriteString(n.Term.String())
}

func (n Node) value(s Solution) (quad.Value, bool) {
	if !n.IsVar() {
		return n.Term, n.Term != nil
	}
	v, ok := s[n.Var]
	return v, ok
}

// Lexical returns the lexical form of a term, that is the value of str().
func Lexical(v quad.Value) string {
	switch v := v.(type) {
	case quad.IRI:
		return string(v)
	case quad.BNode:
		return string(v)
	case quad.String:
		return string(v)
	case quad.LangString:
		return string(v.Value)
	case quad.TypedString:
		return string(v.Value)
	default:
		return fmt.Sprint(v.Native())
	}
}

// SameTerm checks if two terms are identical.
// Literals typed as xsd:string are identical to plain literals.
func SameTerm(a, b quad.Value) bool {
	return normalize(a).String() == normalize(b).String()
}

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

func normalize(v quad.Value) quad.Value {
	if ts, ok := v.(quad.TypedString); ok && string(ts.Type) == xsdString {
		return ts.Value
	}
	return v
}
