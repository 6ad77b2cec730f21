package sparql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"
)

// ErrInvalidTerm indicates a term that can not be written as SPARQL text.
var ErrInvalidTerm = errors.New("invalid term")

// iriExcluded are the characters not allowed inside an IRIREF, besides control characters and space.
const iriExcluded = "<>\"{}|^`\\"

// CheckIRI checks that iri can be written between angle brackets.
func CheckIRI(iri string) error {
	if iri == "" {
		return fmt.Errorf("%w: empty iri", ErrInvalidTerm)
	}
	for _, r := range iri {
		if r <= 0x20 || r == 0x7f || strings.ContainsRune(iriExcluded, r) {
			return fmt.Errorf("%w: iri %q contains %q", ErrInvalidTerm, iri, r)
		}
	}
	return nil
}

// CheckTerm checks that v can be written as SPARQL or n-triples text.
// Literal values are escaped when written and always pass.
func CheckTerm(v quad.Value) error {
	switch v := v.(type) {
	case nil:
		return fmt.Errorf("%w: missing term", ErrInvalidTerm)
	case quad.IRI:
		return CheckIRI(string(v))
	case quad.BNode:
		if !isName(string(v), "-.") {
			return fmt.Errorf("%w: blank node %q", ErrInvalidTerm, string(v))
		}
	case quad.LangString:
		if v.Lang != "" && !isName(v.Lang, "-") {
			return fmt.Errorf("%w: language tag %q", ErrInvalidTerm, v.Lang)
		}
	case quad.TypedString:
		return CheckIRI(string(v.Type))
	}
	return nil
}

// CheckGraph checks every term of graph using CheckTerm.
func CheckGraph(graph []quad.Quad) error {
	for _, q := range graph {
		for _, v := range [...]quad.Value{q.Subject, q.Predicate, q.Object} {
			if err := CheckTerm(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// isName checks that s is non-empty and consists of ascii letters, digits, '_' and extra.
func isName(s string, extra string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '_':
		case strings.ContainsRune(extra, r):
		default:
			return false
		}
	}
	return true
}

// Check checks that all fixed terms and variables of q can be rendered.
func (q *Query) Check() error {
	for _, n := range q.Describe {
		if err := n.check(); err != nil {
			return err
		}
	}
	for _, v := range q.Vars {
		if err := checkVar(v); err != nil {
			return err
		}
	}
	if q.Count != nil {
		if err := checkVar(q.Count.Var); err != nil {
			return err
		}
		if err := checkVar(q.Count.As); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := checkVar(q.OrderBy); err != nil {
			return err
		}
	}
	return q.Where.check()
}

// Check checks that all fixed terms and variables of u can be rendered.
func (u Update) Check() error {
	for _, op := range u {
		for _, t := range op.DeleteWhere {
			if err := t.check(); err != nil {
				return err
			}
		}
		if err := CheckGraph(op.InsertData); err != nil {
			return err
		}
	}
	return nil
}

func (g Group) check() error {
	if g.Select != nil {
		if err := g.Select.Check(); err != nil {
			return err
		}
	}
	for _, t := range g.Triples {
		if err := t.check(); err != nil {
			return err
		}
	}
	for _, groups := range [...][]Group{g.Optional, g.NotExists} {
		for _, group := range groups {
			if err := group.check(); err != nil {
				return err
			}
		}
	}
	for _, f := range g.Filters {
		if err := checkExpr(f); err != nil {
			return err
		}
	}
	return nil
}

func (t Triple) check() error {
	for _, n := range [...]Node{t.S, t.P, t.O} {
		if err := n.check(); err != nil {
			return err
		}
	}
	return nil
}

func (n Node) check() error {
	if n.IsVar() {
		return checkVar(n.Var)
	}
	return CheckTerm(n.Term)
}

func checkVar(name string) error {
	if !isName(name, "") {
		return fmt.Errorf("%w: variable %q", ErrInvalidTerm, name)
	}
	return nil
}

func checkExpr(e Expr) error {
	switch e := e.(type) {
	case Or:
		return checkExprs(e)
	case And:
		return checkExprs(e)
	case Not:
		return checkExpr(e.Expr)
	case Bound:
		return checkVar(string(e))
	case Compare:
		if err := checkOperand(e.Left); err != nil {
			return err
		}
		return checkOperand(e.Right)
	default:
		return fmt.Errorf("%w: unknown expression %T", ErrInvalidTerm, e)
	}
}

func checkExprs(exprs []Expr) error {
	for _, e := range exprs {
		if err := checkExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func checkOperand(o Operand) error {
	switch o := o.(type) {
	case Node:
		return o.check()
	case LowerStr:
		return checkVar(string(o))
	default:
		return fmt.Errorf("%w: unknown operand %T", ErrInvalidTerm, o)
	}
}
