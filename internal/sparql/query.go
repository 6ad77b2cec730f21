// Package sparql provides a typed model of the SPARQL queries and updates issued by skosd,
// together with the Client interface used to execute them.
package sparql

import (
	"github.com/cayleygraph/quad"
)

// Node is a position inside a triple pattern.
// It is either a variable (Var != "") or a fixed term.
type Node struct {
	Var  string
	Term quad.Value
}

// Var returns a variable node.
func Var(name string) Node {
	return Node{Var: name}
}

// Term returns a node holding the given term.
func Term(v quad.Value) Node {
	return Node{Term: v}
}

// IRI returns a node holding the given iri.
func IRI(iri string) Node {
	return Node{Term: quad.IRI(iri)}
}

// IsVar checks if this node is a variable.
func (n Node) IsVar() bool {
	return n.Var != ""
}

// Triple is a triple pattern.
type Triple struct {
	S, P, O Node

	// Plus turns the predicate into a one-or-more property path.
	Plus bool
}

// T creates a new triple pattern.
func T(s, p, o Node) Triple {
	return Triple{S: s, P: p, O: o}
}

// Group is a group graph pattern.
//
// Evaluation order is: Select, Triples, Optional, NotExists, Filters.
type Group struct {
	Select    *Query   // sub-select providing initial solutions
	Triples   []Triple // basic graph pattern
	Optional  []Group  // left-joined groups
	NotExists []Group  // FILTER NOT EXISTS groups
	Filters   []Expr   // filters, all of which must hold
}

// Form is the form of a query.
type Form int

const (
	Describe Form = iota
	Ask
	Select
)

func (f Form) String() string {
	switch f {
	case Describe:
		return "describe"
	case Ask:
		return "ask"
	case Select:
		return "select"
	default:
		return "unknown"
	}
}

// Count describes a SELECT (COUNT(?Var) AS ?As) projection.
type Count struct {
	Var      string
	As       string
	Distinct bool
}

// Query is a query of one of the supported forms.
type Query struct {
	Form Form

	Describe []Node // describe targets (Describe only)

	Distinct bool     // SELECT DISTINCT
	Vars     []string // projected variables (Select only)
	Count    *Count   // count projection (Select only, replaces Vars)

	Where Group

	OrderBy string // variable to order by
	Limit   int    // zero means no limit
	Offset  int
}

// NewDescribe creates a describe query.
func NewDescribe(where Group, targets ...Node) *Query {
	return &Query{Form: Describe, Describe: targets, Where: where}
}

// NewAsk creates an ask query.
func NewAsk(where Group) *Query {
	return &Query{Form: Ask, Where: where}
}

// NewSelect creates a select query projecting the given variables.
func NewSelect(where Group, vars ...string) *Query {
	return &Query{Form: Select, Vars: vars, Where: where}
}

// NewCount creates a query counting distinct bindings of v into ?count.
func NewCount(where Group, v string) *Query {
	return &Query{Form: Select, Count: &Count{Var: v, As: "count", Distinct: true}, Where: where}
}
