package sparql

import (
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// Operation is a single update operation.
// Exactly one of DeleteWhere and InsertData is used.
type Operation struct {
	DeleteWhere []Triple
	InsertData  []quad.Quad
}

// DeleteWhere returns an operation deleting all triples matching the patterns.
func DeleteWhere(patterns ...Triple) Operation {
	return Operation{DeleteWhere: patterns}
}

// InsertData returns an operation inserting the given triples.
func InsertData(graph []quad.Quad) Operation {
	return Operation{InsertData: graph}
}

// Update is a sequence of operations sent as a single request.
type Update []Operation

// Replace returns an update replacing all triples with subject uri by graph.
//
// The update is sent as one request, but stores may still apply it non-atomically.
func Replace(uri string, graph []quad.Quad) Update {
	return Update{
		DeleteWhere(T(IRI(uri), Var("predicate"), Var("object"))),
		InsertData(graph),
	}
}

// String renders this update as SPARQL text.
func (u Update) String() string {
	var b strings.Builder
	first := true
	for _, op := range u {
		if op.Empty() {
			continue
		}
		if !first {
			b.WriteString(";\n")
		}
		first = false
		op.write(&b)
	}
	return b.String()
}

// Empty checks if op does nothing.
func (op Operation) Empty() bool {
	return len(op.DeleteWhere) == 0 && len(op.InsertData) == 0
}

func (op Operation) write(b *strings.Builder) {
	if len(op.InsertData) > 0 {
		b.WriteString("INSERT DATA {\n")
		writeTriples(b, op.InsertData)
		b.WriteString("}")
		return
	}

	b.WriteString("DELETE WHERE {")
	for _, t := range op.DeleteWhere {
		b.WriteString(" ")
		t.write(b)
	}
	b.WriteString(" }")
}

// writeTriples writes graph in n-triples syntax.
// Graph labels are dropped.
func writeTriples(b *strings.Builder, graph []quad.Quad) {
	w := nquads.NewWriter(b)
	for _, q := range graph {
		q.Label = nil
		_ = w.WriteQuad(q) // strings.Builder never fails
	}
	_ = w.Close()
}
