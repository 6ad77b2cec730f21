package bridge

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/anglo-korean/rdf"
	"github.com/cayleygraph/quad"
)

//spellchecker:words rdfxml

// DecodeRDF reads all triples from r in the given format and returns them as a graph.
// Terms that could not be written back to a store, such as iris containing spaces or angle brackets,
// are rejected with an error wrapping sparql.ErrInvalidTerm.
func DecodeRDF(r io.Reader, format rdf.Format) ([]quad.Quad, error) {
	dec := rdf.NewTripleDecoder(r, format)

	var quads []quad.Quad
	for {
		triple, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode triple: %w", err)
		}
		q := quad.Quad{
			Subject:   fromTerm(triple.Subj),
			Predicate: fromTerm(triple.Pred),
			Object:    fromTerm(triple.Obj),
		}
		if err := sparql.CheckGraph([]quad.Quad{q}); err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func fromTerm(term rdf.Term) quad.Value {
	switch t := term.(type) {
	case rdf.IRI:
		return quad.IRI(t.String())
	case rdf.Blank:
		return quad.BNode(strings.TrimPrefix(t.String(), "_:"))
	case rdf.Literal:
		if lang := t.Lang(); lang != "" {
			return quad.LangString{Value: quad.String(t.String()), Lang: lang}
		}
		if dt := t.DataType.String(); dt != "" && dt != ns.XSDString {
			return quad.TypedString{Value: quad.String(t.String()), Type: quad.IRI(dt)}
		}
		return quad.String(t.String())
	default:
		return quad.String(term.String())
	}
}

// EncodeRDF writes the graph to w in the given format.
// Only formats supported by the rdf package's encoder (n-triples, turtle) can be written.
func EncodeRDF(w io.Writer, quads []quad.Quad, format rdf.Format) error {
	enc := rdf.NewTripleEncoder(w, format)
	for _, q := range quads {
		triple, err := toTriple(q)
		if err != nil {
			return err
		}
		if err := enc.Encode(triple); err != nil {
			return fmt.Errorf("failed to encode triple: %w", err)
		}
	}
	return enc.Close()
}

func toTriple(q quad.Quad) (triple rdf.Triple, err error) {
	triple.Subj, err = toNode(q.Subject)
	if err != nil {
		return
	}

	iri, ok := q.Predicate.(quad.IRI)
	if !ok {
		return triple, fmt.Errorf("predicate %s is not an iri", q.Predicate)
	}
	triple.Pred, err = rdf.NewIRI(string(iri))
	if err != nil {
		return
	}

	switch o := q.Object.(type) {
	case quad.IRI:
		triple.Obj, err = rdf.NewIRI(string(o))
	case quad.BNode:
		triple.Obj, err = rdf.NewBlank(string(o))
	case quad.LangString:
		triple.Obj, err = rdf.NewLangLiteral(string(o.Value), o.Lang)
	case quad.TypedString:
		var dt rdf.IRI
		dt, err = rdf.NewIRI(string(o.Type))
		if err == nil {
			triple.Obj = rdf.NewTypedLiteral(string(o.Value), dt)
		}
	case quad.String:
		triple.Obj, err = rdf.NewLiteral(string(o))
	default:
		triple.Obj, err = rdf.NewLiteral(fmt.Sprint(o.Native()))
	}
	return
}

func toNode(v quad.Value) (rdf.Subject, error) {
	switch v := v.(type) {
	case quad.IRI:
		return rdf.NewIRI(string(v))
	case quad.BNode:
		return rdf.NewBlank(string(v))
	default:
		return nil, fmt.Errorf("%s is not a node", v)
	}
}
