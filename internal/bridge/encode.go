package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/cayleygraph/quad"
	"github.com/google/uuid"
)

// InvariantError is returned when a resource holds a value of an unknown kind.
// It indicates a programming error upstream, not a user error.
type InvariantError struct {
	Subject   string
	Predicate string
	Value     resource.Value
}

func (ie *InvariantError) Error() string {
	return fmt.Sprintf("invalid value %#v for <%s> <%s>: expected literal or uri", ie.Value, ie.Subject, ie.Predicate)
}

// Graph flattens the given entities into a single graph.
// Nested resources are flattened recursively into the same graph.
func Graph(entities ...resource.Entity) ([]quad.Quad, error) {
	enc := encoder{
		terms: make(map[*resource.Resource]quad.Value),
	}
	for _, e := range entities {
		if _, err := enc.flatten(e.Res()); err != nil {
			return nil, err
		}
	}
	return enc.quads, nil
}

type encoder struct {
	terms map[*resource.Resource]quad.Value // subject terms of resources already flattened
	quads []quad.Quad
}

// flatten adds the triples of r to the graph and returns its subject term.
func (enc *encoder) flatten(r *resource.Resource) (quad.Value, error) {
	if term, ok := enc.terms[r]; ok {
		return term, nil
	}

	var subject quad.Value
	if r.IsBlank() {
		subject = quad.BNode("b" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	} else {
		subject = quad.IRI(r.URI())
	}
	enc.terms[r] = subject

	for _, predicate := range r.Predicates() {
		for _, value := range r.Get(predicate) {
			object, err := enc.term(value)
			if errors.Is(err, errUnknownValue) {
				return nil, &InvariantError{Subject: r.URI(), Predicate: predicate, Value: value}
			}
			if err != nil {
				return nil, err
			}
			enc.quads = append(enc.quads, quad.Quad{
				Subject:   subject,
				Predicate: quad.IRI(predicate),
				Object:    object,
			})
		}
	}
	return subject, nil
}

var errUnknownValue = errors.New("unknown value")

func (enc *encoder) term(value resource.Value) (quad.Value, error) {
	switch v := value.(type) {
	case resource.Literal:
		return FromLiteral(v), nil
	case resource.URI:
		return quad.IRI(string(v)), nil
	case resource.Entity:
		r := v.Res()
		if r == nil {
			return nil, errUnknownValue
		}
		return enc.flatten(r)
	default:
		return nil, errUnknownValue
	}
}

// FromLiteral converts a literal into a quad value.
func FromLiteral(l resource.Literal) quad.Value {
	switch {
	case l.Language != "":
		return quad.LangString{Value: quad.String(l.Value), Lang: l.Language}
	case l.Datatype != "" && l.Datatype != ns.XSDString:
		return quad.TypedString{Value: quad.String(l.Value), Type: quad.IRI(l.Datatype)}
	default:
		return quad.String(l.Value)
	}
}

// FromValue converts a property value into a quad value.
// Nested entities are referenced by their uri; blank entities cannot be referenced.
func FromValue(value resource.Value) (quad.Value, bool) {
	switch v := value.(type) {
	case resource.Literal:
		return FromLiteral(v), true
	default:
		uri, ok := resource.URIOf(value)
		if !ok {
			return nil, false
		}
		return quad.IRI(uri), true
	}
}
