package bridge

import (
	"errors"
	"fmt"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/cayleygraph/quad"
)

// ErrCycle is returned when untyped nodes of a graph reference each other in a cycle.
var ErrCycle = errors.New("cycle among untyped nodes")

// Decoder turns flat graphs into resources.
type Decoder struct {
	// Registry is used to construct root entities.
	// When nil, DefaultRegistry is used.
	Registry *Registry

	// Inline lists types whose nodes are nested into the resources referencing them
	// instead of being returned as roots.
	// Used for request documents carrying complete skos-xl labels.
	Inline []string
}

type pair struct {
	predicate string
	object    quad.Value
}

type node struct {
	term  quad.Value
	pairs []pair
	types []string
}

// graph indexes the triples of a flat graph by subject.
type graph struct {
	order []string
	nodes map[string]*node
}

func key(v quad.Value) string {
	return v.String()
}

func newGraph(quads []quad.Quad) *graph {
	g := &graph{nodes: make(map[string]*node)}

	for _, q := range quads {
		if !isNode(q.Subject) {
			continue
		}
		pred, ok := q.Predicate.(quad.IRI)
		if !ok || q.Object == nil {
			continue
		}

		k := key(q.Subject)
		n, ok := g.nodes[k]
		if !ok {
			n = &node{term: q.Subject}
			g.nodes[k] = n
			g.order = append(g.order, k)
		}

		n.pairs = append(n.pairs, pair{predicate: string(pred), object: q.Object})
		if string(pred) == ns.Type {
			if typ, ok := q.Object.(quad.IRI); ok {
				n.types = append(n.types, string(typ))
			}
		}
	}
	return g
}

func isNode(v quad.Value) bool {
	switch v.(type) {
	case quad.IRI, quad.BNode:
		return true
	}
	return false
}

func (n *node) hasType(typ string) bool {
	for _, t := range n.types {
		if t == typ {
			return true
		}
	}
	return false
}

// Resources decodes all root resources of the given graph.
//
// A node is a root when it declares an rdf:type, and that type is expectedType (if non-empty).
// Untyped nodes are nested into the resources that reference them.
func (dec Decoder) Resources(quads []quad.Quad, expectedType string) (resource.Collection, error) {
	g := newGraph(quads)

	registry := dec.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	var roots resource.Collection
	for _, k := range g.order {
		n := g.nodes[k]
		if !dec.isRoot(n, expectedType) {
			continue
		}

		r, err := dec.build(g, registry, n, expectedType, make(map[string]struct{}))
		if err != nil {
			return nil, err
		}
		roots = append(roots, registry.Wrap(r))
	}
	return roots, nil
}

// Resource decodes the single resource with the given uri from the graph.
// ok is false when the graph does not describe uri.
func (dec Decoder) Resource(quads []quad.Quad, uri string) (entity resource.Entity, ok bool, err error) {
	all, err := dec.Resources(quads, "")
	if err != nil {
		return nil, false, err
	}
	if e := all.Find(uri); e != nil {
		return e, true, nil
	}
	return nil, false, nil
}

func (dec Decoder) isRoot(n *node, expectedType string) bool {
	if len(n.types) == 0 {
		return false
	}
	if expectedType != "" {
		return n.hasType(expectedType)
	}
	return !dec.inlined(n)
}

func (dec Decoder) inlined(n *node) bool {
	for _, typ := range dec.Inline {
		if n.hasType(typ) {
			return true
		}
	}
	return false
}

// build constructs the resource for n, recursively nesting untyped objects.
// path holds the nodes currently being built.
func (dec Decoder) build(g *graph, registry *Registry, n *node, expectedType string, path map[string]struct{}) (*resource.Resource, error) {
	k := key(n.term)
	path[k] = struct{}{}
	defer delete(path, k)

	var r *resource.Resource
	if iri, ok := n.term.(quad.IRI); ok {
		r = resource.New(string(iri))
	} else {
		r = resource.NewBlank()
	}

	for _, p := range n.pairs {
		if !isNode(p.object) {
			r.Add(p.predicate, ToLiteral(p.object))
			continue
		}

		ck := key(p.object)
		child, known := g.nodes[ck]
		if !known || (len(child.types) > 0 && !dec.inlined(child)) || dec.isRoot(child, expectedType) {
			if iri, isIRI := p.object.(quad.IRI); isIRI {
				r.Add(p.predicate, resource.URI(string(iri)))
			} else {
				r.Add(p.predicate, resource.NewBlank())
			}
			continue
		}

		if _, cyclic := path[ck]; cyclic {
			return nil, fmt.Errorf("%w: %s -> %s", ErrCycle, k, ck)
		}

		nested, err := dec.build(g, registry, child, expectedType, path)
		if err != nil {
			return nil, err
		}

		if len(child.types) > 0 {
			entity, _ := registry.Wrap(nested).(resource.Value)
			if entity != nil {
				r.Add(p.predicate, entity)
				continue
			}
		}
		r.Add(p.predicate, nested)
	}
	return r, nil
}

// ToLiteral converts a non-node quad value into a literal.
func ToLiteral(v quad.Value) resource.Literal {
	switch v := v.(type) {
	case quad.String:
		return resource.Plain(string(v))
	case quad.LangString:
		return resource.Lang(string(v.Value), v.Lang)
	case quad.TypedString:
		if string(v.Type) == ns.XSDString {
			return resource.Plain(string(v.Value))
		}
		return resource.Typed(string(v.Value), string(v.Type))
	default:
		return resource.Plain(fmt.Sprint(v.Native()))
	}
}
