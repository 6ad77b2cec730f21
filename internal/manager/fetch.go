package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/FAU-CDI/skosd/internal/bridge"
	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/cayleygraph/quad"
)

// SubjectVar is the variable bound to the listed resources in patterns passed to Fetch and friends.
const SubjectVar = "subject"

var (
	subject = sparql.Var(SubjectVar)
	object  = sparql.Var("object")
	rdfType = sparql.IRI(ns.Type)
)

// Has returns the pattern requiring the listed resource to have value for predicate.
func Has(predicate string, value resource.Value) sparql.Triple {
	term, ok := bridge.FromValue(value)
	if !ok {
		// blank values cannot be matched, use a pattern that never matches
		term = quad.BNode("unmatched")
	}
	return sparql.T(subject, sparql.IRI(predicate), sparql.Term(term))
}

// untypedObjects is the filter excluding objects that are resources of their own.
var untypedObjects = sparql.Group{
	Triples: []sparql.Triple{sparql.T(object, rdfType, sparql.Var("sometype"))},
}

// notDeleted returns the pattern excluding deleted resources.
// Resources without any status are not excluded.
func notDeleted(where sparql.Group) sparql.Group {
	where.Optional = append(where.Optional, sparql.Group{
		Triples: []sparql.Triple{sparql.T(subject, sparql.IRI(ns.Status), sparql.Var("status"))},
	})
	where.Filters = append(where.Filters, sparql.Or{
		sparql.Not{Expr: sparql.Bound("status")},
		sparql.NotEquals(sparql.Var("status"), sparql.Term(quad.String(resource.StatusDeleted))),
	})
	return where
}

// FetchByURI fetches the resource with the given uri.
// When typ is non-empty, the resource must be of that type, otherwise it must be of the managed type (if any).
func (m *Manager) FetchByURI(ctx context.Context, uri, typ string) (resource.Entity, error) {
	typ = m.typeOr(typ)

	target := sparql.IRI(uri)
	where := sparql.Group{
		Triples:   []sparql.Triple{sparql.T(target, sparql.Var("property"), object)},
		NotExists: []sparql.Group{untypedObjects},
	}
	if typ != "" {
		where.Triples = append(where.Triples, sparql.T(target, rdfType, sparql.IRI(typ)))
	}

	return m.fetchOne(ctx, sparql.NewDescribe(where, target, object), typ, "uri", uri)
}

// FetchByUUID fetches the resource whose property has the literal value id.
// When property is empty, openskos:uuid is used.
func (m *Manager) FetchByUUID(ctx context.Context, id, typ, property string) (resource.Entity, error) {
	typ = m.typeOr(typ)
	if property == "" {
		property = ns.UUID
	}

	where := sparql.Group{
		Triples: []sparql.Triple{
			sparql.T(subject, sparql.IRI(property), sparql.Term(quad.String(id))),
			sparql.T(subject, sparql.Var("property"), object),
		},
		NotExists: []sparql.Group{untypedObjects},
	}
	if typ != "" {
		where.Triples = append(where.Triples, sparql.T(subject, rdfType, sparql.IRI(typ)))
	}

	return m.fetchOne(ctx, sparql.NewDescribe(where, subject, object), typ, property, id)
}

// fetchOne runs a describe query expected to return exactly one resource.
func (m *Manager) fetchOne(ctx context.Context, q *sparql.Query, typ, property, value string) (resource.Entity, error) {
	all, err := m.fetchQuery(ctx, q, typ)
	if err != nil {
		return nil, err
	}

	switch len(all) {
	case 0:
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, property, value)
	case 1:
		return all[0], nil
	default:
		ie := &IntegrityError{Property: property, Value: value, Count: len(all)}
		m.status.LogError("fetch", ie)
		return nil, ie
	}
}

// fetchQuery runs a describe query and decodes all resources of the given type.
func (m *Manager) fetchQuery(ctx context.Context, q *sparql.Query, typ string) (resource.Collection, error) {
	res, err := m.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	all, err := m.decoder.Resources(res.Graph, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	return all, nil
}

// FetchByURIs fetches the resources with the given uris.
//
// The uris are fetched in chunks, and the result is returned in the order of uris.
// Uris that do not exist are omitted.
func (m *Manager) FetchByURIs(ctx context.Context, uris []string, typ string) (resource.Collection, error) {
	typ = m.typeOr(typ)

	var all resource.Collection
	for start := 0; start < len(uris); start += m.config.ChunkSize {
		chunk := uris[start:min(start+m.config.ChunkSize, len(uris))]

		filter := make(sparql.Or, len(chunk))
		for i, uri := range chunk {
			filter[i] = sparql.Equals(subject, sparql.IRI(uri))
		}

		where := sparql.Group{
			Triples: []sparql.Triple{sparql.T(subject, sparql.Var("predicate"), object)},
			Filters: []sparql.Expr{filter},
		}
		if typ != "" {
			where.Triples = append(where.Triples, sparql.T(subject, rdfType, sparql.IRI(typ)))
		}

		resources, err := m.fetchQuery(ctx, sparql.NewDescribe(where, subject), typ)
		if err != nil {
			return nil, err
		}
		all = append(all, resources...)
	}

	all.SortByOrder(uris)
	return all, nil
}

// AskForURI checks if a resource with the given uri exists.
//
// Unless checkAll is set, the resource must also be of type typ.
// When typ is empty, the managed type is used.
func (m *Manager) AskForURI(ctx context.Context, uri string, checkAll bool, typ string) (bool, error) {
	target := sparql.IRI(uri)
	where := sparql.Group{
		Triples: []sparql.Triple{sparql.T(target, sparql.Var("predicate"), object)},
	}

	if !checkAll {
		if typ := m.typeOr(typ); typ != "" {
			where.Triples = append(where.Triples, sparql.T(target, rdfType, sparql.IRI(typ)))
		}
	}

	return m.Ask(ctx, where)
}

// selectPatterns builds the pattern selecting listed resources.
// The managed type is added when set.
func (m *Manager) selectPatterns(patterns []sparql.Triple, ignoreDeleted bool) sparql.Group {
	var where sparql.Group
	where.Triples = append(where.Triples, patterns...)
	if m.typ != "" {
		where.Triples = append(where.Triples, sparql.T(subject, rdfType, sparql.IRI(m.typ)))
	}
	if len(where.Triples) == 0 {
		where.Triples = append(where.Triples, sparql.T(subject, sparql.Var("p"), sparql.Var("o")))
	}
	if ignoreDeleted {
		where = notDeleted(where)
	}
	return where
}

// subjects builds the query selecting a page of distinct subjects ordered by uri.
func (m *Manager) subjects(patterns []sparql.Triple, offset, limit int, ignoreDeleted bool) *sparql.Query {
	q := sparql.NewSelect(m.selectPatterns(patterns, ignoreDeleted), SubjectVar)
	q.Distinct = true
	q.OrderBy = SubjectVar
	q.Offset = offset
	q.Limit = limit
	return q
}

// Fetch fetches a page of resources matching all patterns, ordered by uri.
//
// Patterns use SubjectVar to refer to the listed resources.
// Pages are taken over the distinct matching resources, so that consecutive pages partition the result.
// A limit of zero fetches all resources starting at offset.
//
// When ignoreDeleted is set, resources with status deleted are omitted.
func (m *Manager) Fetch(ctx context.Context, patterns []sparql.Triple, offset, limit int, ignoreDeleted bool) (resource.Collection, error) {
	where := sparql.Group{
		Select:    m.subjects(patterns, offset, limit, ignoreDeleted),
		Triples:   []sparql.Triple{sparql.T(subject, sparql.Var("predicate"), object)},
		NotExists: []sparql.Group{untypedObjects},
	}

	all, err := m.fetchQuery(ctx, sparql.NewDescribe(where, subject, object), m.typ)
	if err != nil {
		return nil, err
	}

	// the store does not order describe results
	all.SortByURI()
	return all, nil
}

// FetchSubjects is like Fetch, but only returns the uris of matching resources.
func (m *Manager) FetchSubjects(ctx context.Context, patterns []sparql.Triple, offset, limit int, ignoreDeleted bool) ([]string, error) {
	res, err := m.Query(ctx, m.subjects(patterns, offset, limit, ignoreDeleted))
	if err != nil {
		return nil, err
	}

	var uris []string
	for _, v := range res.Values(SubjectVar) {
		if iri, ok := v.(quad.IRI); ok {
			uris = append(uris, string(iri))
		}
	}
	return uris, nil
}

// CountResources counts the distinct resources matching all patterns.
func (m *Manager) CountResources(ctx context.Context, patterns []sparql.Triple) (int, error) {
	res, err := m.Query(ctx, sparql.NewCount(m.selectPatterns(patterns, false), SubjectVar))
	if err != nil {
		return 0, err
	}
	return res.Int("count")
}

// MatchSpec describes the values a predicate must have for AskForMatch.
type MatchSpec struct {
	Predicate string
	Values    []resource.Value // any of these values matches

	// Negate matches values different from every one of Values.
	Negate bool

	// IgnoreLanguage compares lowercase lexical forms instead of terms.
	IgnoreLanguage bool
}

// AskForMatch checks if a resource of the managed type matches all specs.
//
// A resource matches a spec if any of its values for the spec's predicate equals any of the spec's values.
// The resource with uri excludeURI (if non-empty) is never considered.
// When ignoreDeleted is set, deleted resources are never considered.
func (m *Manager) AskForMatch(ctx context.Context, specs []MatchSpec, excludeURI string, ignoreDeleted bool) (bool, error) {
	var where sparql.Group
	if m.typ != "" {
		where.Triples = append(where.Triples, sparql.T(subject, rdfType, sparql.IRI(m.typ)))
	}

	for i, spec := range specs {
		name := fmt.Sprintf("match%d", i)
		where.Triples = append(where.Triples, sparql.T(subject, sparql.IRI(spec.Predicate), sparql.Var(name)))

		var left sparql.Operand = sparql.Var(name)
		if spec.IgnoreLanguage {
			left = sparql.LowerStr(name)
		}

		compares := make([]sparql.Expr, 0, len(spec.Values))
		for _, value := range spec.Values {
			var right quad.Value
			if spec.IgnoreLanguage {
				right = quad.String(strings.ToLower(lexical(value)))
			} else {
				var ok bool
				if right, ok = bridge.FromValue(value); !ok {
					continue
				}
			}
			compares = append(compares, sparql.Compare{Left: left, Right: sparql.Term(right), Negate: spec.Negate})
		}

		switch {
		case spec.Negate && len(compares) == 0:
			// every value is different
		case spec.Negate:
			where.Filters = append(where.Filters, sparql.And(compares))
		case len(compares) == 0:
			// nothing can match
			return false, nil
		default:
			where.Filters = append(where.Filters, sparql.Or(compares))
		}
	}

	if ignoreDeleted {
		where = notDeleted(where)
	}
	if excludeURI != "" {
		where.Filters = append(where.Filters, sparql.NotEquals(subject, sparql.IRI(excludeURI)))
	}

	return m.Ask(ctx, where)
}

// lexical returns the lexical form of a value.
func lexical(value resource.Value) string {
	if l, ok := value.(resource.Literal); ok {
		return l.Value
	}
	uri, _ := resource.URIOf(value)
	return uri
}
