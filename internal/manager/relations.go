package manager

import (
	"context"
	"fmt"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
	"github.com/FAU-CDI/skosd/internal/sparql"
	"github.com/cayleygraph/quad"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// skosRelations maps the skos concept-concept relations to their inverse.
var skosRelations = map[string]string{
	ns.Broader:            ns.Narrower,
	ns.Narrower:           ns.Broader,
	ns.BroaderTransitive:  ns.NarrowerTransitive,
	ns.NarrowerTransitive: ns.BroaderTransitive,
	ns.Related:            ns.Related,
	ns.BroadMatch:         ns.NarrowMatch,
	ns.NarrowMatch:        ns.BroadMatch,
	ns.CloseMatch:         ns.CloseMatch,
	ns.ExactMatch:         ns.ExactMatch,
	ns.RelatedMatch:       ns.RelatedMatch,
}

// hierarchical holds the relations that must not form cycles.
var hierarchical = map[string]struct{}{
	ns.Broader:     {},
	ns.Narrower:    {},
	ns.BroadMatch:  {},
	ns.NarrowMatch: {},
}

// IsTransitiveRelation checks if rel is one of the transitive skos relations.
// These are only ever inferred, and never asserted.
func IsTransitiveRelation(rel string) bool {
	return rel == ns.BroaderTransitive || rel == ns.NarrowerTransitive
}

// RelationTypes returns all known relations, mapped to their inverse.
//
// Custom relations are only included when the relation policy allows them.
// A custom relation without a declared inverse maps to the empty string.
func (m *Manager) RelationTypes(ctx context.Context) (map[string]string, error) {
	types := maps.Clone(skosRelations)
	if m.config.RelationPolicy != RelationsCustom {
		return types, nil
	}

	rel := sparql.Var("rel")
	q := sparql.NewSelect(sparql.Group{
		Triples: []sparql.Triple{sparql.T(rel, rdfType, sparql.IRI(ns.ObjectProperty))},
		Optional: []sparql.Group{{
			Triples: []sparql.Triple{sparql.T(rel, sparql.IRI(ns.InverseOf), sparql.Var("inverse"))},
		}},
	}, "rel", "inverse")
	q.OrderBy = "rel"

	res, err := m.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	for _, s := range res.Solutions {
		uri, ok := s["rel"].(quad.IRI)
		if !ok {
			continue
		}
		if _, ok := types[string(uri)]; ok {
			continue
		}

		var inverse string
		if iri, ok := s["inverse"].(quad.IRI); ok {
			inverse = string(iri)
		}
		types[string(uri)] = inverse
	}
	return types, nil
}

// InverseOf returns the inverse of rel.
// When rel has no inverse, returns the empty string.
func (m *Manager) InverseOf(ctx context.Context, rel string) (string, error) {
	types, err := m.RelationTypes(ctx)
	if err != nil {
		return "", err
	}
	inverse, ok := types[rel]
	if !ok {
		return "", fmt.Errorf("%w: unknown relation type %q", ErrInvalidRelation, rel)
	}
	return inverse, nil
}

// IsRelationURIValid checks if rel is a known relation type.
func (m *Manager) IsRelationURIValid(ctx context.Context, rel string) (bool, error) {
	types, err := m.RelationTypes(ctx)
	if err != nil {
		return false, err
	}
	_, ok := types[rel]
	return ok, nil
}

// Closure returns the uris reachable from uri by following rel one or more times.
func (m *Manager) Closure(ctx context.Context, uri, rel string) ([]string, error) {
	path := sparql.T(sparql.IRI(uri), sparql.IRI(rel), sparql.Var("trans"))
	path.Plus = true

	q := sparql.NewSelect(sparql.Group{Triples: []sparql.Triple{path}}, "trans")
	q.Distinct = true
	q.OrderBy = "trans"

	res, err := m.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	var closure []string
	for _, v := range res.Values("trans") {
		if iri, ok := v.(quad.IRI); ok {
			closure = append(closure, string(iri))
		}
	}
	return closure, nil
}

// RelationTripleCreatesCycle checks if asserting subject rel object would create a cycle.
// Only hierarchical relations are checked, a relation to subject itself always is a cycle.
func (m *Manager) RelationTripleCreatesCycle(ctx context.Context, subjectURI, rel, objectURI string) (bool, error) {
	if subjectURI == objectURI {
		return true, nil
	}
	if _, ok := hierarchical[rel]; !ok {
		return false, nil
	}

	closure, err := m.Closure(ctx, objectURI, rel)
	if err != nil {
		return false, err
	}
	return slices.Contains(closure, subjectURI), nil
}

// RelationTripleIsDuplicated checks if subject rel object is already asserted.
func (m *Manager) RelationTripleIsDuplicated(ctx context.Context, subjectURI, rel, objectURI string) (bool, error) {
	return m.Ask(ctx, sparql.Group{
		Triples: []sparql.Triple{sparql.T(sparql.IRI(subjectURI), sparql.IRI(rel), sparql.IRI(objectURI))},
	})
}

// AddRelation asserts subject rel object for every object, together with the inverse triples.
//
// All relations are checked before anything is written.
// Transitive relations, duplicates and cycles are rejected.
// Subject and every object must exist.
func (m *Manager) AddRelation(ctx context.Context, subjectURI, rel string, objects ...string) error {
	if IsTransitiveRelation(rel) {
		return fmt.Errorf("%w: %q can not be asserted directly", ErrInvalidRelation, rel)
	}

	inverse, err := m.InverseOf(ctx, rel)
	if err != nil {
		return err
	}

	for _, uri := range append([]string{subjectURI}, objects...) {
		exists, err := m.AskForURI(ctx, uri, false, "")
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
	}

	var graph []quad.Quad
	for _, objectURI := range objects {
		duplicate, err := m.RelationTripleIsDuplicated(ctx, subjectURI, rel, objectURI)
		if err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("%w: <%s> <%s> <%s>", ErrDuplicateRelation, subjectURI, rel, objectURI)
		}

		cycle, err := m.RelationTripleCreatesCycle(ctx, subjectURI, rel, objectURI)
		if err != nil {
			return err
		}
		if cycle {
			return fmt.Errorf("%w: <%s> <%s> <%s>", ErrRelationCycle, subjectURI, rel, objectURI)
		}

		graph = append(graph, relationQuads(subjectURI, rel, inverse, objectURI)...)
	}

	if len(graph) == 0 {
		return nil
	}
	return m.insertWithRetry(ctx, "relation", graph)
}

// DeleteRelation retracts subject rel object, together with the inverse triple.
func (m *Manager) DeleteRelation(ctx context.Context, subjectURI, rel, objectURI string) error {
	inverse, err := m.InverseOf(ctx, rel)
	if err != nil {
		return err
	}

	u := sparql.Update{
		sparql.DeleteWhere(sparql.T(sparql.IRI(subjectURI), sparql.IRI(rel), sparql.IRI(objectURI))),
	}
	if inverse != "" {
		u = append(u, sparql.DeleteWhere(sparql.T(sparql.IRI(objectURI), sparql.IRI(inverse), sparql.IRI(subjectURI))))
	}
	return m.update(ctx, "relation", u)
}

// DeleteRelationsWhereObject retracts every relation triple pointing to uri.
func (m *Manager) DeleteRelationsWhereObject(ctx context.Context, uri string) error {
	types, err := m.RelationTypes(ctx)
	if err != nil {
		return err
	}

	rels := maps.Keys(types)
	slices.Sort(rels)

	u := make(sparql.Update, len(rels))
	for i, rel := range rels {
		u[i] = sparql.DeleteWhere(sparql.T(subject, sparql.IRI(rel), sparql.IRI(uri)))
	}
	return m.update(ctx, "relation", u)
}

// ReplaceAndCleanRelations replaces a concept and makes relations pointing to it mirror its own relations.
//
// Relation triples pointing to the concept are removed first.
// After the concept has been replaced, the inverse of each of its relations is asserted.
// Relations the concept no longer holds thus disappear from both sides.
func (m *Manager) ReplaceAndCleanRelations(ctx context.Context, concept resource.Entity) error {
	r := concept.Res()
	if r.IsBlank() {
		return ErrBlank
	}
	uri := r.URI()

	types, err := m.RelationTypes(ctx)
	if err != nil {
		return err
	}

	if err := m.DeleteRelationsWhereObject(ctx, uri); err != nil {
		return err
	}
	if err := m.Replace(ctx, concept); err != nil {
		return err
	}
	return m.mirrorRelations(ctx, r, types)
}

// MirrorRelations asserts the inverse of each relation held by concept.
// It is called after inserting a new concept, so that the related concepts point back to it.
func (m *Manager) MirrorRelations(ctx context.Context, concept resource.Entity) error {
	r := concept.Res()
	if r.IsBlank() {
		return ErrBlank
	}

	types, err := m.RelationTypes(ctx)
	if err != nil {
		return err
	}
	return m.mirrorRelations(ctx, r, types)
}

// mirrorRelations inserts the inverse triples of the relations of r.
// Transitive relations and relations without inverse are skipped.
func (m *Manager) mirrorRelations(ctx context.Context, r *resource.Resource, types map[string]string) error {
	uri := r.URI()

	var graph []quad.Quad
	for _, rel := range r.Predicates() {
		inverse, ok := types[rel]
		if !ok || inverse == "" || IsTransitiveRelation(rel) {
			continue
		}
		for _, objectURI := range r.URIs(rel) {
			graph = append(graph, quad.Make(quad.IRI(objectURI), quad.IRI(inverse), quad.IRI(uri), nil))
		}
	}

	if len(graph) == 0 {
		return nil
	}
	return m.insertWithRetry(ctx, "relation", graph)
}

// DeleteSoftInScheme removes all concepts from the given scheme.
//
// Concepts that belong only to scheme are soft-deleted.
// Other concepts only lose their membership in scheme.
// Concepts are processed in pages, returns the number of soft-deleted and detached concepts.
func (m *Manager) DeleteSoftInScheme(ctx context.Context, scheme, deletedBy string) (deleted, detached int, err error) {
	// collect first, the pages shift as memberships are removed
	uris, err := m.FetchSubjects(ctx, []sparql.Triple{Has(ns.InScheme, resource.URI(scheme))}, 0, 0, true)
	if err != nil {
		return 0, 0, err
	}

	for start := 0; start < len(uris); start += m.config.PageSize {
		page, err := m.FetchByURIs(ctx, uris[start:min(start+m.config.PageSize, len(uris))], "")
		if err != nil {
			return deleted, detached, err
		}

		for _, concept := range page {
			r := concept.Res()
			r.Remove(ns.TopConceptOf, resource.URI(scheme))

			if len(r.URIs(ns.InScheme)) <= 1 {
				if err := m.DeleteSoft(ctx, concept, deletedBy); err != nil {
					return deleted, detached, err
				}
				deleted++
				continue
			}

			r.Remove(ns.InScheme, resource.URI(scheme))
			if err := m.Replace(ctx, concept); err != nil {
				return deleted, detached, err
			}
			detached++
		}
	}
	return deleted, detached, nil
}

// FetchRelations fetches all resources that uri relates to via rel.
// When scheme is non-empty, only resources in that scheme are returned.
func (m *Manager) FetchRelations(ctx context.Context, uri, rel, scheme string) (resource.Collection, error) {
	patterns := []sparql.Triple{sparql.T(sparql.IRI(uri), sparql.IRI(rel), subject)}
	if scheme != "" {
		patterns = append(patterns, Has(ns.InScheme, resource.URI(scheme)))
	}

	var all resource.Collection
	for offset := 0; ; offset += m.config.PageSize {
		page, err := m.Fetch(ctx, patterns, offset, m.config.PageSize, false)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < m.config.PageSize {
			break
		}
	}
	return all, nil
}

// relationQuads returns the triples asserting subject rel object and its inverse.
func relationQuads(subjectURI, rel, inverse, objectURI string) []quad.Quad {
	quads := []quad.Quad{quad.Make(quad.IRI(subjectURI), quad.IRI(rel), quad.IRI(objectURI), nil)}
	if inverse != "" {
		quads = append(quads, quad.Make(quad.IRI(objectURI), quad.IRI(inverse), quad.IRI(subjectURI), nil))
	}
	return quads
}
